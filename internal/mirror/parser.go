package mirror

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gitxandert/blastd/internal/command"
	"github.com/gitxandert/blastd/internal/tempo"
)

// Parser consumes one REPL line at a time, validates it against the
// EngineState, mutates the mirror to reflect the post-apply state, and
// returns either a fully validated command.Command or an error from the
// taxonomy in SPEC_FULL.md §7. Nothing that fails validation is ever
// returned as a Command.
type Parser struct {
	State *EngineState
}

// NewParser builds a Parser over state.
func NewParser(state *EngineState) *Parser {
	return &Parser{State: state}
}

// Parse validates one command line and returns the Command to enqueue.
func (p *Parser) Parse(line string) (command.Command, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")

	switch verb {
	case "load":
		return p.tryLoad(rest)
	case "start":
		return p.tryToggle(rest, "start", command.KindStart)
	case "pause":
		return p.tryToggle(rest, "pause", command.KindPause)
	case "resume":
		return p.tryToggle(rest, "resume", command.KindResume)
	case "stop":
		return p.tryToggle(rest, "stop", command.KindStop)
	case "unload":
		return p.tryUnload(rest)
	case "velocity":
		return p.tryVelocity(rest)
	case "group":
		return p.tryGroup(rest)
	case "tc", "tempocon":
		return p.tryTc(rest)
	case "seq":
		return p.trySeq(rest)
	case "q", "quit":
		return command.Command{Kind: command.KindQuit}, nil
	default:
		return command.Command{}, &command.NoCmdError{Cmd: verb}
	}
}

func (p *Parser) tryLoad(args string) (command.Command, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return command.Command{}, &command.MissingArgError{Arg: "name", Cmd: "load"}
	}
	name := fields[0]

	track, ok := p.State.Tracks[name]
	if !ok {
		return command.Command{}, &command.NoItemError{Ty: "track", Name: name}
	}
	if _, exists := p.State.Voices[name]; exists {
		return command.Command{}, &command.AlreadyIsError{Ty: "Voice", Name: name}
	}

	tr := command.TempoRepr{Owned: true, Mode: tempo.TBD, Unit: tempo.Samples}

	rest := fields[1:]
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "-t", "--tempo":
			i++
			if i >= len(rest) {
				return command.Command{}, &command.MissingArgError{Arg: "unit", Cmd: "load -t/--tempo"}
			}
			parsed, err := p.resolveVoiceTempoSpec(rest[i], tempo.Voice, "load -t")
			if err != nil {
				return command.Command{}, err
			}
			tr = parsed
		default:
			return command.Command{}, &command.InvalidArgError{Arg: rest[i], Cmd: "load"}
		}
	}

	idx := len(p.State.Voices)
	p.State.Voices[name] = newVoiceRepr(idx, tr)

	return command.Command{Kind: command.KindLoad, Load: command.LoadArgs{
		Name: name, TrackIdx: track.Idx, Tempo: tr,
	}}, nil
}

// resolveVoiceTempoSpec parses the grammar after `-t` (s:/m:/b:/c:/g:),
// used by load, seq, and group. ownMode is the mode assigned when the
// spec builds a fresh, owned TempoState (Voice for `load`/`seq` on a
// voice, Group for `group`).
func (p *Parser) resolveVoiceTempoSpec(spec string, ownMode tempo.Mode, cmd string) (command.TempoRepr, error) {
	unit, rest, ok := strings.Cut(spec, ":")
	switch unit {
	case "c":
		if !ok || rest == "" {
			return command.TempoRepr{}, &command.MissingArgError{Arg: "name", Cmd: cmd + " c:???"}
		}
		tc, ok := p.State.TempoCons[rest]
		if !ok {
			return command.TempoRepr{}, &command.NoItemError{Ty: "TempoContext", Name: rest}
		}
		return cloneShared(tc), nil
	case "g":
		if !ok || rest == "" {
			return command.TempoRepr{}, &command.MissingArgError{Arg: "name", Cmd: cmd + " g:???"}
		}
		g, ok := p.State.Groups[rest]
		if !ok {
			return command.TempoRepr{}, &command.NoItemError{Ty: "Group", Name: rest}
		}
		return cloneShared(g.Tempo), nil
	case "s", "m", "b":
		if !ok || rest == "" {
			return command.TempoRepr{}, &command.MissingArgError{Arg: "interval", Cmd: cmd}
		}
		interval, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return command.TempoRepr{}, &command.InvalidArgError{Arg: rest, Cmd: cmd}
		}
		return command.TempoRepr{Owned: true, Mode: ownMode, Unit: unitFromLetter(unit), Interval: interval}, nil
	default:
		return command.TempoRepr{}, &command.InvalidArgError{Arg: unit, Cmd: cmd}
	}
}

func unitFromLetter(l string) tempo.Unit {
	switch l {
	case "m":
		return tempo.Millis
	case "b":
		return tempo.Bpm
	default:
		return tempo.Samples
	}
}

// cloneShared returns a TempoRepr referencing the same entity as src,
// with Owned forced false — the mirror-level analogue of the source's
// TempoRepr::clone_owner.
func cloneShared(src command.TempoRepr) command.TempoRepr {
	src.Owned = false
	return src
}

func (p *Parser) tryToggle(args, cmdName string, kind command.Kind) (command.Command, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return command.Command{}, &command.MissingArgError{Arg: "type and name", Cmd: cmdName}
	}
	target, idx, err := p.resolveTargetIdx(fields[0], fields[1])
	if err != nil {
		return command.Command{}, err
	}
	return command.Command{Kind: kind, StartStop: command.StartStopArgs{Target: target, Idx: idx}}, nil
}

func (p *Parser) resolveTargetIdx(ty, name string) (command.Target, int, error) {
	switch ty {
	case "-v", "--voice":
		v, err := p.findVoice(name)
		if err != nil {
			return 0, 0, err
		}
		return command.TargetVoice, v.Idx, nil
	case "-g", "--group":
		g, err := p.findGroup(name)
		if err != nil {
			return 0, 0, err
		}
		return command.TargetGroup, g.Idx, nil
	case "-t", "--tempocontext":
		tc, err := p.findTc(name)
		if err != nil {
			return 0, 0, err
		}
		return command.TargetTempo, tc.RefIdx, nil
	default:
		return 0, 0, &command.MissingArgError{Arg: "type", Cmd: "-v/-g/-t"}
	}
}

func (p *Parser) tryUnload(args string) (command.Command, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return command.Command{}, &command.MissingArgError{Arg: "name", Cmd: "unload"}
	}
	name := fields[0]

	v, ok := p.State.Voices[name]
	if !ok {
		return command.Command{}, &command.NoVoiceError{Name: name}
	}
	idx := v.Idx
	delete(p.State.Voices, name)

	for _, other := range p.State.Voices {
		if other.Idx > idx {
			other.Idx--
		}
	}

	return command.Command{Kind: command.KindUnload, Unload: command.UnloadArgs{Idx: idx}}, nil
}

func (p *Parser) tryVelocity(args string) (command.Command, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return command.Command{}, &command.MissingArgError{Arg: "name", Cmd: "velocity"}
	}
	if len(fields) < 2 {
		return command.Command{}, &command.MissingArgError{Arg: "value", Cmd: "velocity"}
	}
	v, err := p.findVoice(fields[0])
	if err != nil {
		return command.Command{}, err
	}
	val, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return command.Command{}, &command.InvalidArgError{Arg: fields[1], Cmd: "velocity"}
	}
	return command.Command{Kind: command.KindVelocity, Velocity: command.VelocityArgs{Idx: v.Idx, Value: val}}, nil
}

// tryGroup implements the index-rewriting rule in SPEC_FULL.md §4.2:
// voices are removed from the mirror in the order named, their removed
// indices are recorded, and then all remaining voice indices above each
// removed index are decremented, processing from highest removed index
// to lowest so no decrement observes a stale index. The command payload
// is sorted highest-first for the same reason on the audio side.
func (p *Parser) tryGroup(args string) (command.Command, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return command.Command{}, &command.MissingArgError{Arg: "name", Cmd: "group"}
	}
	name := fields[0]

	tr := command.TempoRepr{Owned: true, Mode: tempo.Group, Unit: tempo.Bpm, Interval: 240}
	var voiceNames []string

	rest := fields[1:]
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "-t", "--tempo":
			i++
			if i >= len(rest) {
				return command.Command{}, &command.MissingArgError{Arg: "arguments", Cmd: "group -t"}
			}
			parsed, err := p.resolveVoiceTempoSpec(rest[i], tempo.Group, "group -t")
			if err != nil {
				return command.Command{}, err
			}
			tr = parsed
		case "-v", "--voices":
			i++
			if i >= len(rest) {
				return command.Command{}, &command.MissingArgError{Arg: "arguments", Cmd: "group -v"}
			}
			voiceNames = strings.Split(rest[i], ",")
		default:
			return command.Command{}, &command.InvalidArgError{Arg: rest[i], Cmd: "group"}
		}
	}
	if tr.Owned {
		tr.RefIdx = len(p.State.Groups)
	}

	removedIdxs := make([]int, 0, len(voiceNames))
	inherit := make([]bool, 0, len(voiceNames))
	reprs := make([]*VoiceRepr, 0, len(voiceNames))

	for _, vn := range voiceNames {
		v, ok := p.State.Voices[vn]
		if !ok {
			return command.Command{}, &command.NoVoiceError{Name: vn}
		}
		removedIdxs = append(removedIdxs, v.Idx)
		delete(p.State.Voices, vn)
		reprs = append(reprs, v)
	}

	sortedDesc := append([]int(nil), removedIdxs...)
	sort.Sort(sort.Reverse(sort.IntSlice(sortedDesc)))
	for _, removed := range sortedDesc {
		for _, other := range p.State.Voices {
			if other.Idx > removed {
				other.Idx--
			}
		}
	}

	for i, v := range reprs {
		if v.Tempo.Mode == tempo.TBD {
			v.Tempo = cloneShared(tr)
			inherit = append(inherit, true)
			for _, proc := range v.Processes {
				if proc.Tempo != nil && proc.Tempo.Mode == tempo.TBD {
					shared := cloneShared(tr)
					proc.Tempo = &shared
				}
			}
		} else {
			inherit = append(inherit, false)
		}
		v.Idx = i
	}

	p.State.Groups[name] = &GroupRepr{
		Idx:    len(p.State.Groups),
		Tempo:  tr,
		Voices: voicesByName(voiceNames, reprs),
	}

	// sort (idx, inherit) pairs highest-first, same order as removedIdxs
	// zipped with inherit, mirroring the source's vs_fs_ps sort.
	type pair struct {
		idx     int
		inherit bool
	}
	pairs := make([]pair, len(removedIdxs))
	for i := range removedIdxs {
		pairs[i] = pair{removedIdxs[i], inherit[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].idx > pairs[j].idx })

	sortedIdxs := make([]int, len(pairs))
	sortedInherit := make([]bool, len(pairs))
	for i, pr := range pairs {
		sortedIdxs[i] = pr.idx
		sortedInherit[i] = pr.inherit
	}

	return command.Command{Kind: command.KindGroup, Group: command.GroupArgs{
		Name: name, Tempo: tr, VoiceIdxs: sortedIdxs, Inherit: sortedInherit,
	}}, nil
}

func voicesByName(names []string, reprs []*VoiceRepr) map[string]*VoiceRepr {
	m := make(map[string]*VoiceRepr, len(names))
	for i, n := range names {
		m[n] = reprs[i]
	}
	return m
}

func (p *Parser) tryTc(args string) (command.Command, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return command.Command{}, &command.MissingArgError{Arg: "name", Cmd: "tempocon"}
	}
	if len(fields) < 2 {
		return command.Command{}, &command.MissingArgError{Arg: "tempo", Cmd: "tempocon"}
	}
	name := fields[0]

	unitStr, intervalStr, ok := strings.Cut(fields[1], ":")
	if !ok {
		return command.Command{}, &command.TempoFormattingError{}
	}
	unit, err := unitFromString(unitStr)
	if err != nil {
		return command.Command{}, err
	}
	interval, err := strconv.ParseFloat(intervalStr, 64)
	if err != nil {
		return command.Command{}, &command.InvalidArgError{Arg: intervalStr, Cmd: "-t/--tempo"}
	}

	tr := command.TempoRepr{Owned: true, Mode: tempo.Context, Unit: unit, Interval: interval, RefIdx: len(p.State.TempoCons)}
	p.State.TempoCons[name] = tr

	return command.Command{Kind: command.KindTc, Tc: command.TcArgs{Name: name, Unit: unit, Interval: interval}}, nil
}

func unitFromString(s string) (tempo.Unit, error) {
	switch s {
	case "b":
		return tempo.Bpm, nil
	case "m":
		return tempo.Millis, nil
	case "s":
		return tempo.Samples, nil
	default:
		return 0, &command.InvalidArgError{Arg: s, Cmd: "-t/--tempo"}
	}
}

// trySeq implements SPEC_FULL.md §4.5/§4.2: attach a sequencer to a
// voice, defaulting its tempo to a fresh process-owned clock, resolving
// -t's extra `v` grammar (reference the voice's own tempo), and applying
// the chance/jitter DSL in §4.2 once steps are known.
func (p *Parser) trySeq(args string) (command.Command, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return command.Command{}, &command.MissingArgError{Arg: "name", Cmd: "seq"}
	}
	name := fields[0]

	v, err := p.findVoice(name)
	if err != nil {
		return command.Command{}, err
	}

	tr := command.TempoRepr{Owned: true, Mode: tempo.Process, Unit: tempo.Samples, RefIdx: len(v.ProcTempi)}
	period := 4
	var steps, chance, jit []float64

	rest := fields[1:]
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "-t", "--tempo":
			i++
			if i >= len(rest) {
				return command.Command{}, &command.MissingArgError{Arg: "unit:interval", Cmd: "seq -t"}
			}
			spec := rest[i]
			if spec == "v" {
				tr = cloneShared(v.Tempo)
				if tr.Mode == tempo.TBD || tr.Mode == tempo.Voice {
					tr.Mode = tempo.Voice
					tr.RefIdx = v.Idx
				}
				continue
			}
			unitStr, intervalStr, ok := strings.Cut(spec, ":")
			if !ok {
				switch unitStr {
				case "c", "g":
					return command.Command{}, &command.MissingArgError{Arg: "name", Cmd: "seq -t"}
				}
				return command.Command{}, &command.TempoFormattingError{}
			}
			switch unitStr {
			case "c":
				tc, ok := p.State.TempoCons[intervalStr]
				if !ok {
					return command.Command{}, &command.NoItemError{Ty: "TempoContext", Name: intervalStr}
				}
				tr = cloneShared(tc)
			case "g":
				g, ok := p.State.Groups[intervalStr]
				if !ok {
					return command.Command{}, &command.NoItemError{Ty: "Group", Name: intervalStr}
				}
				tr = cloneShared(g.Tempo)
			default:
				unit, uerr := unitFromString(unitStr)
				if uerr != nil {
					return command.Command{}, &command.InvalidArgError{Arg: unitStr, Cmd: "seq -t"}
				}
				interval, ferr := strconv.ParseFloat(intervalStr, 64)
				if ferr != nil {
					return command.Command{}, &command.InvalidArgError{Arg: intervalStr, Cmd: "seq -t"}
				}
				tr = command.TempoRepr{Owned: true, Mode: tempo.Process, Unit: unit, Interval: interval}
			}
		case "-p", "--period":
			i++
			if i >= len(rest) {
				return command.Command{}, &command.MissingArgError{Arg: "value", Cmd: "seq -p"}
			}
			n, perr := strconv.Atoi(rest[i])
			if perr != nil {
				return command.Command{}, &command.InvalidArgError{Arg: rest[i], Cmd: "seq -p"}
			}
			period = n
		case "-s", "--steps":
			i++
			if i >= len(rest) {
				return command.Command{}, &command.MissingArgError{Arg: "value", Cmd: "seq -s"}
			}
			parsed, serr := parseFloatCSV(rest[i], "seq -s")
			if serr != nil {
				return command.Command{}, serr
			}
			steps = parsed
			chance = fillDefault(len(steps), 100)
			jit = fillDefault(len(steps), 100)
		case "-c", "--chance":
			i++
			if len(steps) == 0 {
				return command.Command{}, &command.FormattingError{Got: "Must provide arguments to -s/--steps before -c/--chance or -j/--jitter"}
			}
			if i >= len(rest) {
				return command.Command{}, &command.MissingArgError{Arg: "value", Cmd: "seq -c"}
			}
			if err := applyChanceTokens(rest[i], steps, chance); err != nil {
				return command.Command{}, err
			}
		case "-j", "--jitter":
			i++
			if len(steps) == 0 {
				return command.Command{}, &command.FormattingError{Got: "Must provide arguments to -s/--steps before -c/--chance or -j/--jitter"}
			}
			if i >= len(rest) {
				return command.Command{}, &command.MissingArgError{Arg: "value", Cmd: "seq -j"}
			}
			// -j's DSL is accepted but reserved: jit is filled exactly
			// like chance, then never consulted by the audio-side step
			// function (SPEC_FULL.md §9/§12).
			if err := applyChanceTokens(rest[i], steps, jit); err != nil {
				return command.Command{}, err
			}
		default:
			return command.Command{}, &command.InvalidArgError{Arg: rest[i], Cmd: "seq"}
		}
	}

	procIdx := len(v.Processes)
	v.Processes[strconv.Itoa(procIdx)] = &ProcRepr{Idx: procIdx, OwnerIdx: v.Idx, Tempo: &tr}
	if tr.Mode == tempo.Process {
		v.ProcTempi[len(v.ProcTempi)] = tr
	}

	return command.Command{Kind: command.KindSeq, Seq: command.SeqArgs{
		Target: command.TargetVoice, Idx: v.Idx, Tempo: tr,
		Period: period, Steps: steps, Chance: chance, Jit: jit,
	}}, nil
}

// applyChanceTokens implements the chance/jitter DSL in SPEC_FULL.md §4.2,
// applied left to right so a later token overwrites an earlier one:
//
//	100          bare float, sets the next un-positioned step in order
//	_            same as a bare 100
//	a:50         sets every step
//	3:50         sets the step(s) whose beat position is exactly 3
//	2-5:50       sets every step whose beat position lies in [2, 5]
func applyChanceTokens(raw string, steps, target []float64) error {
	pos := 0
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		switch {
		case tok == "_":
			if pos >= len(target) {
				return &command.FormattingError{Got: "too many chance/jitter tokens for step count"}
			}
			target[pos] = 100
			pos++

		case strings.HasPrefix(tok, "a:"):
			v, err := strconv.ParseFloat(tok[2:], 64)
			if err != nil {
				return &command.InvalidArgError{Arg: tok, Cmd: "seq -c/-j"}
			}
			for i := range target {
				target[i] = v
			}

		case strings.Contains(tok, "-") && strings.Contains(tok, ":"):
			rangePart, valPart, _ := strings.Cut(tok, ":")
			loStr, hiStr, ok := strings.Cut(rangePart, "-")
			v, verr := strconv.ParseFloat(valPart, 64)
			lo, lerr := strconv.ParseFloat(loStr, 64)
			hi, herr := strconv.ParseFloat(hiStr, 64)
			if !ok || verr != nil || lerr != nil || herr != nil || lo > hi {
				return &command.InvalidArgError{Arg: tok, Cmd: "seq -c/-j"}
			}
			for i, s := range steps {
				if s >= lo && s <= hi {
					target[i] = v
				}
			}

		case strings.Contains(tok, ":"):
			posStr, valStr, _ := strings.Cut(tok, ":")
			pos, perr := strconv.ParseFloat(posStr, 64)
			v, verr := strconv.ParseFloat(valStr, 64)
			if perr != nil || verr != nil {
				return &command.InvalidArgError{Arg: tok, Cmd: "seq -c/-j"}
			}
			matched := false
			for i, s := range steps {
				if s == pos {
					target[i] = v
					matched = true
				}
			}
			if !matched {
				return &command.InvalidArgError{Arg: tok, Cmd: "seq -c/-j"}
			}

		default:
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return &command.InvalidArgError{Arg: tok, Cmd: "seq -c/-j"}
			}
			if pos >= len(target) {
				return &command.FormattingError{Got: "too many chance/jitter tokens for step count"}
			}
			target[pos] = v
			pos++
		}
	}
	return nil
}

func fillDefault(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func parseFloatCSV(s, cmd string) ([]float64, error) {
	toks := strings.Split(s, ",")
	out := make([]float64, 0, len(toks))
	for _, tok := range toks {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, &command.InvalidArgError{Arg: tok, Cmd: cmd}
		}
		out = append(out, v)
	}
	return out, nil
}

// findVoice resolves a possibly-dotted "group.voice" reference.
func (p *Parser) findVoice(ref string) (*VoiceRepr, error) {
	parts := strings.Split(ref, ".")
	if len(parts) > 2 {
		return nil, &command.FormattingError{Got: "Too many delimiters for format group.voice"}
	}
	if len(parts) == 1 {
		v, ok := p.State.Voices[ref]
		if !ok {
			return nil, &command.NoVoiceError{Name: ref}
		}
		return v, nil
	}
	groupName, voiceName := parts[0], parts[1]
	g, ok := p.State.Groups[groupName]
	if !ok {
		return nil, &command.NoItemError{Ty: "Group", Name: groupName}
	}
	v, ok := g.Voices[voiceName]
	if !ok {
		return nil, &command.NoVoiceError{Name: voiceName, Group: groupName}
	}
	return v, nil
}

func (p *Parser) findGroup(name string) (*GroupRepr, error) {
	g, ok := p.State.Groups[name]
	if !ok {
		return nil, &command.NoItemError{Ty: "Group", Name: name}
	}
	return g, nil
}

func (p *Parser) findTc(name string) (command.TempoRepr, error) {
	tc, ok := p.State.TempoCons[name]
	if !ok {
		return command.TempoRepr{}, &command.NoItemError{Ty: "TempoContext", Name: name}
	}
	return tc, nil
}
