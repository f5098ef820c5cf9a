package process

import (
	"testing"

	"github.com/gitxandert/blastd/internal/tempo"
	"github.com/stretchr/testify/assert"
)

type fakeTarget struct {
	retriggers int
}

func (f *fakeTarget) Retrigger() {
	f.retriggers++
}

func Test_SeqNeverFiresAtZeroChance(t *testing.T) {
	ts := tempo.New()
	ts.Init(tempo.Process, tempo.Bpm, 48000, 120)
	ts.Start()

	seq := NewSeq(ts, true, 4, []float64{0, 1, 2, 3}, []float64{0, 0, 0, 0}, []float64{100, 100, 100, 100})
	seq.Active = true

	target := &fakeTarget{}
	p := Process{Kind: KindSeq, Seq: *seq}

	for i := 0; i < 48000*4; i++ {
		ts.Advance()
		p.Step(target)
	}

	assert.Equal(t, 0, target.retriggers)
}

func Test_SeqAlwaysFiresAtFullChance(t *testing.T) {
	ts := tempo.New()
	ts.Init(tempo.Process, tempo.Samples, 48000, 1000)
	ts.Start()

	seq := NewSeq(ts, true, 2, []float64{0, 1}, []float64{100, 100}, nil)
	seq.Active = true

	target := &fakeTarget{}
	p := Process{Kind: KindSeq, Seq: *seq}

	for i := 0; i < 1000*2*3; i++ {
		ts.Advance()
		p.Step(target)
	}

	assert.Greater(t, target.retriggers, 0)
}

func Test_ResetZeroesIdx(t *testing.T) {
	ts := tempo.New()
	ts.Init(tempo.Process, tempo.Samples, 48000, 100)
	ts.Start()

	seq := NewSeq(ts, true, 4, []float64{0, 1, 2, 3}, []float64{100, 100, 100, 100}, nil)
	seq.Active = true
	p := Process{Kind: KindSeq, Seq: *seq}
	target := &fakeTarget{}

	for i := 0; i < 500; i++ {
		ts.Advance()
		p.Step(target)
	}

	p.Reset()
	assert.Equal(t, 0, p.Seq.idx)
}
