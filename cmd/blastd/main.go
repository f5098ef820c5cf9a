// Command blastd runs the realtime command-driven audio engine: it loads
// a directory of WAV tracks, opens an output device, and drives a REPL
// that validates commands against a mirror of engine state before
// handing them to the audio thread over a lock-free queue.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/term"
	"github.com/spf13/pflag"

	"github.com/gitxandert/blastd/internal/device"
	"github.com/gitxandert/blastd/internal/engine"
	"github.com/gitxandert/blastd/internal/mirror"
	"github.com/gitxandert/blastd/internal/queue"
	"github.com/gitxandert/blastd/internal/repl"
	"github.com/gitxandert/blastd/internal/track"
)

func main() {
	var (
		tracksDir     = pflag.StringP("tracks-dir", "d", "", "Directory of .wav files to load as tracks.")
		sampleRate    = pflag.UintP("sample-rate", "r", 48000, "Output sample rate, in Hz.")
		channels      = pflag.IntP("channels", "c", 2, "Number of output channels.")
		queueCapacity = pflag.IntP("queue-capacity", "q", 256, "Command queue capacity (usable slots = capacity-1).")
		deviceName    = pflag.StringP("device", "D", "", "Output device name. Empty uses the system default.")
		logLevel      = pflag.StringP("log-level", "l", "info", "Log level: debug, info, warn, error.")
		framesPerBuf  = pflag.IntP("frames-per-buffer", "f", 256, "Frames per output period.")
		dumpDir       = pflag.String("dump-dir", "", "If set, write every output period's raw PCM to a timestamped file in this directory.")
		help          = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "blastd - realtime command-driven audio engine.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: blastd -d <tracks-dir> [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if *tracksDir == "" {
		fmt.Fprintln(os.Stderr, "blastd: -d/--tracks-dir is required")
		pflag.Usage()
		os.Exit(1)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: parseLevel(*logLevel)})

	decoded, err := track.LoadDir(*tracksDir)
	if err != nil {
		logger.Fatal("loading tracks", "err", err)
	}
	if len(decoded) == 0 {
		logger.Warn("no .wav files found", "dir", *tracksDir)
	}

	trackNames := make([]string, 0, len(decoded))
	tracks := make([]*track.Track, 0, len(decoded))
	for name, d := range decoded {
		trackNames = append(trackNames, name)
		tracks = append(tracks, track.New(d))
	}

	conductor := engine.NewConductor(uint32(*sampleRate), *channels, tracks)
	state := mirror.NewEngineState(trackNames, *channels)
	parser := mirror.NewParser(state)
	cmdQueue := queue.New(*queueCapacity)

	dev, err := device.Open(*deviceName, float64(*sampleRate), *channels, *framesPerBuf)
	if err != nil {
		logger.Fatal("opening output device", "err", err)
	}
	defer dev.Close()

	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		logger.Fatal("opening terminal for raw mode", "err", err)
	}
	defer tty.Restore()
	defer tty.Close()

	var dump io.Writer
	if *dumpDir != "" {
		f, err := device.OpenDump(*dumpDir, time.Now())
		if err != nil {
			logger.Fatal("opening diagnostic dump file", "err", err)
		}
		defer f.Close()
		dump = f
	}

	quit := make(chan struct{})

	go func() {
		if err := device.Run(dev, conductor, cmdQueue, *channels, quit, logger, dump); err != nil {
			logger.Error("audio run loop exited", "err", err)
		}
	}()

	console := repl.New(tty, os.Stdout, parser, cmdQueue)
	switch err := console.Run(); {
	case err == repl.ErrQuit:
		close(quit)
	case err == repl.ErrInterrupted:
		close(quit)
		tty.Restore()
		os.Exit(130)
	default:
		close(quit)
		if err != nil {
			logger.Error("repl exited", "err", err)
		}
	}
}

func parseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
