package device

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/strftime"
)

// dumpPattern names the optional diagnostic capture file, timestamped at
// open time. Raw interleaved PCM, not a WAV container — it exists to let
// a developer inspect exactly what was handed to the output device.
const dumpPattern = "blastd-%Y%m%d-%H%M%S.raw"

// DumpFilename expands a strftime pattern (e.g. dumpPattern) against t,
// for the optional diagnostic dump path.
func DumpFilename(pattern string, t time.Time) (string, error) {
	return strftime.Format(pattern, t)
}

// OpenDump creates the diagnostic capture file for this run under dir,
// named via DumpFilename. Every period Run writes to the output device
// is also teed into this file when dump-dir is set.
func OpenDump(dir string, t time.Time) (*os.File, error) {
	name, err := DumpFilename(dumpPattern, t)
	if err != nil {
		return nil, fmt.Errorf("device: dump filename: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("device: open dump file: %w", err)
	}
	return f, nil
}
