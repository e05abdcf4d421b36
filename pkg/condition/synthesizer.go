/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: synthesizer.go
Description: External SyGuS synthesizer subprocess. Writes the problem to a scratch file,
invokes the duet binary with the remaining budget as the timeout, and returns stdout.
Timeouts surface as empty output, which enum conditions treat as a give-up and numeric
conditions as a failed attempt.
*/

package condition

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// duetFailPrefix marks an error reply from the duet synthesizer.
const duetFailPrefix = "Fatal error: exception"

// Synthesizer runs one SyGuS problem with a timeout and returns the raw
// reply. An empty reply means the synthesizer found nothing in time.
type Synthesizer interface {
	Run(sygus string, timeout time.Duration) (string, error)
}

func synthesizerGaveUp(out string) bool {
	return out == "" || strings.HasPrefix(out, duetFailPrefix)
}

// DuetSynthesizer shells out to the duet binary.
type DuetSynthesizer struct {
	Bin    string
	Opts   []string
	Dir    string // scratch directory; empty means the system temp dir
	Logger *logrus.Logger

	scratch string
}

// NewDuetSynthesizer creates a runner for the duet binary with its default
// search options.
func NewDuetSynthesizer(bin string, logger *logrus.Logger) *DuetSynthesizer {
	return &DuetSynthesizer{Bin: bin, Opts: []string{"-all"}, Logger: logger}
}

// Check verifies the synthesizer binary is invocable.
func (d *DuetSynthesizer) Check() error {
	if _, err := exec.LookPath(d.Bin); err != nil {
		return fmt.Errorf("condition: synthesizer binary %q not found: %w", d.Bin, err)
	}
	return nil
}

func (d *DuetSynthesizer) scratchFile() string {
	if d.scratch == "" {
		dir := d.Dir
		if dir == "" {
			dir = os.TempDir()
		}
		d.scratch = filepath.Join(dir, fmt.Sprintf("temp_p_%s.sl", uuid.New().String()))
	}
	return d.scratch
}

// Run writes the problem to the scratch file and blocks until the subprocess
// exits or the timeout kills it. Stdout is returned; a killed subprocess
// yields an empty string.
func (d *DuetSynthesizer) Run(sygus string, timeout time.Duration) (string, error) {
	if timeout < time.Millisecond {
		return "", nil
	}

	file := d.scratchFile()
	if err := os.WriteFile(file, []byte(sygus), 0644); err != nil {
		return "", fmt.Errorf("condition: failed to write sygus file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	args := append(append([]string{}, d.Opts...), file)
	cmd := exec.CommandContext(ctx, d.Bin, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		if d.Logger != nil {
			d.Logger.WithFields(logrus.Fields{
				"timeout": timeout,
			}).Debug("Synthesizer timed out")
		}
		return "", nil
	}
	if err != nil {
		if d.Logger != nil {
			d.Logger.WithError(err).Debug("Synthesizer exited with an error")
		}
		return stdout.String(), nil
	}
	return stdout.String(), nil
}
