package control

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/rotisserie/eris"
)

// ExecLauncher runs each job as a subprocess of Binary with the agent name
// as the first argument, so "warmline enrich --dry-run" for agent "enrich".
type ExecLauncher struct {
	Binary string
	// Dir is the working directory; empty means the server's.
	Dir string
	// Env is appended to the server's environment.
	Env []string
}

// NewExecLauncher returns a launcher that re-invokes the running binary.
func NewExecLauncher() (*ExecLauncher, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, eris.Wrap(err, "control: locate executable")
	}
	return &ExecLauncher{Binary: self}, nil
}

// Launch implements Launcher.
func (l *ExecLauncher) Launch(ctx context.Context, agent string, args []string) (Process, error) {
	cmd := exec.CommandContext(ctx, l.Binary, append([]string{agent}, args...)...)
	cmd.Dir = l.Dir
	cmd.Env = append(os.Environ(), l.Env...)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pw.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "control: start %s", l.Binary)
	}
	return &execProcess{cmd: cmd, out: pr, w: pw}, nil
}

type execProcess struct {
	cmd *exec.Cmd
	out *io.PipeReader
	w   *io.PipeWriter
}

func (p *execProcess) Output() io.Reader { return p.out }

// Wait reports a non-zero exit as its code rather than as an error.
func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	p.w.Close() //nolint:errcheck

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, eris.Wrap(err, "control: wait")
	}
	return 0, nil
}
