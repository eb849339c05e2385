// Package control runs pipeline stages in the background on behalf of the
// dashboard and reports on the one job that may run at a time.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OutputLines is the number of output lines kept for the status view.
const OutputLines = 100

// MaxLineBytes caps a single output line; the rest of a longer line is
// dropped and replaced by TruncatedMarker.
const MaxLineBytes = 64 * 1024

// TruncatedMarker ends an output line cut at MaxLineBytes.
const TruncatedMarker = " [...truncated]"

// Agents is the allow-list of stages the control server may launch.
var Agents = []string{"discover", "enrich", "score", "draft", "research-draft"}

// ErrUnknownAgent is returned for an agent outside the allow-list.
var ErrUnknownAgent = errors.New("control: unknown agent")

// BusyError is returned when a job is already running.
type BusyError struct {
	Agent string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("control: agent %s already running", e.Agent)
}

// Process is a launched job.
type Process interface {
	// Output streams the combined stdout and stderr of the job. It reaches
	// EOF once the job has exited.
	Output() io.Reader
	// Wait blocks until the job exits and returns its exit code.
	Wait() (int, error)
}

// Launcher starts a job for an agent.
type Launcher interface {
	Launch(ctx context.Context, agent string, args []string) (Process, error)
}

// Status is a snapshot of the current or last job.
type Status struct {
	Running  bool     `json:"running"`
	Agent    string   `json:"agent,omitempty"`
	ExitCode *int     `json:"exit_code"`
	Output   []string `json:"output"`
}

// Registry holds the single job slot. All fields are guarded by mu.
type Registry struct {
	launcher Launcher
	allowed  map[string]struct{}

	mu       sync.Mutex
	agent    string
	running  bool
	exitCode *int
	started  time.Time
	output   *Ring
	done     chan struct{}
}

// NewRegistry creates a Registry that launches jobs with l.
func NewRegistry(l Launcher) *Registry {
	allowed := make(map[string]struct{}, len(Agents))
	for _, a := range Agents {
		allowed[a] = struct{}{}
	}
	return &Registry{launcher: l, allowed: allowed, output: NewRing(OutputLines)}
}

// Start launches agent with args. ctx bounds the lifetime of the job, not
// just the call. A second Start while a job runs returns *BusyError.
func (r *Registry) Start(ctx context.Context, agent string, args []string) error {
	if _, ok := r.allowed[agent]; !ok {
		return eris.Wrapf(ErrUnknownAgent, "agent %q", agent)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return &BusyError{Agent: r.agent}
	}

	proc, err := r.launcher.Launch(ctx, agent, args)
	if err != nil {
		return eris.Wrapf(err, "control: launch %s", agent)
	}

	r.agent = agent
	r.running = true
	r.exitCode = nil
	r.started = time.Now()
	r.output = NewRing(OutputLines)
	r.done = make(chan struct{})

	zap.L().Info("control: job started", zap.String("agent", agent), zap.Strings("args", args))
	go r.supervise(agent, proc, r.output, r.done)
	return nil
}

func (r *Registry) supervise(agent string, proc Process, out *Ring, done chan struct{}) {
	defer close(done)
	log := zap.L().With(zap.String("agent", agent))

	var (
		g    errgroup.Group
		code int
	)
	g.Go(func() error {
		err := readLines(proc.Output(), MaxLineBytes, func(line string) {
			out.Append(line)
			log.Debug("control: output", zap.String("line", line))
		})
		// The process blocks on a full pipe until its output is consumed.
		_, _ = io.Copy(io.Discard, proc.Output())
		return err
	})
	g.Go(func() error {
		var err error
		code, err = proc.Wait()
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn("control: job ended with error", zap.Error(err))
		if code == 0 {
			code = -1
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.exitCode = &code
	log.Info("control: job finished", zap.Int("exit_code", code), zap.Duration("elapsed", time.Since(r.started)))
}

// readLines calls fn for each line of r, cutting lines longer than limit. It
// returns nil at EOF.
func readLines(r io.Reader, limit int, fn func(string)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var (
		line      []byte
		truncated bool
	)
	flush := func() {
		s := string(line)
		if truncated {
			s += TruncatedMarker
		}
		fn(s)
		line = line[:0]
		truncated = false
	}
	for {
		chunk, isPrefix, err := br.ReadLine()
		if len(chunk) > 0 {
			if room := limit - len(line); room < len(chunk) {
				chunk = chunk[:max(room, 0)]
				truncated = true
			}
			line = append(line, chunk...)
		}
		if err != nil {
			if len(line) > 0 || truncated {
				flush()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return eris.Wrap(err, "control: read output")
		}
		if !isPrefix {
			flush()
		}
	}
}

// Status returns a snapshot of the current or last job.
func (r *Registry) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Status{Running: r.running, Agent: r.agent, Output: r.output.Lines()}
	if r.exitCode != nil {
		code := *r.exitCode
		s.ExitCode = &code
	}
	return s
}

// Done returns a channel closed when the current job finishes, or nil when
// no job was ever started.
func (r *Registry) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Ring keeps the most recent lines of output. It is safe for concurrent use.
type Ring struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

// NewRing returns a Ring holding at most size lines.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = OutputLines
	}
	return &Ring{lines: make([]string, size)}
}

// Append adds a line, evicting the oldest when full.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
}

// Lines returns the retained lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]string, r.next)
		copy(out, r.lines[:r.next])
		return out
	}
	out := make([]string, 0, len(r.lines))
	out = append(out, r.lines[r.next:]...)
	return append(out, r.lines[:r.next]...)
}
