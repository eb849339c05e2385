package control

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcess emits its output and exits when release is closed.
type fakeProcess struct {
	out     io.Reader
	code    int
	release chan struct{}
}

func (p *fakeProcess) Output() io.Reader { return p.out }

func (p *fakeProcess) Wait() (int, error) {
	<-p.release
	return p.code, nil
}

type fakeLauncher struct {
	lines   []string
	code    int
	release chan struct{}
	calls   []string
}

func newFakeLauncher(lines ...string) *fakeLauncher {
	return &fakeLauncher{lines: lines, release: make(chan struct{})}
}

func (l *fakeLauncher) Launch(_ context.Context, agent string, args []string) (Process, error) {
	l.calls = append(l.calls, strings.TrimSpace(agent+" "+strings.Join(args, " ")))
	return &fakeProcess{out: strings.NewReader(strings.Join(l.lines, "\n")), code: l.code, release: l.release}, nil
}

func waitDone(t *testing.T, reg *Registry) {
	t.Helper()
	select {
	case <-reg.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}
}

func TestRing_KeepsLastLines(t *testing.T) {
	r := NewRing(3)
	assert.Empty(t, r.Lines())

	r.Append("a")
	r.Append("b")
	assert.Equal(t, []string{"a", "b"}, r.Lines())

	r.Append("c")
	r.Append("d")
	r.Append("e")
	assert.Equal(t, []string{"c", "d", "e"}, r.Lines())
}

func TestRing_DefaultSize(t *testing.T) {
	r := NewRing(0)
	for i := 0; i < 250; i++ {
		r.Append(fmt.Sprintf("line %d", i))
	}
	lines := r.Lines()
	require.Len(t, lines, OutputLines)
	assert.Equal(t, "line 150", lines[0])
	assert.Equal(t, "line 249", lines[OutputLines-1])
}

func TestRegistry_SingleSlot(t *testing.T) {
	l := newFakeLauncher("Found 2 person(s) to enrich", "done")
	reg := NewRegistry(l)
	ctx := context.Background()

	require.NoError(t, reg.Start(ctx, "enrich", []string{"--dry-run"}))
	assert.True(t, reg.Status().Running)

	err := reg.Start(ctx, "score", nil)
	var busy *BusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, "enrich", busy.Agent)

	close(l.release)
	waitDone(t, reg)

	st := reg.Status()
	assert.False(t, st.Running)
	assert.Equal(t, "enrich", st.Agent)
	require.NotNil(t, st.ExitCode)
	assert.Equal(t, 0, *st.ExitCode)
	assert.Equal(t, []string{"Found 2 person(s) to enrich", "done"}, st.Output)
	assert.Equal(t, []string{"enrich --dry-run"}, l.calls)

	// The slot is free again.
	l.release = make(chan struct{})
	l.lines = []string{"scored"}
	require.NoError(t, reg.Start(ctx, "score", nil))
	assert.Nil(t, reg.Status().ExitCode, "exit code is cleared for a new job")
	close(l.release)
	waitDone(t, reg)
	assert.Equal(t, []string{"scored"}, reg.Status().Output)
}

func TestRegistry_UnknownAgent(t *testing.T) {
	reg := NewRegistry(newFakeLauncher())
	err := reg.Start(context.Background(), "rm", []string{"-rf"})
	assert.ErrorIs(t, err, ErrUnknownAgent)
	assert.False(t, reg.Status().Running)
	assert.Nil(t, reg.Done())
}

func TestRegistry_NonZeroExit(t *testing.T) {
	l := newFakeLauncher("ERROR: boom")
	l.code = 1
	close(l.release)
	reg := NewRegistry(l)

	require.NoError(t, reg.Start(context.Background(), "draft", nil))
	waitDone(t, reg)
	require.NotNil(t, reg.Status().ExitCode)
	assert.Equal(t, 1, *reg.Status().ExitCode)
}

func TestExecLauncher(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	script := t.TempDir() + "/agent.sh"
	require.NoError(t, writeScript(script, "#!/bin/sh\necho \"running $1\"\necho oops >&2\nexit 3\n"))

	l := &ExecLauncher{Binary: sh}
	proc, err := l.Launch(context.Background(), script, []string{"enrich"})
	require.NoError(t, err)

	type exit struct {
		code int
		err  error
	}
	waited := make(chan exit, 1)
	go func() {
		code, err := proc.Wait()
		waited <- exit{code, err}
	}()

	out, err := io.ReadAll(proc.Output())
	require.NoError(t, err)
	res := <-waited
	require.NoError(t, res.err)
	code := res.code
	assert.Equal(t, 3, code)
	assert.Contains(t, string(out), "running enrich")
	assert.Contains(t, string(out), "oops")
}

// pipeProcess streams its output through a pipe and only exits once the
// whole output has been read, like a real subprocess.
type pipeProcess struct {
	r       *io.PipeReader
	written chan struct{}
}

func (p *pipeProcess) Output() io.Reader { return p.r }

func (p *pipeProcess) Wait() (int, error) {
	<-p.written
	return 0, nil
}

type pipeLauncher struct {
	output string
}

func (l *pipeLauncher) Launch(_ context.Context, _ string, _ []string) (Process, error) {
	r, w := io.Pipe()
	p := &pipeProcess{r: r, written: make(chan struct{})}
	go func() {
		_, _ = io.WriteString(w, l.output)
		w.Close() //nolint:errcheck
		close(p.written)
	}()
	return p, nil
}

func TestRegistry_OverlongLineDoesNotWedgeSlot(t *testing.T) {
	long := strings.Repeat("a", 2_000_000)
	reg := NewRegistry(&pipeLauncher{output: long + "\ndone\n"})

	require.NoError(t, reg.Start(context.Background(), "discover", nil))
	waitDone(t, reg)

	st := reg.Status()
	assert.False(t, st.Running)
	require.NotNil(t, st.ExitCode)
	assert.Equal(t, 0, *st.ExitCode)
	require.Len(t, st.Output, 2)
	assert.Len(t, st.Output[0], MaxLineBytes+len(TruncatedMarker))
	assert.True(t, strings.HasSuffix(st.Output[0], TruncatedMarker))
	assert.Equal(t, "done", st.Output[1])

	// The slot is free for the next job.
	require.NoError(t, reg.Start(context.Background(), "enrich", nil))
	waitDone(t, reg)
}

func TestReadLines(t *testing.T) {
	var got []string
	err := readLines(strings.NewReader("one\r\ntwo\n"+strings.Repeat("x", 10)+"\nlast"), 4, func(s string) {
		got = append(got, s)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "xxxx" + TruncatedMarker, "last"}, got)
}

func TestExecLauncher_LongLine(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	script := t.TempDir() + "/warmline"
	require.NoError(t, writeScript(script, "#!/bin/sh\nhead -c 2000000 /dev/zero | tr '\\0' a\necho\necho done\n"))

	reg := NewRegistry(&ExecLauncher{Binary: script})
	require.NoError(t, reg.Start(context.Background(), "discover", nil))
	waitDone(t, reg)

	st := reg.Status()
	require.NotNil(t, st.ExitCode)
	assert.Equal(t, 0, *st.ExitCode)
	assert.Equal(t, "done", st.Output[len(st.Output)-1])
}
