// Package runner is the One-Shot Runner: it spawns a provider process for
// a single request, enforces the Concurrency Gate and a per-call timeout,
// streams stdout/stderr through the Event Log Writer, and classifies the
// outcome into the exit-code taxonomy.
package runner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"multiagents/internal/coreerr"
	"multiagents/internal/eventlog"
	"multiagents/internal/gate"
	"multiagents/internal/ids"
	"multiagents/internal/process"
	"multiagents/internal/provider"
	"multiagents/internal/store"
)

const (
	DefaultTimeout      = 120 * time.Second
	terminationGrace    = 500 * time.Millisecond
	ModeOneshot         = "oneshot"
)

// Request describes a single provider invocation.
type Request struct {
	ProjectID   string
	AgentID     string
	Role        string
	SessionID   string // store session id; empty when untracked
	BroadcastID string
	MessageID   string

	Template provider.Template
	Mode     string // "oneshot" (default) or "repl"
	Render   provider.Context

	// ProviderSessionID, when non-empty, is the native token already
	// known to the caller (e.g. minted by create-chat); it is persisted
	// via touch_session when the first output line arrives, and only
	// when SessionID is set.
	ProviderSessionID string

	Timeout time.Duration
}

// Result is the outcome of a single Run call.
type Result struct {
	Code       coreerr.Code
	ExitCode   int
	DurationMS int64
	Stderr     string
	Text       string
}

// Runner owns the shared Concurrency Gate, Event Log Writer, and State
// Store used to execute one-shot provider calls.
type Runner struct {
	store  *store.Store
	writer *eventlog.Writer
	gate   *gate.Gate
	clock  ids.Clock
}

func New(st *store.Store, writer *eventlog.Writer, g *gate.Gate) *Runner {
	return &Runner{store: st, writer: writer, gate: g, clock: ids.SystemClock{}}
}

func (r *Runner) WithClock(clock ids.Clock) *Runner {
	r.clock = clock
	return r
}

// Run acquires a Gate permit, spawns the provider, and blocks until the
// process exits, the timeout elapses, or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeOneshot
	}

	release, err := r.gate.Acquire(ctx)
	if err != nil {
		return Result{Code: coreerr.Generic}, coreerr.Wrap(coreerr.Generic, err)
	}
	defer release()

	argv := provider.Render(req.Template, mode, req.Render)
	start := r.clock.Now()

	r.append(req, eventlog.EventStart, "", nil, nil)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(argv[0], argv[1:]...)
	process.ConfigureProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return r.fail(req, coreerr.Generic, start, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return r.fail(req, coreerr.Generic, start, err)
	}

	if startErr := cmd.Start(); startErr != nil {
		if errors.Is(startErr, exec.ErrNotFound) {
			return r.fail(req, coreerr.ProviderUnavailable, start, startErr)
		}
		return r.fail(req, coreerr.Generic, start, startErr)
	}

	registry := process.NewRegistry()
	registry.Register(cmd.Process.Pid, process.GroupID(cmd.Process.Pid), req.Template.Command)

	firstLine := true
	touchedSession := func() {
		if firstLine && req.SessionID != "" {
			firstLine = false
			_ = r.store.TouchSession(context.Background(), req.SessionID, req.ProviderSessionID)
		}
	}

	var aggregated, stderrText string
	done := make(chan error, 1)
	var stdoutDone, stderrDone = make(chan struct{}), make(chan struct{})

	go func() {
		defer close(stdoutDone)
		aggregated = r.drainStdout(req, stdout, &touchedSession)
	}()
	go func() {
		defer close(stderrDone)
		stderrText = r.drainStderr(req, stderr, &touchedSession)
	}()

	go func() { done <- cmd.Wait() }()

	select {
	case waitErr := <-done:
		<-stdoutDone
		<-stderrDone
		return r.finish(req, start, cmd, waitErr, aggregated, stderrText)
	case <-runCtx.Done():
		stopCtx, stopCancel := context.WithTimeout(context.Background(), terminationGrace+time.Second)
		_ = registry.StopAll(stopCtx)
		stopCancel()
		<-stdoutDone
		<-stderrDone
		<-done
		return r.fail(req, coreerr.Timeout, start, runCtx.Err())
	}
}

func (r *Runner) drainStdout(req Request, rd io.Reader, touched *func()) string {
	var text string
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		(*touched)()
		line := scanner.Text()
		fragment := line
		if req.Template.Family == provider.FamilyCursorLike {
			if parsed, done, err := provider.ParseStreamLine([]byte(line)); err == nil {
				fragment = parsed
				if done {
					r.append(req, eventlog.EventStdoutLine, fragment, nil, nil)
					text += fragment
					continue
				}
			}
		}
		text += fragment
		r.append(req, eventlog.EventStdoutLine, fragment, nil, nil)
	}
	return text
}

func (r *Runner) drainStderr(req Request, rd io.Reader, touched *func()) string {
	var text string
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		(*touched)()
		line := scanner.Text()
		text += line + "\n"
		r.append(req, eventlog.EventStderrLine, line, nil, nil)
	}
	return text
}

func (r *Runner) finish(req Request, start time.Time, cmd *exec.Cmd, waitErr error, text, stderrText string) (Result, error) {
	durMS := r.clock.Now().Sub(start).Milliseconds()
	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			r.append(req, eventlog.EventEnd, "", intPtr(1), &durMS)
			return Result{Code: coreerr.Generic, ExitCode: 1, DurationMS: durMS, Stderr: eventlog.StripEscapeSequences(stderrText), Text: text}, coreerr.Wrap(coreerr.Generic, waitErr)
		}
	}

	r.append(req, eventlog.EventEnd, "", &exitCode, &durMS)

	if exitCode != 0 {
		return Result{Code: coreerr.ProviderCLIError, ExitCode: exitCode, DurationMS: durMS, Stderr: eventlog.StripEscapeSequences(stderrText), Text: text},
			coreerr.Wrapf(coreerr.ProviderCLIError, "provider exited with status %d: %s", exitCode, eventlog.StripEscapeSequences(stderrText))
	}
	return Result{Code: coreerr.OK, ExitCode: 0, DurationMS: durMS, Stderr: eventlog.StripEscapeSequences(stderrText), Text: text}, nil
}

func (r *Runner) fail(req Request, code coreerr.Code, start time.Time, cause error) (Result, error) {
	durMS := r.clock.Now().Sub(start).Milliseconds()
	exitCode := -1
	r.append(req, eventlog.EventEnd, "", &exitCode, &durMS)
	return Result{Code: code, ExitCode: exitCode, DurationMS: durMS}, coreerr.Wrap(code, cause)
}

func (r *Runner) append(req Request, event, text string, exitCode *int, durMS *int64) {
	if r.writer == nil {
		return
	}
	rec := eventlog.NewRecord(req.ProjectID, req.Role, req.AgentID, req.Template.Key, eventlog.DirectionAgent, event).
		WithCorrelation(req.SessionID, req.BroadcastID, req.MessageID)
	if text != "" {
		rec = rec.WithText(text)
	}
	if exitCode != nil {
		rec = rec.WithExitCode(*exitCode)
	}
	if durMS != nil {
		rec = rec.WithDuration(*durMS)
	}
	_ = r.writer.Append(rec)
}

func intPtr(v int) *int { return &v }
