// Package tmuxsession is the Terminal Multiplexer Driver: it maps
// (project, role, agent) onto tmux's session/window addressing scheme and
// wraps every call in a fixed timeout with a one-shot retry on failure.
package tmuxsession

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"multiagents/internal/coreerr"
	"multiagents/internal/fsutil"
	"multiagents/internal/runner/tmux"
)

// Client defines the tmux operations the driver depends on.
type Client interface {
	CreateSession(name string, command []string) error
	CreateWindow(sessionName, windowName string, command []string) error
	HasSession(name string) (bool, error)
	HasWindow(sessionName, windowName string) (bool, error)
	KillWindow(target string) error
	SendKeys(target string, keys ...string) error
	PipePane(target, command string) error
}

var newClient = func(timeout time.Duration) Client {
	return tmux.NewClientWithTimeout(timeout)
}

const retryBackoff = 100 * time.Millisecond

// Driver executes Terminal Multiplexer Driver operations against a single
// tmux server.
type Driver struct {
	client  Client
	lockDir string
}

// New returns a driver whose calls are each bounded by a 5s timeout.
// lockDir holds the per-(project, role, agent) file locks EnsureWindow and
// EnablePanePipe take out; an empty lockDir falls back to a directory
// under os.TempDir() so a zero-value Driver still serializes correctly.
func New(lockDir string) *Driver {
	return &Driver{client: newClient(tmux.DefaultCallTimeout), lockDir: lockDir}
}

func (d *Driver) windowLock(project, role, agent string) (*fsutil.FileLock, error) {
	dir := d.lockDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "multiagents-tmux-locks")
	}
	return fsutil.NewFileLock(dir, sessionName(project)+":"+windowName(role, agent))
}

func sessionName(project string) string {
	return "proj:" + project
}

func windowName(role, agent string) string {
	return role + ":" + agent
}

func target(project, role, agent string) string {
	return sessionName(project) + ":" + windowName(role, agent)
}

// EnsureSession creates the project's tmux session, detached, if it does
// not already exist.
func (d *Driver) EnsureSession(project string) error {
	name := sessionName(project)
	exists, err := d.withRetryBool(func() (bool, error) { return d.client.HasSession(name) })
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return d.withRetry(func() error { return d.client.CreateSession(name, nil) })
}

// EnsureWindow creates the agent's window running command if absent,
// reusing it otherwise. A missing session is created first. created
// reports whether this call actually created the window, letting
// callers distinguish a fresh start from a reused one (e.g. to decide
// whether to emit a `start` event).
//
// Every separate `gestalt-agent run` invocation is its own OS process, so
// the HasWindow-then-CreateWindow check below is guarded by a
// cross-process file lock keyed on (project, role, agent): without it,
// two processes racing to start the same agent could both observe a
// missing window and both create one, leaving two windows behind.
func (d *Driver) EnsureWindow(project, role, agent string, command []string) (created bool, err error) {
	lock, err := d.windowLock(project, role, agent)
	if err != nil {
		return false, coreerr.Wrap(coreerr.MultiplexerError, err)
	}
	if err := lock.Lock(); err != nil {
		return false, coreerr.Wrap(coreerr.MultiplexerError, err)
	}
	defer lock.Unlock()

	if err := d.EnsureSession(project); err != nil {
		return false, err
	}
	session := sessionName(project)
	window := windowName(role, agent)
	exists, err := d.withRetryBool(func() (bool, error) { return d.client.HasWindow(session, window) })
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := d.withRetry(func() error { return d.client.CreateWindow(session, window, command) }); err != nil {
		// a race between session and window creation is permitted one retry
		exists, existsErr := d.client.HasWindow(session, window)
		if existsErr == nil && exists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// HasWindow reports whether the agent's window currently exists.
func (d *Driver) HasWindow(project, role, agent string) (bool, error) {
	session := sessionName(project)
	window := windowName(role, agent)
	exists, err := d.withRetryBool(func() (bool, error) { return d.client.HasWindow(session, window) })
	if err != nil {
		return false, err
	}
	return exists, nil
}

// EnablePanePipe installs an output-only pipe from the agent's pane to
// path, appending. Re-installation is a no-op: tmux's pipe-pane toggles,
// so the driver only installs when no pipe is active. It takes the same
// per-(project, role, agent) file lock EnsureWindow does, since
// pipe-pane's toggle behavior means a second concurrent call for the
// same pane would disable the first call's pipe instead of being a
// harmless no-op.
func (d *Driver) EnablePanePipe(project, role, agent, path string) error {
	lock, err := d.windowLock(project, role, agent)
	if err != nil {
		return coreerr.Wrap(coreerr.MultiplexerError, err)
	}
	if err := lock.Lock(); err != nil {
		return coreerr.Wrap(coreerr.MultiplexerError, err)
	}
	defer lock.Unlock()

	cmd := fmt.Sprintf("cat >> %s", shellQuote(path))
	return d.withRetry(func() error {
		return d.client.PipePane(target(project, role, agent), cmd)
	})
}

// SendKeys writes text followed by Enter to the agent's pane.
func (d *Driver) SendKeys(project, role, agent, text string) error {
	return d.withRetry(func() error {
		return d.client.SendKeys(target(project, role, agent), text, "Enter")
	})
}

// StopWindow kills the agent's window. A missing window is reported as
// success with warning=true rather than an error, matching its
// idempotent semantics.
func (d *Driver) StopWindow(project, role, agent string) (warning bool, err error) {
	session := sessionName(project)
	window := windowName(role, agent)
	exists, err := d.withRetryBool(func() (bool, error) { return d.client.HasWindow(session, window) })
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	return false, d.withRetry(func() error { return d.client.KillWindow(target(project, role, agent)) })
}

// AttachCommand returns the command the caller should run to attach to
// the project's session, or to select the agent's window when already
// inside tmux.
func AttachCommand(insideTmux bool, project, role, agent string) []string {
	if insideTmux && role != "" && agent != "" {
		return []string{"tmux", "select-window", "-t", windowName(role, agent)}
	}
	return []string{"tmux", "attach", "-t", sessionName(project)}
}

func (d *Driver) withRetry(op func() error) error {
	err := op()
	if err == nil {
		return nil
	}
	time.Sleep(retryBackoff)
	if retryErr := op(); retryErr == nil {
		return nil
	} else {
		err = retryErr
	}
	return classify(err)
}

func (d *Driver) withRetryBool(op func() (bool, error)) (bool, error) {
	result, err := op()
	if err == nil {
		return result, nil
	}
	time.Sleep(retryBackoff)
	result, err = op()
	if err != nil {
		return false, classify(err)
	}
	return result, nil
}

func classify(err error) error {
	if errors.Is(err, tmux.ErrTimeout) {
		return coreerr.Wrap(coreerr.Timeout, err)
	}
	return coreerr.Wrap(coreerr.MultiplexerError, err)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
