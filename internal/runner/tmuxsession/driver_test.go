package tmuxsession

import (
	"errors"
	"sync"
	"testing"

	"multiagents/internal/coreerr"
	"multiagents/internal/runner/tmux"
)

type fakeClient struct {
	sessions        map[string]bool
	windows         map[string]bool
	createSessErr   error
	createWindowErr error
	killWindowErr   error
	sendKeysCalls   []string
	pipePaneCalls   []string
	failuresLeft    int
}

func newFakeClient() *fakeClient {
	return &fakeClient{sessions: map[string]bool{}, windows: map[string]bool{}}
}

func (f *fakeClient) maybeFail() error {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return errors.New("transient tmux failure")
	}
	return nil
}

func (f *fakeClient) CreateSession(name string, _ []string) error {
	if err := f.maybeFail(); err != nil {
		return err
	}
	if f.createSessErr != nil {
		return f.createSessErr
	}
	f.sessions[name] = true
	return nil
}

func (f *fakeClient) CreateWindow(sessionName, windowName string, _ []string) error {
	if err := f.maybeFail(); err != nil {
		return err
	}
	if f.createWindowErr != nil {
		return f.createWindowErr
	}
	f.windows[sessionName+":"+windowName] = true
	return nil
}

func (f *fakeClient) HasSession(name string) (bool, error) {
	return f.sessions[name], nil
}

func (f *fakeClient) HasWindow(sessionName, windowName string) (bool, error) {
	return f.windows[sessionName+":"+windowName], nil
}

func (f *fakeClient) KillWindow(target string) error {
	if f.killWindowErr != nil {
		return f.killWindowErr
	}
	delete(f.windows, target)
	return nil
}

func (f *fakeClient) SendKeys(target string, keys ...string) error {
	f.sendKeysCalls = append(f.sendKeysCalls, target)
	return nil
}

func (f *fakeClient) PipePane(target, command string) error {
	f.pipePaneCalls = append(f.pipePaneCalls, target)
	return nil
}

func withFakeDriver(f *fakeClient) *Driver {
	return &Driver{client: f}
}

func TestEnsureSessionCreatesOnlyOnce(t *testing.T) {
	f := newFakeClient()
	d := withFakeDriver(f)

	if err := d.EnsureSession("acme"); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if !f.sessions["proj:acme"] {
		t.Fatal("expected session to be created")
	}

	f.createSessErr = errors.New("should not be called again")
	if err := d.EnsureSession("acme"); err != nil {
		t.Fatalf("ensure session (idempotent): %v", err)
	}
}

func TestEnsureWindowCreatesSessionAndWindow(t *testing.T) {
	f := newFakeClient()
	d := withFakeDriver(f)

	created, err := d.EnsureWindow("acme", "backend", "ada", []string{"claude"})
	if err != nil {
		t.Fatalf("ensure window: %v", err)
	}
	if !created {
		t.Fatal("expected created=true for a fresh window")
	}
	if !f.windows["proj:acme:backend:ada"] {
		t.Fatalf("expected window proj:acme:backend:ada, got %v", f.windows)
	}
}

func TestEnsureWindowReusesExistingWindow(t *testing.T) {
	f := newFakeClient()
	f.sessions["proj:acme"] = true
	f.windows["proj:acme:backend:ada"] = true
	d := withFakeDriver(f)

	f.createWindowErr = errors.New("should not create again")
	created, err := d.EnsureWindow("acme", "backend", "ada", []string{"claude"})
	if err != nil {
		t.Fatalf("ensure window: %v", err)
	}
	if created {
		t.Fatal("expected created=false when the window already existed")
	}
}

func TestHasWindowReflectsExistence(t *testing.T) {
	f := newFakeClient()
	f.windows["proj:acme:backend:ada"] = true
	d := withFakeDriver(f)

	exists, err := d.HasWindow("acme", "backend", "ada")
	if err != nil {
		t.Fatalf("has window: %v", err)
	}
	if !exists {
		t.Fatal("expected existing window to be reported")
	}

	exists, err = d.HasWindow("acme", "backend", "someone-else")
	if err != nil {
		t.Fatalf("has window: %v", err)
	}
	if exists {
		t.Fatal("expected missing window to be reported as absent")
	}
}

func TestStopWindowMissingReturnsWarning(t *testing.T) {
	f := newFakeClient()
	f.sessions["proj:acme"] = true
	d := withFakeDriver(f)

	warning, err := d.StopWindow("acme", "backend", "ada")
	if err != nil {
		t.Fatalf("stop window: %v", err)
	}
	if !warning {
		t.Fatal("expected warning=true for a missing window")
	}
}

func TestStopWindowKillsExistingWindow(t *testing.T) {
	f := newFakeClient()
	f.windows["proj:acme:backend:ada"] = true
	d := withFakeDriver(f)

	warning, err := d.StopWindow("acme", "backend", "ada")
	if err != nil {
		t.Fatalf("stop window: %v", err)
	}
	if warning {
		t.Fatal("expected no warning when a window was actually killed")
	}
	if f.windows["proj:acme:backend:ada"] {
		t.Fatal("expected window removed")
	}
}

func TestSendKeysTargetsRoleAgentWindow(t *testing.T) {
	f := newFakeClient()
	d := withFakeDriver(f)

	if err := d.SendKeys("acme", "backend", "ada", "hello"); err != nil {
		t.Fatalf("send keys: %v", err)
	}
	if len(f.sendKeysCalls) != 1 || f.sendKeysCalls[0] != "proj:acme:backend:ada" {
		t.Fatalf("unexpected send-keys target: %v", f.sendKeysCalls)
	}
}

func TestOperationsRetryOnceBeforeFailing(t *testing.T) {
	f := newFakeClient()
	f.failuresLeft = 1
	d := withFakeDriver(f)

	if err := d.EnsureSession("acme"); err != nil {
		t.Fatalf("expected the single transient failure to be absorbed by the retry: %v", err)
	}
}

func TestOperationsClassifyPersistentFailureAsMultiplexerError(t *testing.T) {
	f := newFakeClient()
	f.failuresLeft = 5
	d := withFakeDriver(f)

	err := d.EnsureSession("acme")
	if err == nil {
		t.Fatal("expected error")
	}
	if coreerr.CodeOf(err) != coreerr.MultiplexerError {
		t.Fatalf("expected multiplexer_error, got %v", coreerr.CodeOf(err))
	}
}

func TestOperationsClassifyTimeoutErrors(t *testing.T) {
	f := &fakeClient{sessions: map[string]bool{}, windows: map[string]bool{}, createSessErr: tmux.ErrTimeout}
	d := withFakeDriver(f)

	err := d.EnsureSession("acme")
	if err == nil {
		t.Fatal("expected error")
	}
	if coreerr.CodeOf(err) != coreerr.Timeout {
		t.Fatalf("expected timeout, got %v", coreerr.CodeOf(err))
	}
}

func TestEnsureWindowSerializesConcurrentCallers(t *testing.T) {
	f := newFakeClient()
	d := &Driver{client: f, lockDir: t.TempDir()}

	const callers = 8
	var wg sync.WaitGroup
	createdCount := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := d.EnsureWindow("acme", "backend", "ada", []string{"claude"})
			if err != nil {
				t.Errorf("ensure window: %v", err)
				return
			}
			createdCount[i] = created
		}(i)
	}
	wg.Wait()

	got := 0
	for _, created := range createdCount {
		if created {
			got++
		}
	}
	if got != 1 {
		t.Fatalf("expected exactly one caller to create the window, got %d of %d", got, callers)
	}
	if len(f.windows) != 1 {
		t.Fatalf("expected exactly one window to exist, got %v", f.windows)
	}
}

func TestAttachCommandOutsideTmux(t *testing.T) {
	got := AttachCommand(false, "acme", "", "")
	want := []string{"tmux", "attach", "-t", "proj:acme"}
	assertStringSlice(t, got, want)
}

func TestAttachCommandInsideTmuxSelectsWindow(t *testing.T) {
	got := AttachCommand(true, "acme", "backend", "ada")
	want := []string{"tmux", "select-window", "-t", "backend:ada"}
	assertStringSlice(t, got, want)
}

func assertStringSlice(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("unexpected command: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected command[%d]: got %q want %q", i, got[i], want[i])
		}
	}
}
