package overlay

import (
	"errors"
	"image"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/region"
)

type fakeProcess struct {
	pid    int
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	killed bool
}

func (p *fakeProcess) Pid() int               { return p.pid }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }
func (p *fakeProcess) exit()                 { p.once.Do(func() { close(p.done) }) }

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exit()
	return nil
}

func (p *fakeProcess) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// fakeSpawner starts in-process children. Cooperative children watch the
// flag file the way the real child does; stubborn ones ignore it.
type fakeSpawner struct {
	stubborn bool
	err      error

	mu    sync.Mutex
	procs []*fakeProcess
	rects []image.Rectangle
}

func (s *fakeSpawner) Spawn(rect image.Rectangle, flagPath string) (Process, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	p := &fakeProcess{pid: 1000 + len(s.procs), done: make(chan struct{})}
	s.procs = append(s.procs, p)
	s.rects = append(s.rects, rect)
	s.mu.Unlock()

	if !s.stubborn {
		view := OpenFlagView(flagPath)
		go func() {
			for view.Active() {
				time.Sleep(5 * time.Millisecond)
			}
			p.exit()
		}()
	}
	return p, nil
}

type scanState bool

func (s scanState) Running() bool { return bool(s) }

func current(m *Manager) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

func defined() region.Region {
	return region.New(region.Point{X: 300, Y: 200}, region.Point{X: 10, Y: 20})
}

func TestToggleTwiceClearsFlagOnce(t *testing.T) {
	sp := &fakeSpawner{}
	m := NewManager(sp, scanState(false), WithFlagDir(t.TempDir()))

	shown, err := m.Toggle(defined())
	if err != nil || !shown {
		t.Fatalf("first Toggle = (%v, %v), want (true, nil)", shown, err)
	}
	h := current(m)
	if h == nil {
		t.Fatal("expected a live handle")
	}
	if h.Rect != image.Rect(10, 20, 300, 200) {
		t.Errorf("child rect = %v, want normalized", h.Rect)
	}

	shown, err = m.Toggle(defined())
	if err != nil || shown {
		t.Fatalf("second Toggle = (%v, %v), want (false, nil)", shown, err)
	}
	if m.Active() {
		t.Error("overlay should be hidden")
	}
	if h.Flag.Clears() != 1 {
		t.Errorf("flag cleared %d times, want 1", h.Flag.Clears())
	}
	if sp.procs[0].wasKilled() {
		t.Error("cooperative child should not be killed")
	}
	if _, err := os.Stat(h.Flag.Path()); !os.IsNotExist(err) {
		t.Error("flag file should be removed after hide")
	}
}

func TestHideKillsStubbornChild(t *testing.T) {
	sp := &fakeSpawner{stubborn: true}
	m := NewManager(sp, scanState(false), WithFlagDir(t.TempDir()), WithJoinTimeout(30*time.Millisecond))

	if err := m.Show(defined()); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	start := time.Now()
	if err := m.Hide(); err != nil {
		t.Errorf("Hide() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Hide took %v, should be bounded by the join timeout", elapsed)
	}
	if !sp.procs[0].wasKilled() {
		t.Error("stubborn child should be killed")
	}
	if m.Active() {
		t.Error("manager should be inactive after hide")
	}
}

func TestShowPreconditions(t *testing.T) {
	sp := &fakeSpawner{}

	m := NewManager(sp, scanState(false), WithFlagDir(t.TempDir()))
	if err := m.Show(region.Region{}); !apperrors.IsCode(err, apperrors.CodePrecondition) {
		t.Errorf("Show(undefined) = %v, want PRECONDITION_FAILED", err)
	}
	if _, err := m.Toggle(region.Region{}); !apperrors.IsCode(err, apperrors.CodePrecondition) {
		t.Errorf("Toggle(undefined) = %v, want PRECONDITION_FAILED", err)
	}

	scanning := NewManager(sp, scanState(true), WithFlagDir(t.TempDir()))
	if err := scanning.Show(defined()); !apperrors.IsCode(err, apperrors.CodePrecondition) {
		t.Errorf("Show while scanning = %v, want PRECONDITION_FAILED", err)
	}
	if len(sp.procs) != 0 {
		t.Errorf("spawned %d children, want 0", len(sp.procs))
	}
}

func TestShowRejectsZeroAreaRegion(t *testing.T) {
	sp := &fakeSpawner{}
	m := NewManager(sp, scanState(false), WithFlagDir(t.TempDir()))

	flat := []region.Region{
		region.New(region.Point{X: 100, Y: 20}, region.Point{X: 100, Y: 200}),
		region.New(region.Point{X: 10, Y: 50}, region.Point{X: 300, Y: 50}),
		region.New(region.Point{X: 7, Y: 7}, region.Point{X: 7, Y: 7}),
	}
	for _, r := range flat {
		if err := m.Show(r); !apperrors.IsCode(err, apperrors.CodePrecondition) {
			t.Errorf("Show(%v) = %v, want PRECONDITION_FAILED", r, err)
		}
		if shown, err := m.Toggle(r); shown || !apperrors.IsCode(err, apperrors.CodePrecondition) {
			t.Errorf("Toggle(%v) = (%v, %v), want (false, PRECONDITION_FAILED)", r, shown, err)
		}
	}
	if len(sp.procs) != 0 {
		t.Errorf("spawned %d children for empty regions, want 0", len(sp.procs))
	}
	if m.Active() {
		t.Error("manager should stay inactive")
	}
}

func TestShowReplacesExisting(t *testing.T) {
	sp := &fakeSpawner{}
	m := NewManager(sp, scanState(false), WithFlagDir(t.TempDir()))

	_ = m.Show(defined())
	first := current(m)
	_ = m.Show(region.New(region.Point{X: 0, Y: 0}, region.Point{X: 5, Y: 5}))
	defer m.Hide()

	if len(sp.procs) != 2 {
		t.Fatalf("spawned %d, want 2", len(sp.procs))
	}
	if first.Flag.Clears() != 1 {
		t.Error("replaced overlay should have its flag cleared")
	}
	select {
	case <-sp.procs[0].Done():
	default:
		t.Error("replaced child should have exited")
	}
}

func TestSpawnFailure(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(&fakeSpawner{err: errors.New("no such binary")}, scanState(false), WithFlagDir(dir))

	err := m.Show(defined())
	if !apperrors.IsCode(err, apperrors.CodeProcessLifecycle) {
		t.Errorf("Show() = %v, want PROCESS_LIFECYCLE", err)
	}
	if m.Active() {
		t.Error("failed show must leave the manager inactive")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("flag dir has %d leftovers", len(entries))
	}
}

func TestActiveReapsExitedChild(t *testing.T) {
	sp := &fakeSpawner{stubborn: true}
	m := NewManager(sp, scanState(false), WithFlagDir(t.TempDir()))
	_ = m.Show(defined())

	sp.procs[0].exit()
	if m.Active() {
		t.Error("a child that exited should not count as active")
	}
	if err := m.Hide(); err != nil {
		t.Errorf("Hide after reap = %v", err)
	}
}

func TestRectEncoding(t *testing.T) {
	r := image.Rect(10, 20, 300, 200)
	got, err := ParseRect(FormatRect(r))
	if err != nil || got != r {
		t.Errorf("ParseRect(FormatRect) = (%v, %v)", got, err)
	}
	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "5,5,5,5"} {
		if _, err := ParseRect(bad); err == nil {
			t.Errorf("ParseRect(%q) should fail", bad)
		}
	}
}

// Integration test - real child processes through ExecSpawner.
func TestExecSpawnerLifecycle(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh available")
	}

	// $4 is the flag path: sh -c SCRIPT sh --rect R --flag F
	polite := &ExecSpawner{Path: sh, Args: []string{"-c", `while [ "$(cat "$4" 2>/dev/null)" = 1 ]; do sleep 0.05; done`, "sh"}}
	m := NewManager(polite, scanState(false), WithFlagDir(t.TempDir()), WithJoinTimeout(2*time.Second))
	if err := m.Show(defined()); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	proc := current(m).Process
	if err := m.Hide(); err != nil {
		t.Errorf("Hide() error = %v", err)
	}
	select {
	case <-proc.Done():
	default:
		t.Error("polite child should have exited on its own")
	}

	stubborn := &ExecSpawner{Path: sh, Args: []string{"-c", "sleep 30", "sh"}}
	m = NewManager(stubborn, scanState(false), WithFlagDir(t.TempDir()), WithJoinTimeout(50*time.Millisecond))
	if err := m.Show(defined()); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	proc = current(m).Process
	_ = m.Hide()
	select {
	case <-proc.Done():
	case <-time.After(2 * time.Second):
		t.Error("stubborn child should have been killed")
	}
}
