package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/debemdeboas/blockpress/internal/model"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every callback that came due, outside
// the clock's lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeInstance struct {
	mu         sync.Mutex
	draft      model.Draft
	saveErr    error
	destroyErr error
	saves      int
	destroyed  int

	// When set, Save signals saveStarted and waits on saveRelease.
	saveStarted chan struct{}
	saveRelease chan struct{}
}

func (f *fakeInstance) Save(ctx context.Context) (model.Draft, error) {
	f.mu.Lock()
	f.saves++
	started, release := f.saveStarted, f.saveRelease
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft, f.saveErr
}

func (f *fakeInstance) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed++
	return f.destroyErr
}

func (f *fakeInstance) setDraft(d model.Draft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = d
}

func (f *fakeInstance) counts() (saves, destroyed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves, f.destroyed
}

// recorder is a factory that hands out fakeInstances and keeps the callbacks
// it was given.
type recorder struct {
	mu        sync.Mutex
	calls     int
	instances []*fakeInstance
	callbacks []Callbacks
	opts      []Options
	readyNow  bool
	err       error
}

func (r *recorder) factory(ctx context.Context, opts Options, cb Callbacks) (Instance, error) {
	r.mu.Lock()
	r.calls++
	r.callbacks = append(r.callbacks, cb)
	r.opts = append(r.opts, opts)
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return nil, err
	}
	inst := &fakeInstance{draft: opts.Data}
	r.instances = append(r.instances, inst)
	readyNow := r.readyNow
	r.mu.Unlock()

	if readyNow {
		cb.OnReady()
	}
	return inst, nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *recorder) last() (*fakeInstance, Callbacks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instances[len(r.instances)-1], r.callbacks[len(r.callbacks)-1]
}

func publishable() model.Draft {
	return model.Draft{Blocks: []model.Block{
		model.NewHeader("My Title", 1),
		model.NewParagraph(strings.Repeat("p", 50)),
	}}
}

func newTestSession(r *recorder) (*Session, *fakeClock) {
	clock := &fakeClock{}
	s := NewSession("editorjs", r.factory, WithClock(clock))
	return s, clock
}

func TestSessionDebouncedCreation(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)

	if s.State() != Uninitialized {
		t.Fatalf("Expected uninitialized session, got %s", s.State())
	}

	s.SetUserPresent(true)
	if s.State() != Initializing {
		t.Fatalf("Expected initializing after user appears, got %s", s.State())
	}

	clock.Advance(DefaultDebounce - time.Millisecond)
	if r.count() != 0 {
		t.Fatalf("Expected no instance before the debounce elapses, got %d", r.count())
	}

	clock.Advance(time.Millisecond)
	if r.count() != 1 {
		t.Fatalf("Expected one instance after the debounce, got %d", r.count())
	}
	if s.State() != Ready {
		t.Errorf("Expected ready session, got %s", s.State())
	}

	opts := r.opts[0]
	if opts.Holder != "editorjs" || !opts.Autofocus {
		t.Errorf("Unexpected factory options %+v", opts)
	}
	if opts.Data.Len() != 1 || opts.Data.Blocks[0].Type != model.BlockHeader {
		t.Errorf("Expected initial draft with a single header, got %+v", opts.Data)
	}
	if _, ok := opts.Tools["header"]; !ok {
		t.Error("Expected default header tool to be configured")
	}
}

func TestSessionRepeatedPresenceIsIgnored(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)

	s.SetUserPresent(true)
	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)

	if r.count() != 1 {
		t.Errorf("Expected exactly one instance, got %d", r.count())
	}
}

func TestSessionRapidToggleConstructsOnce(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)

	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce / 2)
	s.SetUserPresent(false)
	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce / 2)
	s.SetUserPresent(false)
	s.SetUserPresent(true)

	if r.count() != 0 {
		t.Fatalf("Expected no instance while toggling, got %d", r.count())
	}

	clock.Advance(DefaultDebounce)
	clock.Advance(DefaultDebounce)

	if r.count() != 1 {
		t.Errorf("Expected one instance after toggling settles, got %d", r.count())
	}
	if s.State() != Ready {
		t.Errorf("Expected ready session, got %s", s.State())
	}
}

func TestSessionCloseBeforeTimerFires(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)

	s.SetUserPresent(true)
	if err := s.Close(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if clock.Pending() != 0 {
		t.Errorf("Expected pending timer to be cancelled, got %d", clock.Pending())
	}

	clock.Advance(10 * DefaultDebounce)
	if r.count() != 0 {
		t.Errorf("Expected no instance after close, got %d", r.count())
	}
	if s.State() != Destroyed {
		t.Errorf("Expected destroyed session, got %s", s.State())
	}

	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	if r.count() != 0 {
		t.Error("Expected a closed session to ignore the user signal")
	}
}

func TestSessionValidityTracking(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)

	var (
		mu      sync.Mutex
		changes []bool
	)
	unsubscribe := s.OnValidityChange(func(can bool) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, can)
	})

	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	inst, cb := r.last()

	if s.CanPublish() {
		t.Fatal("Expected initial draft to be unpublishable")
	}

	inst.setDraft(publishable())
	cb.OnChange()
	if !s.CanPublish() {
		t.Fatal("Expected publishable draft to open the gate")
	}

	// Same content again does not notify twice.
	cb.OnChange()

	inst.setDraft(model.Draft{Blocks: []model.Block{model.NewHeader("My Title", 1)}})
	cb.OnChange()
	if s.CanPublish() {
		t.Fatal("Expected gate to close when the paragraph is removed")
	}

	unsubscribe()
	inst.setDraft(publishable())
	cb.OnChange()

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Errorf("Expected [true false] notifications, got %v", changes)
	}
}

func TestSessionSaveErrorKeepsGate(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)
	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	inst, cb := r.last()

	inst.setDraft(publishable())
	cb.OnChange()

	inst.mu.Lock()
	inst.saveErr = errors.New("boom")
	inst.mu.Unlock()
	cb.OnChange()

	if !s.CanPublish() {
		t.Error("Expected a failed save to leave the gate unchanged")
	}
}

func TestSessionLateChangeAfterTeardown(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)
	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	inst, cb := r.last()

	if err := s.Close(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	savesBefore, destroyed := inst.counts()
	if destroyed != 1 {
		t.Fatalf("Expected instance to be destroyed once, got %d", destroyed)
	}

	inst.setDraft(publishable())
	cb.OnChange()

	saves, _ := inst.counts()
	if saves != savesBefore {
		t.Error("Expected change events after teardown to be ignored")
	}
	if s.CanPublish() {
		t.Error("Expected a destroyed session never to allow publishing")
	}
}

func TestSessionInFlightChangeDiscardedOnTeardown(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)
	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	inst, cb := r.last()

	inst.setDraft(publishable())
	inst.mu.Lock()
	inst.saveStarted = make(chan struct{})
	inst.saveRelease = make(chan struct{})
	started, release := inst.saveStarted, inst.saveRelease
	inst.mu.Unlock()

	var notified atomic.Bool
	s.OnValidityChange(func(bool) { notified.Store(true) })

	done := make(chan struct{})
	go func() {
		cb.OnChange()
		close(done)
	}()

	<-started
	s.SetUserPresent(false)
	close(release)
	<-done

	if s.CanPublish() {
		t.Error("Expected result of an in-flight save to be discarded")
	}
	if notified.Load() {
		t.Error("Expected no validity notification from a torn-down session")
	}
	if s.State() != Destroyed {
		t.Errorf("Expected destroyed session, got %s", s.State())
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)
	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	inst, _ := r.last()

	if err := s.Close(); err != nil {
		t.Fatalf("Unexpected error on first close: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("Expected repeated close to be a no-op, got %v", err)
		}
	}

	if _, destroyed := inst.counts(); destroyed != 1 {
		t.Errorf("Expected instance destroyed exactly once, got %d", destroyed)
	}
}

func TestSessionDestructionFailure(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)
	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	inst, _ := r.last()

	inst.mu.Lock()
	inst.destroyErr = errors.New("detached node")
	inst.mu.Unlock()

	err := s.Close()
	var derr *DestructionError
	if !errors.As(err, &derr) {
		t.Fatalf("Expected DestructionError, got %v", err)
	}
	if !errors.As(s.LastError(), &derr) {
		t.Errorf("Expected LastError to record the destruction failure, got %v", s.LastError())
	}
	if s.State() != Destroyed {
		t.Errorf("Expected destroyed session, got %s", s.State())
	}

	if _, err := s.Save(context.Background()); !errors.Is(err, ErrNoInstance) {
		t.Errorf("Expected ErrNoInstance after failed destroy, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Expected second close to be a no-op, got %v", err)
	}
	if _, destroyed := inst.counts(); destroyed != 1 {
		t.Errorf("Expected destroy not to be retried, got %d calls", destroyed)
	}
}

func TestSessionInitializationFailure(t *testing.T) {
	r := &recorder{readyNow: true, err: errors.New("holder not found")}
	s, clock := newTestSession(r)

	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)

	if s.State() != Uninitialized {
		t.Fatalf("Expected uninitialized after failed creation, got %s", s.State())
	}
	var ierr *InitializationError
	if !errors.As(s.LastError(), &ierr) {
		t.Fatalf("Expected InitializationError, got %v", s.LastError())
	}

	r.mu.Lock()
	r.err = nil
	r.mu.Unlock()

	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	if s.State() != Ready {
		t.Errorf("Expected retry to reach ready, got %s", s.State())
	}
}

func TestSessionFactoryPanic(t *testing.T) {
	s, clock := newTestSession(&recorder{})
	s.factory = func(context.Context, Options, Callbacks) (Instance, error) {
		panic("surface exploded")
	}

	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)

	var ierr *InitializationError
	if !errors.As(s.LastError(), &ierr) {
		t.Fatalf("Expected InitializationError, got %v", s.LastError())
	}
	if s.State() != Uninitialized {
		t.Errorf("Expected uninitialized, got %s", s.State())
	}
}

func TestSessionReadyAfterFactoryReturns(t *testing.T) {
	r := &recorder{}
	s, clock := newTestSession(r)

	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)

	if s.State() != Initializing {
		t.Fatalf("Expected initializing until the instance signals ready, got %s", s.State())
	}
	if _, err := s.Save(context.Background()); !errors.Is(err, ErrNoInstance) {
		t.Errorf("Expected ErrNoInstance before ready, got %v", err)
	}

	_, cb := r.last()
	cb.OnReady()
	if s.State() != Ready {
		t.Errorf("Expected ready, got %s", s.State())
	}

	d, err := s.Save(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.Len() != 1 {
		t.Errorf("Expected initial draft, got %d blocks", d.Len())
	}
}

func TestSessionLogoutAndReturn(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)

	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	first, _ := r.last()

	s.SetUserPresent(false)
	if s.State() != Destroyed {
		t.Fatalf("Expected destroyed after logout, got %s", s.State())
	}
	if _, destroyed := first.counts(); destroyed != 1 {
		t.Errorf("Expected first instance destroyed, got %d", destroyed)
	}

	s.SetUserPresent(true)
	if s.State() != Initializing {
		t.Fatalf("Expected re-initialization when the user returns, got %s", s.State())
	}
	clock.Advance(DefaultDebounce)
	if s.State() != Ready || r.count() != 2 {
		t.Errorf("Expected a fresh ready instance, got %s with %d constructions", s.State(), r.count())
	}
}

func TestSessionLivenessIsPerInstance(t *testing.T) {
	r := &recorder{readyNow: true}
	s, clock := newTestSession(r)

	if s.Liveness()() {
		t.Error("Expected no liveness before the editor is ready")
	}

	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	live := s.Liveness()
	if !live() {
		t.Fatal("Expected the ready instance to be live")
	}

	s.SetUserPresent(false)
	if live() {
		t.Error("Expected liveness to end with the instance")
	}

	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)
	if s.State() != Ready {
		t.Fatalf("Expected a rebuilt ready session, got %s", s.State())
	}
	if live() {
		t.Error("Expected a rebuilt instance not to revive an earlier check")
	}

	current := s.Liveness()
	if !current() {
		t.Error("Expected the rebuilt instance to be live")
	}
	s.Close()
	if current() {
		t.Error("Expected liveness to end on close")
	}
}

func TestSessionSupersededConstruction(t *testing.T) {
	clock := &fakeClock{}

	var (
		mu          sync.Mutex
		calls       int
		active      int
		maxActive   int
		instances   []*fakeInstance
		firstCtx    context.Context
		started     = make(chan struct{})
		release     = make(chan struct{})
		firstReturn = make(chan struct{})
	)

	factory := func(ctx context.Context, opts Options, cb Callbacks) (Instance, error) {
		mu.Lock()
		calls++
		n := calls
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		if n == 1 {
			firstCtx = ctx
			close(started)
			<-release
		}

		inst := &fakeInstance{draft: opts.Data}
		mu.Lock()
		instances = append(instances, inst)
		active--
		mu.Unlock()

		if n == 1 {
			close(firstReturn)
		} else {
			cb.OnReady()
		}
		return inst, nil
	}

	s := NewSession("editorjs", factory, WithClock(clock))
	s.SetUserPresent(true)

	done := make(chan struct{})
	go func() {
		clock.Advance(DefaultDebounce)
		close(done)
	}()
	<-started

	s.SetUserPresent(false)
	if firstCtx.Err() == nil {
		t.Error("Expected the superseded attempt's context to be cancelled")
	}

	s.SetUserPresent(true)
	clock.Advance(DefaultDebounce)

	mu.Lock()
	if calls != 1 {
		t.Errorf("Expected second construction to wait for the first, got %d calls", calls)
	}
	mu.Unlock()

	close(release)
	<-firstReturn
	<-done

	mu.Lock()
	defer mu.Unlock()

	if calls != 2 {
		t.Fatalf("Expected two constructions, got %d", calls)
	}
	if maxActive != 1 {
		t.Errorf("Expected constructions never to overlap, got %d at once", maxActive)
	}
	if _, destroyed := instances[0].counts(); destroyed != 1 {
		t.Errorf("Expected stray instance to be destroyed, got %d", destroyed)
	}
	if s.State() != Ready {
		t.Errorf("Expected ready session, got %s", s.State())
	}
}

func TestStateString(t *testing.T) {
	testCases := map[State]string{
		Uninitialized: "uninitialized",
		Initializing:  "initializing",
		Ready:         "ready",
		Destroyed:     "destroyed",
		State(9):      "state(9)",
	}
	for state, want := range testCases {
		if got := state.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}

func TestSessionOptions(t *testing.T) {
	tools := map[string]ToolConfig{"paragraph": {Class: "Paragraph"}}
	s := NewSession("holder", nil, WithDebounce(time.Second), WithTools(tools), WithAutofocus(false))

	if s.debounce != time.Second {
		t.Errorf("Expected debounce 1s, got %v", s.debounce)
	}
	if s.autofocus {
		t.Error("Expected autofocus to be disabled")
	}
	if _, ok := s.tools["paragraph"]; !ok {
		t.Error("Expected custom tools to be used")
	}
	if s.ID() == "" {
		t.Error("Expected session id to be set")
	}
}

func TestDefaultTools(t *testing.T) {
	tools := DefaultTools("https://api.example/posts/upload-image/", "https://api.example/posts/fetch-url/")

	header, ok := tools["header"]
	if !ok || header.Class != "Header" || !header.InlineToolbar {
		t.Fatalf("Unexpected header tool %+v", header)
	}
	if header.Config["defaultLevel"] != 1 {
		t.Errorf("Expected default level 1, got %v", header.Config["defaultLevel"])
	}

	image := tools["image"]
	endpoints, ok := image.Config["endpoints"].(map[string]string)
	if !ok {
		t.Fatalf("Expected endpoints map, got %T", image.Config["endpoints"])
	}
	if endpoints["byFile"] != "https://api.example/posts/upload-image/" {
		t.Errorf("Unexpected upload endpoint %q", endpoints["byFile"])
	}
	if image.Config["types"] != "image/*" {
		t.Errorf("Expected image/* filter, got %v", image.Config["types"])
	}

	for _, name := range []string{"code", "quote", "embed"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("Expected %s tool", name)
		}
	}
}
