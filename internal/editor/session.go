package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/blockpress/internal/model"
	"github.com/debemdeboas/blockpress/internal/validate"
)

type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Option func(*Session)

func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

func WithTools(tools map[string]ToolConfig) Option {
	return func(s *Session) { s.tools = tools }
}

func WithAutofocus(on bool) Option {
	return func(s *Session) { s.autofocus = on }
}

// Session owns at most one editor instance bound to a holder and keeps it in
// step with the presence of an authenticated user.
//
// Every schedule or teardown bumps gen. Timer, factory, readiness, change and
// save results carry the gen they were started under and are dropped when it
// no longer matches, so nothing from a torn-down attempt touches the session.
type Session struct {
	id        string
	holder    string
	tools     map[string]ToolConfig
	autofocus bool
	debounce  time.Duration
	factory   Factory
	clock     Clock
	log       zerolog.Logger

	mu           sync.Mutex
	state        State
	closed       bool
	gen          uint64
	timer        Timer
	ctx          context.Context
	cancel       context.CancelFunc
	constructing bool
	pendingStart bool
	readyEarly   bool
	inst         Instance
	onChange     func(gen uint64)
	canPublish   bool
	changeSeq    uint64
	appliedSeq   uint64
	lastErr      error
	observers    map[int]func(bool)
	nextObserver int
}

func NewSession(holder string, factory Factory, opts ...Option) *Session {
	s := &Session{
		id:        uuid.New().String(),
		holder:    holder,
		tools:     DefaultTools("", ""),
		autofocus: true,
		debounce:  DefaultDebounce,
		factory:   factory,
		clock:     SystemClock,
		observers: make(map[int]func(bool)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = editorLogger.With().Str("session_id", s.id).Str("holder", s.holder).Logger()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CanPublish is the publish gate. It is only ever true while Ready.
func (s *Session) CanPublish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Ready && s.canPublish
}

// Liveness captures the current instance and returns a check that stays true
// only while that same instance is still ready. A teardown or a rebuild after
// it makes the check false for good.
func (s *Session) Liveness() func() bool {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return gen == s.gen && s.state == Ready && !s.closed
	}
}

// LastError returns the most recent InitializationError or DestructionError.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// OnValidityChange registers fn to be called whenever CanPublish flips. The
// returned func removes it.
func (s *Session) OnValidityChange(fn func(bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// SetUserPresent feeds the authenticated-user signal into the session.
func (s *Session) SetUserPresent(present bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if !present {
		inst, cancel, flipped := s.teardownLocked()
		observers := s.observersLocked()
		s.mu.Unlock()

		s.log.Debug().Msg("No user found, tearing down editor")
		s.destroy(inst, cancel)
		if flipped {
			notify(observers, false)
		}
		return
	}

	switch s.state {
	case Initializing, Ready:
		s.mu.Unlock()
		return
	case Destroyed:
		s.state = Uninitialized
	}

	s.scheduleLocked()
	s.mu.Unlock()
}

// Close tears the session down for good. It is safe to call more than once;
// only the first call can return a DestructionError.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	inst, cancel, flipped := s.teardownLocked()
	s.state = Destroyed
	observers := s.observersLocked()
	s.mu.Unlock()

	err := s.destroy(inst, cancel)
	if flipped {
		notify(observers, false)
	}
	return err
}

// Save returns the instance's current content. If the session is torn down
// while the save is in flight the result is discarded.
func (s *Session) Save(ctx context.Context) (model.Draft, error) {
	s.mu.Lock()
	if s.state != Ready || s.inst == nil {
		s.mu.Unlock()
		return model.Draft{}, ErrNoInstance
	}
	gen, inst := s.gen, s.inst
	s.mu.Unlock()

	d, err := inst.Save(ctx)

	s.mu.Lock()
	alive := gen == s.gen && s.state == Ready
	s.mu.Unlock()

	if !alive {
		return model.Draft{}, ErrSessionDestroyed
	}
	if err != nil {
		return model.Draft{}, fmt.Errorf("saving editor content: %w", err)
	}
	return d, nil
}

func (s *Session) scheduleLocked() {
	s.gen++
	gen := s.gen
	s.state = Initializing
	s.timer = s.clock.AfterFunc(s.debounce, func() { s.fire(gen) })
	s.log.Debug().Uint64("gen", gen).Dur("debounce", s.debounce).Msg("Editor creation scheduled")
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != Initializing {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.constructing {
		// A superseded construction is still running; start once it returns.
		s.pendingStart = true
		s.mu.Unlock()
		return
	}
	ctx := s.beginConstructLocked()
	s.mu.Unlock()

	s.construct(ctx, gen)
}

func (s *Session) beginConstructLocked() context.Context {
	s.constructing = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s.ctx
}

func (s *Session) construct(ctx context.Context, gen uint64) {
	cb := Callbacks{
		OnReady:  func() { s.handleReady(gen) },
		OnChange: func() { s.handleChange(gen) },
	}
	opts := Options{
		Holder:    s.holder,
		Tools:     s.tools,
		Autofocus: s.autofocus,
		Data:      model.InitialDraft(),
	}

	inst, err := s.safeFactory(ctx, opts, cb)

	s.mu.Lock()
	s.constructing = false

	if gen != s.gen || s.state != Initializing {
		var (
			nextCtx context.Context
			nextGen uint64
		)
		restart := s.pendingStart && s.state == Initializing
		if restart {
			s.pendingStart = false
			nextGen = s.gen
			nextCtx = s.beginConstructLocked()
		}
		s.mu.Unlock()

		if inst != nil {
			s.log.Debug().Uint64("gen", gen).Msg("Discarding editor created by a superseded attempt")
			s.destroy(inst, nil)
		}
		if restart {
			s.construct(nextCtx, nextGen)
		}
		return
	}

	if err != nil {
		initErr := &InitializationError{Holder: s.holder, Err: err}
		s.state = Uninitialized
		s.lastErr = initErr
		cancel := s.cancel
		s.ctx, s.cancel = nil, nil
		s.readyEarly = false
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		s.log.Error().Err(initErr).Msg("Error creating editor")
		return
	}

	s.inst = inst
	if s.readyEarly {
		s.enterReadyLocked()
	}
	s.mu.Unlock()
}

func (s *Session) safeFactory(ctx context.Context, opts Options, cb Callbacks) (inst Instance, err error) {
	defer func() {
		if p := recover(); p != nil {
			inst, err = nil, fmt.Errorf("factory panicked: %v", p)
		}
	}()
	if s.factory == nil {
		return nil, fmt.Errorf("no editor factory configured")
	}
	inst, err = s.factory(ctx, opts, cb)
	if err == nil && inst == nil {
		err = fmt.Errorf("factory returned no instance")
	}
	return inst, err
}

func (s *Session) handleReady(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != Initializing {
		return
	}
	if s.inst == nil {
		s.readyEarly = true
		return
	}
	s.enterReadyLocked()
}

func (s *Session) enterReadyLocked() {
	s.state = Ready
	s.readyEarly = false
	s.canPublish = false
	s.onChange = s.evaluateChange
	s.log.Info().Uint64("gen", s.gen).Msg("Editor is ready")
}

func (s *Session) handleChange(gen uint64) {
	s.mu.Lock()
	handler := s.onChange
	s.mu.Unlock()

	if handler != nil {
		handler(gen)
	}
}

func (s *Session) evaluateChange(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != Ready {
		s.mu.Unlock()
		return
	}
	s.changeSeq++
	seq := s.changeSeq
	inst, ctx := s.inst, s.ctx
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	d, err := inst.Save(ctx)

	s.mu.Lock()
	if gen != s.gen || s.state != Ready {
		s.mu.Unlock()
		s.log.Debug().Uint64("gen", gen).Msg("Dropping change result from a torn-down editor")
		return
	}
	if err != nil {
		s.mu.Unlock()
		s.log.Error().Err(err).Msg("Error checking content validity")
		return
	}
	if seq < s.appliedSeq {
		s.mu.Unlock()
		return
	}
	s.appliedSeq = seq

	can := validate.Evaluate(d)
	flipped := can != s.canPublish
	s.canPublish = can
	observers := s.observersLocked()
	s.mu.Unlock()

	if flipped {
		s.log.Debug().Bool("can_publish", can).Int("blocks", d.Len()).Msg("Publish gate changed")
		notify(observers, can)
	}
}

// teardownLocked detaches everything the current attempt owns. The caller
// destroys the returned instance after releasing the lock.
func (s *Session) teardownLocked() (Instance, context.CancelFunc, bool) {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pendingStart = false
	s.readyEarly = false
	s.onChange = nil

	inst := s.inst
	s.inst = nil
	cancel := s.cancel
	s.ctx, s.cancel = nil, nil

	flipped := s.state == Ready && s.canPublish
	s.canPublish = false

	if s.state == Initializing || s.state == Ready {
		s.state = Destroyed
	}
	return inst, cancel, flipped
}

func (s *Session) destroy(inst Instance, cancel context.CancelFunc) (err error) {
	if cancel != nil {
		defer cancel()
	}
	if inst == nil {
		return nil
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("destroy panicked: %v", p)
		}
		if err != nil {
			derr := &DestructionError{Holder: s.holder, Err: err}
			s.mu.Lock()
			s.lastErr = derr
			s.mu.Unlock()
			s.log.Error().Err(derr).Msg("Error destroying editor")
			err = derr
		}
	}()

	return inst.Destroy()
}

func (s *Session) observersLocked() []func(bool) {
	out := make([]func(bool), 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []func(bool), can bool) {
	for _, fn := range observers {
		fn(can)
	}
}
