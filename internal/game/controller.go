package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"phish-party-service/internal/domain"
)

// Dispatcher delivers one participant's intents to the authoritative room.
// Every intent names the question it was issued for so the room can apply it
// exactly once.
type Dispatcher interface {
	SubmitAnswer(ctx context.Context, question, answer int) error
	ShowResults(ctx context.Context, question int) error
	NextQuestion(ctx context.Context, question int) error
}

type Role int

const (
	RolePlayer Role = iota
	// RoleHost may force reveals and advances, and owns the expiry latch
	// and the auto-advance fallback.
	RoleHost
)

// RevealPhase is the viewer-local stage of the results screen.
type RevealPhase int

const (
	RevealHidden RevealPhase = iota
	RevealScore
	RevealExplanation
	RevealClues
)

func (p RevealPhase) String() string {
	switch p {
	case RevealScore:
		return "score"
	case RevealExplanation:
		return "explanation"
	case RevealClues:
		return "clues"
	default:
		return "hidden"
	}
}

// Timing holds the lifecycle delays.
type Timing struct {
	PollInterval     time.Duration
	ExplanationDelay time.Duration
	// CluesDelay counts from the explanation phase.
	CluesDelay  time.Duration
	AutoAdvance time.Duration
	// RevealWhenAllAnswered lets the host close a question once every
	// connected player answered.
	RevealWhenAllAnswered bool
}

func DefaultTiming() Timing {
	return Timing{
		PollInterval:          DefaultPollInterval,
		ExplanationDelay:      1500 * time.Millisecond,
		CluesDelay:            3 * time.Second,
		AutoAdvance:           8 * time.Second,
		RevealWhenAllAnswered: true,
	}
}

// RevealListener is told about every reveal phase change of the viewer.
type RevealListener func(question int, phase RevealPhase)

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithAfterFunc(after AfterFunc) Option {
	return func(c *Controller) { c.sched = NewScheduler(after) }
}

func WithTiming(t Timing) Option {
	return func(c *Controller) { c.timing = t }
}

func WithRevealListener(fn RevealListener) Option {
	return func(c *Controller) { c.onReveal = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// roundState is per-question ephemeral state, rebuilt whenever a new
// question starts.
type roundState struct {
	question      int
	revealLatch   bool
	advanceLatch  bool
	answered      bool
	revealing     bool
	phase         RevealPhase
	cancelAdvance func()
}

// Controller is one participant's copy of the round lifecycle. It re-derives
// everything from the latest room snapshot and its own clock, so any number of
// controllers converge on the same view without a shared tick.
type Controller struct {
	playerID string
	role     Role
	dispatch Dispatcher
	now      func() time.Time
	timing   Timing
	sched    *Scheduler
	onReveal RevealListener
	log      zerolog.Logger

	mu       sync.Mutex
	ctx      context.Context
	room     domain.GameRoom
	observed bool
	round    roundState
	closed   bool
}

func NewController(playerID string, role Role, d Dispatcher, opts ...Option) *Controller {
	c := &Controller{
		playerID: playerID,
		role:     role,
		dispatch: d,
		now:      time.Now,
		timing:   DefaultTiming(),
		log:      log.Logger,
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sched == nil {
		c.sched = NewScheduler(nil)
	}
	if c.timing.PollInterval <= 0 {
		c.timing.PollInterval = DefaultPollInterval
	}
	c.log = c.log.With().Str("player", playerID).Logger()
	return c
}

func (c *Controller) IsHost() bool { return c.role == RoleHost }

// Run feeds snapshots from updates into the controller and polls the clock
// until ctx is done or updates is closed. It closes the controller on return.
func (c *Controller) Run(ctx context.Context, updates <-chan domain.GameRoom) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	defer c.Close()

	ticker := time.NewTicker(c.timing.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case room, ok := <-updates:
			if !ok {
				return
			}
			c.Observe(room)
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Observe applies a new authoritative snapshot.
func (c *Controller) Observe(room domain.GameRoom) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	var emits []RevealPhase
	prev := c.room
	if !c.observed || room.CurrentQuestion != prev.CurrentQuestion ||
		(room.Status == domain.StatusPlaying && prev.Status != domain.StatusPlaying) {
		if c.round.phase != RevealHidden {
			emits = append(emits, RevealHidden)
		}
		c.sched.Reset()
		c.round = roundState{question: room.CurrentQuestion}
	}
	c.room = room
	c.observed = true

	switch room.Status {
	case domain.StatusShowingResults:
		if !c.round.revealing {
			emits = append(emits, c.beginRevealLocked())
		}
	case domain.StatusFinished, domain.StatusLobby:
		c.sched.Reset()
	}
	q := c.round.question
	c.mu.Unlock()

	c.emit(q, emits...)
	if room.Status == domain.StatusPlaying {
		c.Tick()
	}
}

// beginRevealLocked starts the staged reveal for the current question.
func (c *Controller) beginRevealLocked() RevealPhase {
	q := c.round.question
	c.round.revealing = true
	c.round.revealLatch = true
	c.round.phase = RevealScore

	c.sched.After(c.timing.ExplanationDelay, func() { c.enterPhase(q, RevealExplanation) })
	c.sched.After(c.timing.ExplanationDelay+c.timing.CluesDelay, func() { c.enterPhase(q, RevealClues) })
	if c.role == RoleHost && c.timing.AutoAdvance > 0 && !c.round.advanceLatch {
		c.round.cancelAdvance = c.sched.After(c.timing.AutoAdvance, func() { c.autoAdvance(q) })
	}
	return RevealScore
}

func (c *Controller) enterPhase(question int, phase RevealPhase) {
	c.mu.Lock()
	if c.closed || c.round.question != question || !c.round.revealing || phase <= c.round.phase {
		c.mu.Unlock()
		return
	}
	c.round.phase = phase
	c.mu.Unlock()
	c.emit(question, phase)
}

func (c *Controller) autoAdvance(question int) {
	c.mu.Lock()
	if c.closed || c.round.question != question || c.room.Status != domain.StatusShowingResults || c.round.advanceLatch {
		c.mu.Unlock()
		return
	}
	c.round.advanceLatch = true
	c.round.cancelAdvance = nil
	ctx := c.ctx
	c.mu.Unlock()

	c.log.Debug().Int("question", question).Msg("auto-advance")
	if err := c.dispatch.NextQuestion(ctx, question); err != nil {
		c.log.Warn().Err(err).Int("question", question).Msg("auto-advance dispatch failed")
	}
}

// Tick re-derives the remaining time. A host fires the reveal exactly once per
// question when time runs out, or earlier when everyone answered.
func (c *Controller) Tick() {
	c.mu.Lock()
	if c.closed || !c.observed || c.role != RoleHost ||
		c.room.Status != domain.StatusPlaying || c.round.revealLatch {
		c.mu.Unlock()
		return
	}
	expired := RoomTimeLeft(&c.room, c.now()) <= 0
	everyone := c.timing.RevealWhenAllAnswered && c.room.AllAnswered()
	if !expired && !everyone {
		c.mu.Unlock()
		return
	}
	c.round.revealLatch = true
	q := c.round.question
	ctx := c.ctx
	c.mu.Unlock()

	c.log.Debug().Int("question", q).Bool("expired", expired).Msg("closing question")
	if err := c.dispatch.ShowResults(ctx, q); err != nil {
		c.log.Warn().Err(err).Int("question", q).Msg("reveal dispatch failed")
	}
}

// TimeLeft is the remaining answer time of the observed question.
func (c *Controller) TimeLeft() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.observed || c.room.Status != domain.StatusPlaying {
		return 0
	}
	return RoomTimeLeft(&c.room, c.now())
}

// CanAnswer reports whether OnAnswer would dispatch; UIs disable input otherwise.
func (c *Controller) CanAnswer() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canAnswerLocked()
}

func (c *Controller) canAnswerLocked() bool {
	if c.closed || !c.observed || c.round.answered || c.room.Status != domain.StatusPlaying {
		return false
	}
	p := c.room.Player(c.playerID)
	if p == nil || c.room.HasAnswered(p) {
		return false
	}
	return RoomTimeLeft(&c.room, c.now()) > 0
}

// OnAnswer submits the player's choice. It is a no-op when the player already
// answered, the time is up or answer is not one of the round's options.
func (c *Controller) OnAnswer(ctx context.Context, answer int) error {
	c.mu.Lock()
	if !c.canAnswerLocked() {
		c.mu.Unlock()
		return nil
	}
	if round, ok := c.room.CurrentRound(); !ok || answer < 0 || answer >= round.OptionCount() {
		c.mu.Unlock()
		return nil
	}
	c.round.answered = true
	q := c.round.question
	c.mu.Unlock()

	err := c.dispatch.SubmitAnswer(ctx, q, answer)
	if err != nil {
		c.mu.Lock()
		if c.round.question == q {
			c.round.answered = false
		}
		c.mu.Unlock()
	}
	return err
}

// OnShowResults forces the reveal of the current question. Host only.
func (c *Controller) OnShowResults(ctx context.Context) error {
	if c.role != RoleHost {
		return domain.ErrNotHost
	}
	c.mu.Lock()
	if c.closed || c.room.Status != domain.StatusPlaying || c.round.revealLatch {
		c.mu.Unlock()
		return nil
	}
	c.round.revealLatch = true
	q := c.round.question
	c.mu.Unlock()

	return c.dispatch.ShowResults(ctx, q)
}

// OnNextQuestion leaves the results screen. Host only; cancels a pending
// auto-advance.
func (c *Controller) OnNextQuestion(ctx context.Context) error {
	if c.role != RoleHost {
		return domain.ErrNotHost
	}
	c.mu.Lock()
	if c.closed || c.room.Status != domain.StatusShowingResults || c.round.advanceLatch {
		c.mu.Unlock()
		return nil
	}
	c.round.advanceLatch = true
	if c.round.cancelAdvance != nil {
		c.round.cancelAdvance()
		c.round.cancelAdvance = nil
	}
	q := c.round.question
	c.mu.Unlock()

	return c.dispatch.NextQuestion(ctx, q)
}

// Phase is the viewer's current reveal phase.
func (c *Controller) Phase() RevealPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round.phase
}

// Room returns the last observed snapshot.
func (c *Controller) Room() domain.GameRoom {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// Close cancels every pending callback. The controller ignores input afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.sched.Close()
}

func (c *Controller) emit(question int, phases ...RevealPhase) {
	if c.onReveal == nil {
		return
	}
	for _, p := range phases {
		c.onReveal(question, p)
	}
}
