package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"phish-party-service/internal/domain"
	"phish-party-service/internal/game"
	"phish-party-service/internal/telemetry"
)

// Room is the authoritative copy of one game. Its mutex serializes every
// write, so each intent is applied exactly once and every subscriber sees the
// same sequence of snapshots.
type Room struct {
	now   func() time.Time
	rules game.Rules

	mu          sync.RWMutex
	state       domain.GameRoom
	subscribers map[chan domain.GameRoom]struct{}
	stopDriver  func()
	closed      bool
	// idleSince is when the last connected player left, or creation time for
	// a room nobody joined yet. Zero while someone is connected.
	idleSince time.Time
}

// NewRoom is exported for infrastructure layers that need to seed rooms.
func NewRoom(state domain.GameRoom) *Room {
	return NewRoomWithClock(state, game.DefaultRules(), time.Now)
}

// NewRoomWithClock allows deterministic timestamps in tests.
func NewRoomWithClock(state domain.GameRoom, rules game.Rules, now func() time.Time) *Room {
	if state.Players == nil {
		state.Players = []*domain.Player{}
	}
	if state.Status == "" {
		state.Status = domain.StatusLobby
	}
	return &Room{
		now:         now,
		rules:       rules,
		state:       state,
		subscribers: make(map[chan domain.GameRoom]struct{}),
		idleSince:   now(),
	}
}

func (r *Room) Code() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Code
}

func (r *Room) HostID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.HostID
}

// Snapshot returns a deep copy of the current state.
func (r *Room) Snapshot() domain.GameRoom {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Clone()
}

// IsEmpty reports whether no player is connected.
func (r *Room) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.anyConnectedLocked()
}

func (r *Room) anyConnectedLocked() bool {
	for _, p := range r.state.Players {
		if p.Connected {
			return true
		}
	}
	return false
}

// IdleFor reports how long the room has had no connected player.
func (r *Room) IdleFor(now time.Time) (time.Duration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.idleSince.IsZero() {
		return 0, false
	}
	return now.Sub(r.idleSince), true
}

func (r *Room) join(playerID, name string) domain.GameRoom {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, created := game.Join(&r.state, playerID, name)
	r.idleSince = time.Time{}
	log.Debug().Str("room", r.state.Code).Str("player", playerID).Bool("new", created).Msg("player joined")
	return r.broadcastLocked()
}

// leave drops a lobby player; during a game the record is kept for reconnects.
func (r *Room) leave(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.state.Players {
		if p.ID != playerID {
			continue
		}
		if r.state.Status == domain.StatusLobby {
			r.state.Players = append(r.state.Players[:i], r.state.Players[i+1:]...)
		} else {
			p.Connected = false
		}
		if r.idleSince.IsZero() && !r.anyConnectedLocked() {
			r.idleSince = r.now()
		}
		r.broadcastLocked()
		return
	}
}

func (r *Room) start(actorID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if actorID != r.state.HostID {
		return false, domain.ErrNotHost
	}
	if r.state.Status != domain.StatusLobby {
		return false, domain.ErrInvalidStatus
	}
	if !game.Start(&r.state, r.now()) {
		return false, domain.ErrInvalidStatus
	}
	log.Info().Str("room", r.state.Code).Int("questions", r.state.TotalQuestions()).Msg("game started")
	r.broadcastLocked()
	return true, nil
}

func (r *Room) submit(playerID string, question, answer int) (game.Outcome, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Player(playerID) == nil {
		return game.Outcome{}, false, domain.ErrPlayerNotFound
	}
	out, ok := game.SubmitAnswer(&r.state, r.rules, playerID, question, answer, r.now())
	if !ok {
		telemetry.AnswersTotal.WithLabelValues("ignored").Inc()
		log.Debug().Str("room", r.state.Code).Str("player", playerID).Int("question", question).Msg("submission ignored")
		return out, false, nil
	}
	telemetry.AnswersTotal.WithLabelValues(out.Mark.String()).Inc()
	r.broadcastLocked()
	return out, true, nil
}

func (r *Room) reveal(question int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !game.Reveal(&r.state, question) {
		return false
	}
	telemetry.RevealsTotal.Inc()
	log.Debug().Str("room", r.state.Code).Int("question", question).Msg("results shown")
	r.broadcastLocked()
	return true
}

func (r *Room) advance(question int) bool {
	r.mu.Lock()
	if !game.Advance(&r.state, question, r.now()) {
		r.mu.Unlock()
		return false
	}
	telemetry.AdvancesTotal.Inc()
	finished := r.state.Status == domain.StatusFinished
	log.Debug().Str("room", r.state.Code).Int("question", r.state.CurrentQuestion).Str("status", string(r.state.Status)).Msg("advanced")
	r.broadcastLocked()
	r.mu.Unlock()

	if finished {
		telemetry.GamesFinishedTotal.Inc()
		r.haltDriver()
	}
	return true
}

func (r *Room) authorize(actorID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if actorID != r.state.HostID {
		return domain.ErrNotHost
	}
	return nil
}

// As returns a dispatcher that acts with playerID's authority.
func (r *Room) As(playerID string) game.Dispatcher {
	return participant{room: r, playerID: playerID}
}

type participant struct {
	room     *Room
	playerID string
}

func (p participant) SubmitAnswer(_ context.Context, question, answer int) error {
	_, _, err := p.room.submit(p.playerID, question, answer)
	return err
}

func (p participant) ShowResults(_ context.Context, question int) error {
	if err := p.room.authorize(p.playerID); err != nil {
		return err
	}
	p.room.reveal(question)
	return nil
}

func (p participant) NextQuestion(_ context.Context, question int) error {
	if err := p.room.authorize(p.playerID); err != nil {
		return err
	}
	p.room.advance(question)
	return nil
}

// driver is the server-side host: it closes questions and auto-advances.
type driver struct {
	room *Room
}

func (driver) SubmitAnswer(context.Context, int, int) error {
	return domain.ErrPlayerNotFound
}

func (d driver) ShowResults(_ context.Context, question int) error {
	d.room.reveal(question)
	return nil
}

func (d driver) NextQuestion(_ context.Context, question int) error {
	d.room.advance(question)
	return nil
}

// runDriver starts the host controller for this room. It stops when the game
// finishes or the room is closed.
func (r *Room) runDriver(opts ...game.Option) {
	ctrl := game.NewController("", game.RoleHost, driver{room: r}, opts...)
	updates, unsubscribe := r.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	if r.closed || r.stopDriver != nil {
		r.mu.Unlock()
		cancel()
		unsubscribe()
		return
	}
	r.stopDriver = func() {
		cancel()
		unsubscribe()
	}
	r.mu.Unlock()

	go ctrl.Run(ctx, updates)
}

func (r *Room) haltDriver() {
	r.mu.Lock()
	stop := r.stopDriver
	r.stopDriver = nil
	r.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Close stops the host driver and ends every subscription.
func (r *Room) Close() {
	r.haltDriver()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for ch := range r.subscribers {
		delete(r.subscribers, ch)
		close(ch)
	}
}

// Subscribe returns a channel of snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (r *Room) Subscribe() (<-chan domain.GameRoom, func()) {
	ch := make(chan domain.GameRoom, 8)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.subscribers[ch] = struct{}{}
	ch <- r.state.Clone()
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Room) broadcastLocked() domain.GameRoom {
	for ch := range r.subscribers {
		snap := r.state.Clone()
		select {
		case ch <- snap:
		default:
			// a slow subscriber only needs the latest snapshot
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return r.state.Clone()
}
