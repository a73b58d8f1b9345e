package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"phish-party-service/internal/domain"
	"phish-party-service/internal/game"
	"phish-party-service/internal/telemetry"
)

// DefaultQuestionTimeLimit is used when neither the request nor the settings set one.
const DefaultQuestionTimeLimit = 20

// DefaultRoomIdleTimeout is how long a room may sit with nobody connected.
const DefaultRoomIdleTimeout = 10 * time.Minute

// RoomRepository abstracts where live rooms are kept (in-memory, Redis-backed, etc).
type RoomRepository interface {
	Add(room *Room) error
	Get(code string) (*Room, bool)
	Codes() []string
	DeleteIfEmpty(code string) bool
}

// QuestionSetRepository loads question sets (from cache/backing store).
type QuestionSetRepository interface {
	GetQuestionSet(ctx context.Context, id string) (domain.QuestionSet, error)
}

// Settings are the per-room defaults applied by the service.
type Settings struct {
	QuestionTimeLimit int
	RoomIdleTimeout   time.Duration
	Rules             game.Rules
	Timing            game.Timing
	// Now and AfterFunc are injectable for tests.
	Now       func() time.Time
	AfterFunc game.AfterFunc
}

func DefaultSettings() Settings {
	return Settings{
		QuestionTimeLimit: DefaultQuestionTimeLimit,
		RoomIdleTimeout:   DefaultRoomIdleTimeout,
		Rules:             game.DefaultRules(),
		Timing:            game.DefaultTiming(),
		Now:               time.Now,
	}
}

// RoomService contains the multiplayer game use cases.
type RoomService struct {
	rooms    RoomRepository
	sets     QuestionSetRepository
	settings Settings
}

func NewRoomService(rooms RoomRepository, sets QuestionSetRepository, settings Settings) *RoomService {
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.QuestionTimeLimit <= 0 {
		settings.QuestionTimeLimit = DefaultQuestionTimeLimit
	}
	if settings.RoomIdleTimeout <= 0 {
		settings.RoomIdleTimeout = DefaultRoomIdleTimeout
	}
	if settings.Rules.BasePoints <= 0 {
		settings.Rules = game.DefaultRules()
	}
	return &RoomService{rooms: rooms, sets: sets, settings: settings}
}

// Timing is shared with transports that run viewer controllers.
func (s *RoomService) Timing() game.Timing {
	return s.settings.Timing
}

// Now is the service clock.
func (s *RoomService) Now() time.Time {
	return s.settings.Now()
}

// ControllerOptions returns the clock and timer options every controller
// created against this service should use.
func (s *RoomService) ControllerOptions() []game.Option {
	opts := []game.Option{
		game.WithTiming(s.settings.Timing),
		game.WithClock(s.settings.Now),
	}
	if s.settings.AfterFunc != nil {
		opts = append(opts, game.WithAfterFunc(s.settings.AfterFunc))
	}
	return opts
}

// CreateRoomRequest describes a new game room.
type CreateRoomRequest struct {
	// Code is optional; a random one is generated when empty.
	Code          string `json:"code"`
	QuestionSetID string `json:"questionSetId"`
	HostID        string `json:"hostId"`
	// QuestionTimeLimit in seconds; zero uses the service default.
	QuestionTimeLimit int `json:"questionTimeLimit"`
}

// CreateRoom loads and validates the question set and opens a lobby.
func (s *RoomService) CreateRoom(ctx context.Context, req CreateRoomRequest) (domain.GameRoom, error) {
	if req.HostID == "" {
		return domain.GameRoom{}, fmt.Errorf("create room: %w", domain.ErrNotHost)
	}
	set, err := s.sets.GetQuestionSet(ctx, req.QuestionSetID)
	if err != nil {
		return domain.GameRoom{}, err
	}
	if err := set.Validate(); err != nil {
		return domain.GameRoom{}, err
	}

	limit := req.QuestionTimeLimit
	if limit <= 0 {
		limit = s.settings.QuestionTimeLimit
	}

	for attempt := 0; ; attempt++ {
		code := req.Code
		if code == "" {
			code = randomCode(5)
		}
		room := NewRoomWithClock(domain.GameRoom{
			Code:              code,
			HostID:            req.HostID,
			QuestionSetID:     set.ID,
			QuestionSet:       set.Rounds,
			QuestionTimeLimit: limit,
			Status:            domain.StatusLobby,
		}, s.settings.Rules, s.settings.Now)

		err := s.rooms.Add(room)
		if err == nil {
			telemetry.ActiveRooms.Inc()
			log.Info().Str("room", code).Str("questionSet", set.ID).Str("host", req.HostID).Msg("room created")
			return room.Snapshot(), nil
		}
		if !errors.Is(err, domain.ErrRoomExists) || req.Code != "" || attempt >= 10 {
			return domain.GameRoom{}, err
		}
	}
}

// Join registers or refreshes a player in a room.
func (s *RoomService) Join(_ context.Context, code, playerID, name string) (domain.GameRoom, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.GameRoom{}, domain.ErrRoomNotFound
	}
	return room.join(playerID, name), nil
}

// Start begins the game and hands timer ownership to the server-side host driver.
func (s *RoomService) Start(_ context.Context, code, playerID string) error {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	started, err := room.start(playerID)
	if err != nil {
		return err
	}
	if started {
		opts := append(s.ControllerOptions(), game.WithLogger(log.Logger.With().Str("room", code).Logger()))
		room.runDriver(opts...)
	}
	return nil
}

// SubmitAnswer records a player's answer for question. Late or duplicate
// submissions are not errors; they report accepted=false.
func (s *RoomService) SubmitAnswer(_ context.Context, code, playerID string, question, answer int) (bool, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return false, domain.ErrRoomNotFound
	}
	_, accepted, err := room.submit(playerID, question, answer)
	return accepted, err
}

// ShowResults closes question early. Host only; repeated calls are no-ops.
func (s *RoomService) ShowResults(ctx context.Context, code, playerID string, question int) error {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.As(playerID).ShowResults(ctx, question)
}

// NextQuestion leaves the results of question. Host only; repeated calls are no-ops.
func (s *RoomService) NextQuestion(ctx context.Context, code, playerID string, question int) error {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.As(playerID).NextQuestion(ctx, question)
}

// Dispatcher binds playerID's intents to a room for a lifecycle controller.
func (s *RoomService) Dispatcher(code, playerID string) (game.Dispatcher, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room.As(playerID), nil
}

// Room returns a snapshot of a room.
func (s *RoomService) Room(_ context.Context, code string) (domain.GameRoom, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.GameRoom{}, domain.ErrRoomNotFound
	}
	return room.Snapshot(), nil
}

// Subscribe returns a channel that receives room snapshots.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *RoomService) Subscribe(_ context.Context, code string) (<-chan domain.GameRoom, func(), error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	ch, cancel := room.Subscribe()
	return ch, cancel, nil
}

// Leave disconnects a player and drops the room once nobody is connected.
func (s *RoomService) Leave(_ context.Context, code, playerID string) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return
	}
	room.leave(playerID)
	if room.IsEmpty() {
		s.closeIfEmpty(code, room, "empty")
	}
}

// ReapIdle closes rooms that have had nobody connected for longer than the
// idle timeout, such as rooms created over REST that no one ever joined.
func (s *RoomService) ReapIdle() int {
	now := s.settings.Now()
	reaped := 0
	for _, code := range s.rooms.Codes() {
		room, ok := s.rooms.Get(code)
		if !ok {
			continue
		}
		idle, ok := room.IdleFor(now)
		if !ok || idle < s.settings.RoomIdleTimeout {
			continue
		}
		if s.closeIfEmpty(code, room, "idle") {
			reaped++
		}
	}
	return reaped
}

// RunReaper calls ReapIdle every interval until ctx is done.
func (s *RoomService) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.settings.RoomIdleTimeout / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ReapIdle(); n > 0 {
				log.Info().Int("rooms", n).Msg("reaped idle rooms")
			}
		}
	}
}

func (s *RoomService) closeIfEmpty(code string, room *Room, reason string) bool {
	if !s.rooms.DeleteIfEmpty(code) {
		return false
	}
	room.Close()
	telemetry.ActiveRooms.Dec()
	log.Info().Str("room", code).Str("reason", reason).Msg("room closed")
	return true
}

func randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
