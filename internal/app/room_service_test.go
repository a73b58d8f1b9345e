package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"phish-party-service/internal/domain"
	"phish-party-service/internal/game"
	"phish-party-service/internal/telemetry"
)

type mapRooms struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func newMapRooms() *mapRooms { return &mapRooms{rooms: map[string]*Room{}} }

func (m *mapRooms) Add(room *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.Code()]; ok {
		return domain.ErrRoomExists
	}
	m.rooms[room.Code()] = room
	return nil
}

func (m *mapRooms) Get(code string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	return r, ok
}

func (m *mapRooms) Codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.rooms))
	for code := range m.rooms {
		codes = append(codes, code)
	}
	return codes
}

func (m *mapRooms) DeleteIfEmpty(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	if !ok || !r.IsEmpty() {
		return false
	}
	delete(m.rooms, code)
	return true
}

type staticSets map[string]domain.QuestionSet

func (s staticSets) GetQuestionSet(_ context.Context, id string) (domain.QuestionSet, error) {
	if set, ok := s[id]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
}

// manualTimer never fires on its own; tests advance the room by calling the service.
type manualTimer struct{}

func (manualTimer) Stop() bool { return true }

// testClock is read by the host driver goroutine.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, clock *testClock) (*RoomService, *mapRooms) {
	t.Helper()
	rooms := newMapRooms()
	settings := DefaultSettings()
	settings.Now = clock.Now
	settings.AfterFunc = func(time.Duration, func()) game.Timer { return manualTimer{} }
	settings.Timing.RevealWhenAllAnswered = false
	return NewRoomService(rooms, staticSets{"set": testSet()}, settings), rooms
}

func testSet() domain.QuestionSet {
	return domain.QuestionSet{
		ID: "set",
		Rounds: []domain.Round{
			{ID: "r1", Type: domain.RoundPhish, Phish: &domain.PhishEmail{IsPhishing: true}},
			{ID: "r2", Type: domain.RoundPassword, Password: &domain.PasswordPrompt{
				Password: "hunter2", Options: []string{"Weak", "Medium", "Strong"}, CorrectAnswer: 0,
			}},
		},
	}
}

func TestCreateRoomValidatesQuestionSet(t *testing.T) {
	clock := newTestClock()
	svc, _ := newTestService(t, clock)
	ctx := context.Background()

	if _, err := svc.CreateRoom(ctx, CreateRoomRequest{QuestionSetID: "missing", HostID: "h"}); !errors.Is(err, domain.ErrQuestionSetNotFound) {
		t.Fatalf("expected ErrQuestionSetNotFound, got %v", err)
	}
	if _, err := svc.CreateRoom(ctx, CreateRoomRequest{QuestionSetID: "set"}); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected host required, got %v", err)
	}

	room, err := svc.CreateRoom(ctx, CreateRoomRequest{QuestionSetID: "set", HostID: "h"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if len(room.Code) != 5 || room.Status != domain.StatusLobby || room.QuestionTimeLimit != DefaultQuestionTimeLimit {
		t.Fatalf("unexpected room %+v", room)
	}

	if _, err := svc.CreateRoom(ctx, CreateRoomRequest{Code: room.Code, QuestionSetID: "set", HostID: "h"}); !errors.Is(err, domain.ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists for explicit duplicate code, got %v", err)
	}
}

func TestRoomServiceGameFlow(t *testing.T) {
	clock := newTestClock()
	svc, _ := newTestService(t, clock)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, CreateRoomRequest{Code: "ROOM1", QuestionSetID: "set", HostID: "host", QuestionTimeLimit: 10})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := svc.Join(ctx, room.Code, "host", "Hana"); err != nil {
		t.Fatalf("join host: %v", err)
	}
	if _, err := svc.Join(ctx, room.Code, "p1", "Alice"); err != nil {
		t.Fatalf("join p1: %v", err)
	}

	if err := svc.Start(ctx, room.Code, "p1"); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if err := svc.Start(ctx, room.Code, "host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Start(ctx, room.Code, "host"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus on second start, got %v", err)
	}

	accepted, err := svc.SubmitAnswer(ctx, room.Code, "p1", 0, domain.AnswerPhishing)
	if err != nil || !accepted {
		t.Fatalf("submit: accepted=%v err=%v", accepted, err)
	}
	// duplicates are ignored, not errors
	accepted, err = svc.SubmitAnswer(ctx, room.Code, "p1", 0, domain.AnswerLegitimate)
	if err != nil || accepted {
		t.Fatalf("expected duplicate ignored, accepted=%v err=%v", accepted, err)
	}
	if _, err := svc.SubmitAnswer(ctx, room.Code, "ghost", 0, 1); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}

	if err := svc.ShowResults(ctx, room.Code, "p1", 0); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if err := svc.ShowResults(ctx, room.Code, "host", 0); err != nil {
		t.Fatalf("show results: %v", err)
	}
	snap, _ := svc.Room(ctx, room.Code)
	if snap.Status != domain.StatusShowingResults {
		t.Fatalf("expected showing_results, got %s", snap.Status)
	}
	host := snap.Player("host")
	if len(host.Answers) != 1 || host.Answers[0] != domain.Unanswered {
		t.Fatalf("expected host padded with unanswered, got %v", host.Answers)
	}
	if p1 := snap.Player("p1"); p1.Score != game.BasePoints || p1.Streak != 1 {
		t.Fatalf("unexpected p1 %+v", p1)
	}

	if err := svc.NextQuestion(ctx, room.Code, "host", 0); err != nil {
		t.Fatalf("next: %v", err)
	}
	// a stale intent for question 0 does nothing
	if err := svc.NextQuestion(ctx, room.Code, "host", 0); err != nil {
		t.Fatalf("stale next: %v", err)
	}
	snap, _ = svc.Room(ctx, room.Code)
	if snap.CurrentQuestion != 1 || snap.Status != domain.StatusPlaying {
		t.Fatalf("expected question 1 playing, got %d %s", snap.CurrentQuestion, snap.Status)
	}

	// time runs out; late answers are refused
	clock.Advance(11 * time.Second)
	accepted, _ = svc.SubmitAnswer(ctx, room.Code, "p1", 1, 0)
	if accepted {
		t.Fatalf("expected late answer ignored")
	}

	_ = svc.ShowResults(ctx, room.Code, "host", 1)
	_ = svc.NextQuestion(ctx, room.Code, "host", 1)
	snap, _ = svc.Room(ctx, room.Code)
	if snap.Status != domain.StatusFinished {
		t.Fatalf("expected finished, got %s", snap.Status)
	}
	if p1 := snap.Player("p1"); p1.Streak != 0 || len(p1.Answers) != 2 {
		t.Fatalf("expected streak reset after a missed question, got %+v", p1)
	}
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	svc, rooms := newTestService(t, newTestClock())
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, CreateRoomRequest{Code: "ROOM2", QuestionSetID: "set", HostID: "host"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	_, _ = svc.Join(ctx, room.Code, "host", "Hana")
	_, _ = svc.Join(ctx, room.Code, "p1", "Alice")
	updates, cancel, err := svc.Subscribe(ctx, room.Code)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	svc.Leave(ctx, room.Code, "p1")
	snap, err := svc.Room(ctx, room.Code)
	if err != nil {
		t.Fatalf("room after p1 left: %v", err)
	}
	if snap.Player("p1") != nil {
		t.Fatalf("expected lobby player removed")
	}

	svc.Leave(ctx, room.Code, "host")
	if _, ok := rooms.Get(room.Code); ok {
		t.Fatalf("expected room deleted once nobody is connected")
	}
	if _, err := svc.Room(ctx, room.Code); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	// the subscription ends when the room closes
	for range updates {
	}
}

func TestLeaveDuringGameKeepsPlayer(t *testing.T) {
	clock := newTestClock()
	svc, _ := newTestService(t, clock)
	ctx := context.Background()

	room, _ := svc.CreateRoom(ctx, CreateRoomRequest{Code: "ROOM3", QuestionSetID: "set", HostID: "host"})
	_, _ = svc.Join(ctx, room.Code, "host", "Hana")
	_, _ = svc.Join(ctx, room.Code, "p1", "Alice")
	if err := svc.Start(ctx, room.Code, "host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.SubmitAnswer(ctx, room.Code, "p1", 0, domain.AnswerPhishing); err != nil {
		t.Fatalf("submit: %v", err)
	}

	svc.Leave(ctx, room.Code, "p1")
	snap, _ := svc.Room(ctx, room.Code)
	p1 := snap.Player("p1")
	if p1 == nil || p1.Connected || p1.Score != game.BasePoints {
		t.Fatalf("expected disconnected p1 with score kept, got %+v", p1)
	}

	// rejoining keeps the answered state
	snap, _ = svc.Join(ctx, room.Code, "p1", "Alice")
	if !snap.HasAnswered(snap.Player("p1")) || !snap.Player("p1").Connected {
		t.Fatalf("expected answered state to survive reconnect")
	}
	accepted, _ := svc.SubmitAnswer(ctx, room.Code, "p1", 0, domain.AnswerLegitimate)
	if accepted {
		t.Fatalf("expected second answer ignored after reconnect")
	}
}

func TestReapIdleClosesUnjoinedRooms(t *testing.T) {
	clock := newTestClock()
	svc, rooms := newTestService(t, clock)
	ctx := context.Background()

	before := testutil.ToFloat64(telemetry.ActiveRooms)
	abandoned, err := svc.CreateRoom(ctx, CreateRoomRequest{Code: "IDLE1", QuestionSetID: "set", HostID: "host"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	joined, err := svc.CreateRoom(ctx, CreateRoomRequest{Code: "LIVE1", QuestionSetID: "set", HostID: "host"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := svc.Join(ctx, joined.Code, "host", "Hana"); err != nil {
		t.Fatalf("join: %v", err)
	}
	updates, cancel, err := svc.Subscribe(ctx, abandoned.Code)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	clock.Advance(DefaultRoomIdleTimeout - time.Second)
	if n := svc.ReapIdle(); n != 0 {
		t.Fatalf("expected nothing reaped before the timeout, got %d", n)
	}

	clock.Advance(2 * time.Second)
	if n := svc.ReapIdle(); n != 1 {
		t.Fatalf("expected one room reaped, got %d", n)
	}
	if _, ok := rooms.Get(abandoned.Code); ok {
		t.Fatalf("expected idle room removed")
	}
	if _, ok := rooms.Get(joined.Code); !ok {
		t.Fatalf("expected room with a connected player kept")
	}
	if got := testutil.ToFloat64(telemetry.ActiveRooms); got != before+1 {
		t.Fatalf("expected active rooms %v, got %v", before+1, got)
	}
	for range updates {
	}
}

func TestReapIdleKeepsConnectedRooms(t *testing.T) {
	clock := newTestClock()
	svc, rooms := newTestService(t, clock)
	ctx := context.Background()

	room, _ := svc.CreateRoom(ctx, CreateRoomRequest{Code: "ROOM4", QuestionSetID: "set", HostID: "host"})
	_, _ = svc.Join(ctx, room.Code, "host", "Hana")
	if err := svc.Start(ctx, room.Code, "host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(DefaultRoomIdleTimeout * 2)
	if n := svc.ReapIdle(); n != 0 {
		t.Fatalf("expected connected room kept, got %d reaped", n)
	}
	if _, ok := rooms.Get(room.Code); !ok {
		t.Fatalf("expected room kept")
	}
}

func TestUnknownRoom(t *testing.T) {
	svc, _ := newTestService(t, newTestClock())
	ctx := context.Background()

	if _, err := svc.Join(ctx, "NOPE", "p", "P"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := svc.Dispatcher("NOPE", "p"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, _, err := svc.Subscribe(ctx, "NOPE"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	svc.Leave(ctx, "NOPE", "p")
}
