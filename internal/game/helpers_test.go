package game_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"phish-party-service/internal/domain"
	"phish-party-service/internal/game"
)

var epoch = time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

func sampleRounds() []domain.Round {
	return []domain.Round{
		{
			ID:          "r1",
			Type:        domain.RoundPhish,
			Difficulty:  domain.DifficultyEasy,
			Explanation: "The sender domain is misspelled.",
			FunFact:     "Most breaches start with an email.",
			Clues:       []string{"paypa1.com", "urgent tone"},
			Phish: &domain.PhishEmail{
				SenderName:  "PayPal",
				SenderEmail: "security@paypa1.com",
				Subject:     "Account locked",
				Body:        "Verify now.",
				IsPhishing:  true,
			},
		},
		{
			ID:   "r2",
			Type: domain.RoundPassword,
			Password: &domain.PasswordPrompt{
				Password:      "correct-horse-battery-staple",
				Options:       []string{"Weak", "Medium", "Strong"},
				CorrectAnswer: 2,
			},
		},
		{
			ID:   "r3",
			Type: domain.RoundSpotURL,
			SpotURL: &domain.SpotURLPrompt{
				Scenario: "Log in to your bank",
				URLs: []domain.URLChoice{
					{URL: "https://bank.example.co", Label: "A"},
					{URL: "https://bank.example.com", Label: "B"},
					{URL: "https://example.com.bank.io", Label: "C"},
				},
				CorrectIndex: 1,
			},
		},
	}
}

func newRoom(players ...string) *domain.GameRoom {
	g := &domain.GameRoom{
		Code:              "ROOM1",
		HostID:            "host",
		QuestionSet:       sampleRounds(),
		QuestionTimeLimit: 20,
		Status:            domain.StatusLobby,
	}
	for _, id := range players {
		game.Join(g, id, id)
	}
	return g
}

// fakeClock drives both the controller clock and its timers.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	due     time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) game.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{due: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every timer that came due, in due order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.due.After(c.now) {
				due = append(due, t)
			}
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })
		if len(due) == 0 {
			c.mu.Unlock()
			return
		}
		due[0].fired = true
		c.mu.Unlock()
		due[0].f()
	}
}

// loopback plays the external synchronization layer: it applies intents to one
// room and pushes the new snapshot to every registered controller.
type loopback struct {
	mu          sync.Mutex
	room        *domain.GameRoom
	clock       *fakeClock
	controllers []*game.Controller

	shows int
	nexts int
}

func (l *loopback) publish() {
	l.mu.Lock()
	snap := l.room.Clone()
	cs := append([]*game.Controller(nil), l.controllers...)
	l.mu.Unlock()
	for _, c := range cs {
		c.Observe(snap)
	}
}

func (l *loopback) As(playerID string) game.Dispatcher {
	return &loopbackDispatcher{l: l, playerID: playerID}
}

type loopbackDispatcher struct {
	l        *loopback
	playerID string
}

func (d *loopbackDispatcher) SubmitAnswer(_ context.Context, question, answer int) error {
	d.l.mu.Lock()
	_, ok := game.SubmitAnswer(d.l.room, game.DefaultRules(), d.playerID, question, answer, d.l.clock.Now())
	d.l.mu.Unlock()
	if ok {
		d.l.publish()
	}
	return nil
}

func (d *loopbackDispatcher) ShowResults(_ context.Context, question int) error {
	d.l.mu.Lock()
	d.l.shows++
	ok := game.Reveal(d.l.room, question)
	d.l.mu.Unlock()
	if ok {
		d.l.publish()
	}
	return nil
}

func (d *loopbackDispatcher) NextQuestion(_ context.Context, question int) error {
	d.l.mu.Lock()
	d.l.nexts++
	ok := game.Advance(d.l.room, question, d.l.clock.Now())
	d.l.mu.Unlock()
	if ok {
		d.l.publish()
	}
	return nil
}

// recorder only counts intents.
type recorder struct {
	mu      sync.Mutex
	answers []int
	shows   []int
	nexts   []int
}

func (r *recorder) SubmitAnswer(_ context.Context, question, answer int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, answer)
	return nil
}

func (r *recorder) ShowResults(_ context.Context, question int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shows = append(r.shows, question)
	return nil
}

func (r *recorder) NextQuestion(_ context.Context, question int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nexts = append(r.nexts, question)
	return nil
}

func (r *recorder) counts() (answers, shows, nexts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.answers), len(r.shows), len(r.nexts)
}
