package game

import (
	"time"

	"phish-party-service/internal/domain"
)

// The functions below are the only mutations of a GameRoom. They assume the
// caller serializes writes to g and report whether anything changed; a false
// return is a rejected precondition, never an error.

// Join adds a player in join order, or refreshes a returning one.
// Late joiners get an unanswered entry for every question that already closed.
func Join(g *domain.GameRoom, playerID, name string) (*domain.Player, bool) {
	if p := g.Player(playerID); p != nil {
		p.Name = name
		p.Connected = true
		return p, false
	}
	p := &domain.Player{ID: playerID, Name: name, Connected: true, Answers: []domain.AnswerMark{}}
	closed := 0
	switch g.Status {
	case domain.StatusPlaying:
		closed = g.CurrentQuestion
	case domain.StatusShowingResults, domain.StatusFinished:
		closed = g.CurrentQuestion + 1
	}
	for len(p.Answers) < closed {
		p.Answers = append(p.Answers, domain.Unanswered)
	}
	g.Players = append(g.Players, p)
	return p, true
}

// Start moves a lobby room to its first question.
func Start(g *domain.GameRoom, now time.Time) bool {
	if g.Status != domain.StatusLobby || len(g.QuestionSet) == 0 {
		return false
	}
	g.CurrentQuestion = 0
	g.QuestionStartedAt = now
	g.Status = domain.StatusPlaying
	return true
}

// SubmitAnswer records playerID's answer for question. It is accepted only while
// the question is open, time is left and the player has not answered yet.
func SubmitAnswer(g *domain.GameRoom, rules Rules, playerID string, question, answer int, now time.Time) (Outcome, bool) {
	if g.Status != domain.StatusPlaying || question != g.CurrentQuestion {
		return Outcome{}, false
	}
	p := g.Player(playerID)
	if p == nil || len(p.Answers) != g.CurrentQuestion {
		return Outcome{}, false
	}
	if RoomTimeLeft(g, now) <= 0 {
		return Outcome{}, false
	}
	round, ok := g.CurrentRound()
	if !ok || answer < 0 || answer >= round.OptionCount() {
		return Outcome{}, false
	}

	out := rules.Outcome(*p, round, answer)
	p.Answers = append(p.Answers, out.Mark)
	p.Score += out.ScoreDelta
	p.Streak = out.NewStreak
	return out, true
}

// Reveal closes question and shows its results. Players without an answer get
// an unanswered entry and lose their streak. Repeated calls are no-ops.
func Reveal(g *domain.GameRoom, question int) bool {
	if g.Status != domain.StatusPlaying || question != g.CurrentQuestion {
		return false
	}
	for _, p := range g.Players {
		if len(p.Answers) > g.CurrentQuestion {
			continue
		}
		for len(p.Answers) <= g.CurrentQuestion {
			p.Answers = append(p.Answers, domain.Unanswered)
		}
		p.Streak = 0
	}
	g.Status = domain.StatusShowingResults
	return true
}

// Advance leaves the results of question and opens the next one, or finishes
// the game after the last question.
func Advance(g *domain.GameRoom, question int, now time.Time) bool {
	if g.Status != domain.StatusShowingResults || question != g.CurrentQuestion {
		return false
	}
	if g.CurrentQuestion >= len(g.QuestionSet)-1 {
		g.Status = domain.StatusFinished
		return true
	}
	g.CurrentQuestion++
	g.QuestionStartedAt = now
	g.Status = domain.StatusPlaying
	return true
}
