package http

import (
	"encoding/json"
	"time"

	"phish-party-service/internal/domain"
	"phish-party-service/internal/game"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Question int `json:"question"`
	Answer   int `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	PlayerID string   `json:"playerId"`
	IsHost   bool     `json:"isHost"`
	Room     roomView `json:"room"`
}

// roomView is what clients see of a room: the current round without its
// answer, plus derived timing.
type roomView struct {
	Code              string            `json:"code"`
	HostID            string            `json:"hostId"`
	Status            domain.RoomStatus `json:"status"`
	Players           []*domain.Player  `json:"players"`
	Standings         []domain.Standing `json:"standings"`
	QuestionSetID     string            `json:"questionSetId"`
	CurrentQuestion   int               `json:"currentQuestion"`
	TotalQuestions    int               `json:"totalQuestions"`
	QuestionTimeLimit int               `json:"questionTimeLimit"`
	QuestionStartedAt time.Time         `json:"questionStartedAt"`
	TimeLeftMs        int64             `json:"timeLeftMs"`
	AnsweredCount     int               `json:"answeredCount"`
	Round             *publicRound      `json:"round,omitempty"`
}

type publicRound struct {
	ID         string            `json:"id"`
	Type       domain.RoundType  `json:"type"`
	Difficulty domain.Difficulty `json:"difficulty,omitempty"`
	Category   string            `json:"category,omitempty"`
	Phish      *publicPhish      `json:"phish,omitempty"`
	Password   *publicPassword   `json:"password,omitempty"`
	SpotURL    *publicSpotURL    `json:"spotUrl,omitempty"`
}

type publicPhish struct {
	SenderName  string `json:"senderName"`
	SenderEmail string `json:"senderEmail"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

type publicPassword struct {
	Password string   `json:"password"`
	Options  []string `json:"options"`
}

type publicSpotURL struct {
	Scenario string             `json:"scenario"`
	URLs     []domain.URLChoice `json:"urls"`
}

// revealPayload grows with the phase: the answer first, then the
// explanation, then clues and the fun fact.
type revealPayload struct {
	Question      int      `json:"question"`
	Phase         string   `json:"phase"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Clues         []string `json:"clues,omitempty"`
	FunFact       string   `json:"funFact,omitempty"`
}

func newRoomView(g domain.GameRoom, now time.Time) roomView {
	v := roomView{
		Code:              g.Code,
		HostID:            g.HostID,
		Status:            g.Status,
		Players:           g.Players,
		Standings:         domain.Standings(&g),
		QuestionSetID:     g.QuestionSetID,
		CurrentQuestion:   g.CurrentQuestion,
		TotalQuestions:    g.TotalQuestions(),
		QuestionTimeLimit: g.QuestionTimeLimit,
		QuestionStartedAt: g.QuestionStartedAt,
		AnsweredCount:     g.AnsweredCount(),
	}
	if g.Status == domain.StatusPlaying {
		v.TimeLeftMs = game.RoomTimeLeft(&g, now).Milliseconds()
	}
	if g.Status != domain.StatusLobby {
		if r, ok := g.CurrentRound(); ok {
			v.Round = newPublicRound(r)
		}
	}
	return v
}

func newPublicRound(r domain.Round) *publicRound {
	out := &publicRound{ID: r.ID, Type: r.Type, Difficulty: r.Difficulty, Category: r.Category}
	switch {
	case r.Phish != nil:
		out.Phish = &publicPhish{
			SenderName:  r.Phish.SenderName,
			SenderEmail: r.Phish.SenderEmail,
			Subject:     r.Phish.Subject,
			Body:        r.Phish.Body,
		}
	case r.Password != nil:
		out.Password = &publicPassword{Password: r.Password.Password, Options: r.Password.Options}
	case r.SpotURL != nil:
		out.SpotURL = &publicSpotURL{Scenario: r.SpotURL.Scenario, URLs: r.SpotURL.URLs}
	}
	return out
}

func newRevealPayload(g domain.GameRoom, question int, phase game.RevealPhase) revealPayload {
	p := revealPayload{Question: question, Phase: phase.String()}
	if phase == game.RevealHidden || question < 0 || question >= len(g.QuestionSet) {
		return p
	}
	r := g.QuestionSet[question]
	correct := r.CorrectAnswer()
	p.CorrectAnswer = &correct
	if phase >= game.RevealExplanation {
		p.Explanation = r.Explanation
	}
	if phase >= game.RevealClues {
		p.Clues = r.Clues
		p.FunFact = r.FunFact
	}
	return p
}
