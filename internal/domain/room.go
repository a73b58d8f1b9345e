package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// AnswerMark is one entry of a player's answer history.
// It serializes as true, false or null.
type AnswerMark int8

const (
	Unanswered AnswerMark = iota
	Correct
	Incorrect
)

func MarkFor(correct bool) AnswerMark {
	if correct {
		return Correct
	}
	return Incorrect
}

func (m AnswerMark) String() string {
	switch m {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "unanswered"
	}
}

func (m AnswerMark) MarshalJSON() ([]byte, error) {
	switch m {
	case Correct:
		return []byte("true"), nil
	case Incorrect:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (m *AnswerMark) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("answer mark: %w", err)
	}
	switch {
	case v == nil:
		*m = Unanswered
	case *v:
		*m = Correct
	default:
		*m = Incorrect
	}
	return nil
}

// Player is a participant's record inside a room.
type Player struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Score     int          `json:"score"`
	Streak    int          `json:"streak"`
	Answers   []AnswerMark `json:"answers"`
	Connected bool         `json:"connected"`
}

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	StatusLobby          RoomStatus = "lobby"
	StatusPlaying        RoomStatus = "playing"
	StatusShowingResults RoomStatus = "showing_results"
	StatusFinished       RoomStatus = "finished"
)

// GameRoom is the shared session state every participant derives its view from.
type GameRoom struct {
	Code              string     `json:"code"`
	HostID            string     `json:"hostId"`
	Players           []*Player  `json:"players"`
	QuestionSetID     string     `json:"questionSetId"`
	QuestionSet       []Round    `json:"questionSet"`
	CurrentQuestion   int        `json:"currentQuestion"`
	QuestionTimeLimit int        `json:"questionTimeLimit"` // seconds
	QuestionStartedAt time.Time  `json:"questionStartedAt"`
	Status            RoomStatus `json:"status"`
}

func (g *GameRoom) TotalQuestions() int {
	return len(g.QuestionSet)
}

// TimeLimit is QuestionTimeLimit as a duration.
func (g *GameRoom) TimeLimit() time.Duration {
	return time.Duration(g.QuestionTimeLimit) * time.Second
}

// CurrentRound returns the round at CurrentQuestion.
func (g *GameRoom) CurrentRound() (Round, bool) {
	if g.CurrentQuestion < 0 || g.CurrentQuestion >= len(g.QuestionSet) {
		return Round{}, false
	}
	return g.QuestionSet[g.CurrentQuestion], true
}

func (g *GameRoom) Player(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// HasAnswered reports whether p already has an entry for the current question.
// It is derived from the history length so it survives reconnects.
func (g *GameRoom) HasAnswered(p *Player) bool {
	return len(p.Answers) > g.CurrentQuestion
}

func (g *GameRoom) AnsweredCount() int {
	n := 0
	for _, p := range g.Players {
		if g.HasAnswered(p) {
			n++
		}
	}
	return n
}

// AllAnswered reports whether every connected player answered the current question.
func (g *GameRoom) AllAnswered() bool {
	connected := 0
	for _, p := range g.Players {
		if !p.Connected {
			continue
		}
		connected++
		if !g.HasAnswered(p) {
			return false
		}
	}
	return connected > 0
}

// Clone returns a deep copy safe to hand to other goroutines.
// Rounds are shared since the question set never changes once a room exists.
func (g *GameRoom) Clone() GameRoom {
	out := *g
	out.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		cp := *p
		cp.Answers = append([]AnswerMark(nil), p.Answers...)
		out.Players[i] = &cp
	}
	return out
}

// Standing is a leaderboard row.
type Standing struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Streak   int    `json:"streak"`
}

// Standings orders players by score, then streak, then join order.
func Standings(g *GameRoom) []Standing {
	idx := make([]int, len(g.Players))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := g.Players[idx[a]], g.Players[idx[b]]
		if pa.Score != pb.Score {
			return pa.Score > pb.Score
		}
		return pa.Streak > pb.Streak
	})
	out := make([]Standing, 0, len(idx))
	for i, j := range idx {
		p := g.Players[j]
		rank := i + 1
		if i > 0 && out[i-1].Score == p.Score && out[i-1].Streak == p.Streak {
			rank = out[i-1].Rank
		}
		out = append(out, Standing{Rank: rank, PlayerID: p.ID, Name: p.Name, Score: p.Score, Streak: p.Streak})
	}
	return out
}
