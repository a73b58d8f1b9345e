package game

import "phish-party-service/internal/domain"

const (
	// BasePoints is awarded for every correct answer.
	BasePoints = 100
	// NoAnswer marks a player who never submitted before the round closed.
	NoAnswer = -1
)

// Outcome is the effect of one player's answer on one round.
type Outcome struct {
	Mark       domain.AnswerMark
	ScoreDelta int
	NewStreak  int
}

func (o Outcome) Correct() bool { return o.Mark == domain.Correct }

// Rules holds the scoring constants of a room.
type Rules struct {
	BasePoints int
}

func DefaultRules() Rules {
	return Rules{BasePoints: BasePoints}
}

// Outcome scores answer against round for p. It has no side effects;
// callers apply it exactly once per player per question.
func (r Rules) Outcome(p domain.Player, round domain.Round, answer int) Outcome {
	if answer == NoAnswer {
		return Outcome{Mark: domain.Unanswered}
	}
	if answer != round.CorrectAnswer() {
		return Outcome{Mark: domain.Incorrect}
	}
	return Outcome{
		Mark:       domain.Correct,
		ScoreDelta: r.BasePoints,
		NewStreak:  p.Streak + 1,
	}
}

// ComputeOutcome scores with the default rules.
func ComputeOutcome(p domain.Player, round domain.Round, answer int) Outcome {
	return DefaultRules().Outcome(p, round, answer)
}

// PenalizedPoints reduces points by penaltyPercent for every hint used.
// The result never goes below zero.
func PenalizedPoints(points, hintsUsed, penaltyPercent int) int {
	if hintsUsed <= 0 || penaltyPercent <= 0 {
		return points
	}
	keep := 100 - hintsUsed*penaltyPercent
	if keep <= 0 || points <= 0 {
		return 0
	}
	return points * keep / 100
}
