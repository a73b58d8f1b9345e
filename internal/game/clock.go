package game

import (
	"time"

	"phish-party-service/internal/domain"
)

// DefaultPollInterval is how often observers re-derive the remaining time.
const DefaultPollInterval = 200 * time.Millisecond

// TimeLeft derives the remaining answer time from the question start timestamp.
// The result is always within [0, limit]; there is no countdown state to drift.
func TimeLeft(startedAt time.Time, limit time.Duration, now time.Time) time.Duration {
	elapsed := now.Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	left := limit - elapsed
	if left < 0 {
		return 0
	}
	return left
}

// RoomTimeLeft is TimeLeft for the room's current question.
func RoomTimeLeft(g *domain.GameRoom, now time.Time) time.Duration {
	return TimeLeft(g.QuestionStartedAt, g.TimeLimit(), now)
}

// SecondsLeft rounds a remaining duration up to whole seconds for display.
func SecondsLeft(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
