package app

import (
	"context"
	"crypto/subtle"
	"strings"

	"phish-party-service/internal/domain"
	"phish-party-service/internal/game"
	"phish-party-service/internal/telemetry"
)

// ContentRepository serves the read-only training catalog.
type ContentRepository interface {
	Modules(ctx context.Context) ([]domain.Module, error)
	Challenges(ctx context.Context) ([]domain.Challenge, error)
}

// ContentService exposes training modules and CTF practice challenges.
type ContentService struct {
	repo               ContentRepository
	hintPenaltyPercent int
}

func NewContentService(repo ContentRepository, hintPenaltyPercent int) *ContentService {
	return &ContentService{repo: repo, hintPenaltyPercent: hintPenaltyPercent}
}

func (s *ContentService) Modules(ctx context.Context) ([]domain.Module, error) {
	return s.repo.Modules(ctx)
}

func (s *ContentService) Challenges(ctx context.Context) ([]domain.Challenge, error) {
	return s.repo.Challenges(ctx)
}

// Solve checks a flag and awards the challenge points minus the hint penalty.
func (s *ContentService) Solve(ctx context.Context, challengeID, flag string, hintsUsed int) (domain.SolveResult, error) {
	challenges, err := s.repo.Challenges(ctx)
	if err != nil {
		return domain.SolveResult{}, err
	}
	for _, c := range challenges {
		if c.ID != challengeID {
			continue
		}
		if hintsUsed > len(c.Hints) {
			hintsUsed = len(c.Hints)
		}
		if hintsUsed < 0 {
			hintsUsed = 0
		}
		res := domain.SolveResult{ChallengeID: c.ID, HintsUsed: hintsUsed}
		submitted := strings.TrimSpace(flag)
		if subtle.ConstantTimeCompare([]byte(submitted), []byte(c.Flag)) == 1 {
			res.Correct = true
			res.Points = game.PenalizedPoints(c.Points, hintsUsed, s.hintPenaltyPercent)
			telemetry.ChallengeSolvesTotal.WithLabelValues("correct").Inc()
		} else {
			telemetry.ChallengeSolvesTotal.WithLabelValues("incorrect").Inc()
		}
		return res, nil
	}
	return domain.SolveResult{}, domain.ErrChallengeNotFound
}
