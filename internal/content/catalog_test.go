package content

import (
	"context"
	"errors"
	"testing"

	"phish-party-service/internal/domain"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("parse default catalog: %v", err)
	}
	ids := c.QuestionSetIDs()
	if len(ids) == 0 {
		t.Fatalf("expected question sets in catalog")
	}

	seen := map[domain.RoundType]bool{}
	for _, set := range c.QuestionSets() {
		for _, r := range set.Rounds {
			seen[r.Type] = true
		}
	}
	for _, typ := range []domain.RoundType{domain.RoundPhish, domain.RoundPassword, domain.RoundSpotURL} {
		if !seen[typ] {
			t.Fatalf("expected a %s round in the catalog", typ)
		}
	}

	challenges, err := c.Challenges(context.Background())
	if err != nil {
		t.Fatalf("challenges: %v", err)
	}
	for _, ch := range challenges {
		if ch.Flag == "" {
			t.Fatalf("challenge %s has no flag", ch.ID)
		}
	}
	modules, _ := c.Modules(context.Background())
	if len(modules) == 0 {
		t.Fatalf("expected training modules")
	}
}

func TestParseRejectsInvalidRound(t *testing.T) {
	_, err := Parse([]byte(`
questionSets:
  - id: broken
    rounds:
      - id: r1
        type: spot_url
        spotUrl:
          scenario: pick one
          urls:
            - url: https://a.example
          correctIndex: 3
`))
	if !errors.Is(err, domain.ErrInvalidRound) {
		t.Fatalf("expected ErrInvalidRound, got %v", err)
	}
}

func TestParseRejectsEmptySet(t *testing.T) {
	_, err := Parse([]byte("questionSets:\n  - id: empty\n    rounds: []\n"))
	if !errors.Is(err, domain.ErrEmptyQuestionSet) {
		t.Fatalf("expected ErrEmptyQuestionSet, got %v", err)
	}
}
