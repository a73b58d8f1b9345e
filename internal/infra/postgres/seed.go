package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"phish-party-service/internal/domain"
)

type questionSetRow struct {
	bun.BaseModel `bun:"table:question_sets"`

	ID    string             `bun:"id,pk"`
	Title string             `bun:"title"`
	Data  domain.QuestionSet `bun:"data,type:jsonb"`
}

// OpenBun opens a bun handle over the pgdriver connector.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// SeedQuestionSets upserts sets by id and returns how many rows were written.
func SeedQuestionSets(ctx context.Context, db *bun.DB, sets map[string]domain.QuestionSet) (int, error) {
	if len(sets) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(sets))
	for id := range sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]questionSetRow, 0, len(ids))
	for _, id := range ids {
		set := sets[id]
		if err := set.Validate(); err != nil {
			return 0, fmt.Errorf("seed question set %s: %w", id, err)
		}
		rows = append(rows, questionSetRow{ID: id, Title: set.Title, Data: set})
	}

	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("data = EXCLUDED.data").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed question sets: %w", err)
	}
	return len(rows), nil
}
