package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"phish-party-service/internal/content"
	"phish-party-service/internal/infra/postgres"
)

// NewSeedCmd copies the embedded catalog's question sets into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in question sets into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	catalog, err := content.Default()
	if err != nil {
		return err
	}
	db := postgres.OpenBun(cfg.Postgres.URL)
	defer db.Close()

	n, err := postgres.SeedQuestionSets(ctx, db, catalog.QuestionSets())
	if err != nil {
		return err
	}
	log.Info().Int("questionSets", n).Msg("catalog seeded")
	return nil
}
