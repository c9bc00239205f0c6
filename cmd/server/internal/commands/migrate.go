package commands

import (
	"errors"

	"github.com/rs/zerolog/log"

	"socialhub-backend/internal/storage"
)

type MigrateCmd struct {
	Direction string `arg:"" optional:"" default:"up" enum:"up,down" help:"Migration direction (up or down)"`
}

func (c *MigrateCmd) Run(globals *Globals) error {
	cfg, _, err := setup(globals)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("migrate: DATABASE_URL is required")
	}
	if err := storage.Migrate(cfg.DatabaseURL, c.Direction); err != nil {
		return err
	}
	log.Info().Str("direction", c.Direction).Msg("migrations applied")
	return nil
}
