package commands

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog/log"

	"socialhub-backend/internal/auth"
	"socialhub-backend/internal/config"
	"socialhub-backend/internal/models"
	"socialhub-backend/internal/storage"
)

type SeedSuperAdminCmd struct {
	Email    string `required:"" help:"Login email" env:"SUPERADMIN_EMAIL"`
	Name     string `default:"Super Admin" help:"Display name" env:"SUPERADMIN_NAME"`
	Password string `required:"" help:"Initial password" env:"SUPERADMIN_PASSWORD"`
}

func (c *SeedSuperAdminCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, _, err := setup(globals)
	if err != nil {
		return err
	}
	if cfg.StoreType != config.StoreTypePostgres {
		return errors.New("seed-super-admin: requires STORE_TYPE=postgres")
	}
	addr, err := mail.ParseAddress(c.Email)
	if err != nil {
		return fmt.Errorf("seed-super-admin: %w", err)
	}
	if len(c.Password) < 6 {
		return errors.New("seed-super-admin: password must be at least 6 characters")
	}

	db, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	store := storage.NewStorage(db)

	hash, err := auth.NewHasher(cfg.BcryptCost).Hash(c.Password)
	if err != nil {
		return err
	}
	user := &models.User{
		Name:         strings.TrimSpace(c.Name),
		Email:        strings.ToLower(addr.Address),
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		IsVerified:   true,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return fmt.Errorf("seed-super-admin: %s is already registered", user.Email)
		}
		return err
	}
	log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("super admin created")
	return nil
}
