package main

import (
	"context"

	"github.com/alecthomas/kong"

	"socialhub-backend/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Dev     bool `help:"Enable development logging." env:"LOG_DEV"`
		Version kong.VersionFlag

		Serve          commands.ServeCmd          `cmd:"" default:"1" help:"Start the HTTP API and the publish scheduler"`
		Migrate        commands.MigrateCmd        `cmd:"" help:"Apply or roll back database migrations"`
		SeedSuperAdmin commands.SeedSuperAdminCmd `cmd:"" help:"Create a super admin account"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("socialhub"),
		kong.Description("SocialHub scheduling backend"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Dev: cli.Dev, Version: version})
	cmd.FatalIfErrorf(err)
}
