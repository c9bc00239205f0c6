package commands

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"socialhub-backend/internal/config"
	"socialhub-backend/internal/logger"
)

type Globals struct {
	Dev     bool
	Version string
}

// setup loads configuration and installs the global logger.
func setup(globals *Globals) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	l := logger.Setup(os.Stderr, globals.Dev || cfg.LogDev)
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return cfg, l, nil
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
