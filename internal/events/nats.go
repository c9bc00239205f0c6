package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/jwt/v2"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
	"github.com/rs/zerolog/log"

	"socialhub-backend/internal/models"
)

type Options struct {
	URL string
	// NKeySeed authenticates with an nkey. Combined with UserJWT it signs the
	// server nonce for decentralized JWT auth.
	NKeySeed string
	UserJWT  string
}

type Client struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

var _ Publisher = (*Client)(nil)

// Connect establishes the NATS connection and makes sure the posts stream exists.
func Connect(opts Options) (*Client, error) {
	url := opts.URL
	if url == "" {
		url = nats.DefaultURL
	}

	natsOpts := []nats.Option{
		nats.Name("socialhub-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(1 * time.Second),
		nats.ReconnectJitter(500*time.Millisecond, 2*time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	authOpts, err := authOptions(opts.NKeySeed, opts.UserJWT, time.Now())
	if err != nil {
		return nil, err
	}
	natsOpts = append(natsOpts, authOpts...)

	nc, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	log.Info().Str("url", nc.ConnectedUrl()).Msg("connected to NATS")

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if err := ensureStream(js); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return &Client{nc: nc, js: js}, nil
}

func (c *Client) Publish(ctx context.Context, ev models.PostEvent) error {
	payload, err := Encode(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := c.js.Publish(Subject(ev.OrgID, ev.Type), payload, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (c *Client) Close() error {
	return c.nc.Drain()
}

func (c *Client) Ping(ctx context.Context) error {
	if !c.nc.IsConnected() {
		return nats.ErrConnectionClosed
	}
	return c.nc.FlushWithContext(ctx)
}

func ensureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(StreamName)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       StreamName,
			Subjects:   []string{streamSubject},
			Retention:  nats.LimitsPolicy,
			MaxAge:     30 * 24 * time.Hour,
			MaxBytes:   1024 * 1024 * 1024, // 1GB
			MaxMsgSize: 64 * 1024,
			Discard:    nats.DiscardOld,
			Storage:    nats.FileStorage,
		})
		if err != nil {
			return fmt.Errorf("create stream %s: %w", StreamName, err)
		}
		log.Info().Str("stream", StreamName).Msg("created JetStream stream")
	} else if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	return nil
}

// authOptions builds NATS credentials from an nkey seed and an optional user JWT.
// A JWT must belong to the seed's public key and must not be expired.
func authOptions(seed, userJWT string, now time.Time) ([]nats.Option, error) {
	if seed == "" {
		if userJWT != "" {
			return nil, errors.New("NATS_USER_JWT requires NATS_NKEY_SEED")
		}
		return nil, nil
	}

	kp, err := nkeys.FromSeed([]byte(seed))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS nkey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("nkey public key: %w", err)
	}
	sign := func(nonce []byte) ([]byte, error) {
		return kp.Sign(nonce)
	}

	if userJWT == "" {
		return []nats.Option{nats.Nkey(pub, sign)}, nil
	}

	claims, err := jwt.DecodeUserClaims(userJWT)
	if err != nil {
		return nil, fmt.Errorf("decode NATS user jwt: %w", err)
	}
	if claims.Subject != pub {
		return nil, errors.New("NATS user jwt does not match nkey seed")
	}
	if claims.Expires > 0 && claims.Expires <= now.Unix() {
		return nil, errors.New("NATS user jwt is expired")
	}

	return []nats.Option{nats.UserJWT(
		func() (string, error) { return userJWT, nil },
		sign,
	)}, nil
}
