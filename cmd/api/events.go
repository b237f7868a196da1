package main

import (
	"encoding/json"
	stderrors "errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/health-enrollment/internal/model"
	"github.com/jwalitptl/health-enrollment/pkg/messaging/redis"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect published enrollment events",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Log enrollment events from the broker until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Redis.URL == "" {
				return stderrors.New("redis.url is not configured")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			broker, err := redis.NewRedisBroker(ctx, redis.Config{
				URL:          cfg.Redis.URL,
				MaxRetries:   cfg.Redis.MaxRetries,
				RetryBackoff: cfg.Redis.RetryBackoff,
				PoolSize:     cfg.Redis.PoolSize,
				MinIdleConns: cfg.Redis.MinIdleConns,
			}, log.Logger)
			if err != nil {
				return err
			}
			defer broker.Close()

			messages, err := broker.Subscribe(ctx, cfg.Redis.Channel)
			if err != nil {
				return err
			}
			log.Info().Str("channel", cfg.Redis.Channel).Msg("watching enrollment events")

			for msg := range messages {
				var event model.EnrollmentEvent
				if err := json.Unmarshal(msg, &event); err != nil {
					log.Warn().Err(err).Bytes("payload", msg).Msg("skipping malformed event")
					continue
				}
				log.Info().
					Str("type", event.Type).
					Str("enrollment_id", event.EnrollmentID.String()).
					Str("client_id", event.ClientID.String()).
					Str("program_id", event.ProgramID.String()).
					Bool("created", event.Created).
					Str("occurred_at", event.OccurredAt).
					Msg("enrollment event")
			}
			return nil
		},
	})

	return cmd
}
