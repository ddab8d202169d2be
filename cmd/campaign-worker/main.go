package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commhub/internal/broker"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// The worker consumes campaign dispatch jobs and reports delivery progress
// back to the API on the progress route.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if os.Getenv("ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	amqpURL := os.Getenv("AMQP_URL")
	if amqpURL == "" {
		log.Fatal().Msg("AMQP_URL is required")
	}

	conn, err := broker.Connect(amqpURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down worker...")
		cancel()
	}()

	log.Info().Msg("Campaign worker started")

	err = conn.Consume(ctx, "commhub.worker.dispatch", broker.RouteDispatch, func(envelope broker.Envelope) error {
		var job broker.DispatchJob
		if err := json.Unmarshal(envelope.Data, &job); err != nil {
			return err
		}

		log.Info().
			Str("campaign_id", job.CampaignID.String()).
			Str("template", job.TemplateName).
			Int("audience", job.AudienceSize).
			Msg("processing dispatch")

		return runCampaign(ctx, conn, envelope.OrganizationID, job)
	})
	if err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Consumer stopped")
	}

	log.Info().Msg("Worker exited")
}
