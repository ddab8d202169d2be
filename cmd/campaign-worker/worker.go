package main

import (
	"context"

	"commhub/internal/broker"
	"commhub/internal/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// runCampaign walks the audience and publishes progress reports on the
// progress route. The simulated provider is the only one wired today;
// a real WhatsApp sender slots in behind the same report callback.
func runCampaign(ctx context.Context, conn *broker.Connection, orgID uuid.UUID, job broker.DispatchJob) error {
	err := services.SimulateDelivery(ctx, job, func(report broker.ProgressReport) error {
		return conn.Publish(ctx, broker.RouteProgress, orgID, report)
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("campaign_id", job.CampaignID.String()).
		Int("audience", job.AudienceSize).
		Msg("campaign delivered")
	return nil
}
