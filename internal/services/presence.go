package services

import (
	"context"
	"fmt"
	"time"

	"commhub/pkg/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// presenceTTL is how long a heartbeat keeps a user online. The client
// refreshes well inside this window; an expired key reads as offline.
const presenceTTL = 90 * time.Second

// PresenceService keeps live agent presence in Redis so it survives API
// restarts and is shared across instances. Redis being down degrades to
// the persisted status column instead of failing requests.
type PresenceService struct {
	client *redis.Client
}

// NewPresenceService creates a new presence service
func NewPresenceService(redisURL string) (*PresenceService, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &PresenceService{client: client}, nil
}

func presenceKey(orgID, userID uuid.UUID) string {
	return fmt.Sprintf("presence:%s:%s", orgID, userID)
}

// Heartbeat records a user's presence status with a sliding TTL
func (s *PresenceService) Heartbeat(ctx context.Context, orgID, userID uuid.UUID, status string) error {
	return s.client.Set(ctx, presenceKey(orgID, userID), status, presenceTTL).Err()
}

// Clear removes a user's presence on logout
func (s *PresenceService) Clear(ctx context.Context, orgID, userID uuid.UUID) error {
	return s.client.Del(ctx, presenceKey(orgID, userID)).Err()
}

// Overlay replaces each user's persisted status with the live Redis value
// where one exists. Missing keys mean offline unless the row says
// otherwise.
func (s *PresenceService) Overlay(ctx context.Context, orgID uuid.UUID, users []models.User) []models.User {
	if len(users) == 0 {
		return users
	}

	keys := make([]string, len(users))
	for i, u := range users {
		keys[i] = presenceKey(orgID, u.ID)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		log.Warn().Err(err).Msg("presence lookup failed, using persisted status")
		return users
	}

	for i, v := range values {
		if status, ok := v.(string); ok && status != "" {
			users[i].Status = status
		} else {
			users[i].Status = models.PresenceOffline
		}
	}

	return users
}

// Close releases the Redis connection
func (s *PresenceService) Close() error {
	return s.client.Close()
}
