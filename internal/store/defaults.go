package store

import (
	"context"
	"errors"
	"fmt"

	"chat-hub/internal/models"
)

const (
	defaultAdminUsername = "admin"
	defaultChannelName   = "general"
)

// EnsureDefaults seeds the admin account and the general channel with the
// admin as its first member. It is idempotent and safe to run on every start
// against either store implementation.
func EnsureDefaults(ctx context.Context, s Store) error {
	admin, err := s.GetUserByUsername(ctx, defaultAdminUsername)
	if errors.Is(err, ErrUserNotFound) {
		admin, err = s.CreateUser(ctx, defaultAdminUsername, "Admin")
	}
	if err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	general, err := s.GetChannelByName(ctx, defaultChannelName)
	if errors.Is(err, ErrChannelNotFound) {
		general, err = s.CreateChannel(ctx, models.Channel{
			Name:        defaultChannelName,
			Description: "General discussion channel",
			CreatedByID: admin.ID,
		})
	}
	if err != nil {
		return fmt.Errorf("ensure general channel: %w", err)
	}

	if _, err := s.AddMember(ctx, general.ID, admin.ID); err != nil && !errors.Is(err, ErrAlreadyMember) {
		return fmt.Errorf("ensure admin membership: %w", err)
	}
	return nil
}
