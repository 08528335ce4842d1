package presence

import (
	"context"

	"chat-hub/internal/models"
	"chat-hub/internal/store"
)

// Tracker derives presence status and per-user unread-channel sets from the
// entity store. It holds no state of its own.
type Tracker struct {
	store store.Store
}

// New constructs a Tracker.
func New(s store.Store) *Tracker {
	return &Tracker{store: s}
}

// MarkOnline records the user as online and returns the updated profile.
func (t *Tracker) MarkOnline(ctx context.Context, userID int) (models.User, error) {
	return t.store.UpdateUserStatus(ctx, userID, models.StatusOnline)
}

// MarkOffline records the user as offline. Callers invoke this only when the
// user's last connection has gone away.
func (t *Tracker) MarkOffline(ctx context.Context, userID int) (models.User, error) {
	return t.store.UpdateUserStatus(ctx, userID, models.StatusOffline)
}

// UnreadChannels recomputes the set of channels with messages past the
// user's read cursor. A channel is unread iff it has at least one message
// and the cursor is unset or behind the latest message id. This is a full
// scan over the user's memberships, recomputed on demand.
func (t *Tracker) UnreadChannels(ctx context.Context, userID int) ([]int, error) {
	memberships, err := t.store.ListMembershipsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var unread []int
	for _, m := range memberships {
		last, err := t.store.LastMessageID(ctx, m.ChannelID)
		if err != nil {
			return nil, err
		}
		if last == 0 {
			continue
		}
		if m.LastReadMessageID == nil || *m.LastReadMessageID < last {
			unread = append(unread, m.ChannelID)
		}
	}
	return unread, nil
}

// MarkRead moves the user's read cursor in the channel. The cursor is
// client-trusted: no monotonicity check, a repeat call is a no-op in effect.
func (t *Tracker) MarkRead(ctx context.Context, userID, channelID, messageID int) error {
	return t.store.SetLastRead(ctx, channelID, userID, messageID)
}
