package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-hub/internal/models"
	"chat-hub/internal/store"
)

func TestMarkOnlineOffline(t *testing.T) {
	s := store.NewMemStore()
	tracker := New(s)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "alice", "Alice")
	require.NoError(t, err)
	require.Equal(t, models.StatusOffline, user.Status)

	online, err := tracker.MarkOnline(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, online.Status)

	offline, err := tracker.MarkOffline(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOffline, offline.Status)

	_, err = tracker.MarkOnline(ctx, 99)
	require.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestUnreadChannels(t *testing.T) {
	s := store.NewMemStore()
	tracker := New(s)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "bob", "Bob")
	require.NoError(t, err)

	empty, err := s.CreateChannel(ctx, models.Channel{Name: "empty", CreatedByID: user.ID})
	require.NoError(t, err)
	active, err := s.CreateChannel(ctx, models.Channel{Name: "active", CreatedByID: user.ID})
	require.NoError(t, err)
	caughtUp, err := s.CreateChannel(ctx, models.Channel{Name: "caught-up", CreatedByID: user.ID})
	require.NoError(t, err)
	for _, ch := range []models.Channel{empty, active, caughtUp} {
		_, err = s.AddMember(ctx, ch.ID, user.ID)
		require.NoError(t, err)
	}

	_, err = s.CreateMessage(ctx, models.NewMessage{Content: "new", ChannelID: &active.ID, SenderID: user.ID})
	require.NoError(t, err)
	msg, err := s.CreateMessage(ctx, models.NewMessage{Content: "seen", ChannelID: &caughtUp.ID, SenderID: user.ID})
	require.NoError(t, err)
	require.NoError(t, tracker.MarkRead(ctx, user.ID, caughtUp.ID, msg.ID))

	// Empty channel never unread; unset cursor with messages is unread;
	// cursor at the latest message is read.
	unread, err := tracker.UnreadChannels(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{active.ID}, unread)
}

func TestUnreadChannelsCursorBehindLatest(t *testing.T) {
	s := store.NewMemStore()
	tracker := New(s)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "carol", "Carol")
	require.NoError(t, err)
	ch, err := s.CreateChannel(ctx, models.Channel{Name: "news", CreatedByID: user.ID})
	require.NoError(t, err)
	_, err = s.AddMember(ctx, ch.ID, user.ID)
	require.NoError(t, err)

	first, err := s.CreateMessage(ctx, models.NewMessage{Content: "a", ChannelID: &ch.ID, SenderID: user.ID})
	require.NoError(t, err)
	require.NoError(t, tracker.MarkRead(ctx, user.ID, ch.ID, first.ID))

	unread, err := tracker.UnreadChannels(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, unread)

	_, err = s.CreateMessage(ctx, models.NewMessage{Content: "b", ChannelID: &ch.ID, SenderID: user.ID})
	require.NoError(t, err)

	unread, err = tracker.UnreadChannels(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{ch.ID}, unread)
}

func TestMarkReadUnknownMembership(t *testing.T) {
	s := store.NewMemStore()
	tracker := New(s)

	err := tracker.MarkRead(context.Background(), 1, 1, 1)
	require.ErrorIs(t, err, store.ErrMembershipNotFound)
}
