package router

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"regexp"
	"strings"

	"chat-hub/internal/models"
	"chat-hub/internal/observability"
	"chat-hub/internal/presence"
	"chat-hub/internal/rabbitmq"
	"chat-hub/internal/store"
	"chat-hub/internal/ws"
)

var channelNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Router decodes inbound frames, validates them against the connection's
// auth state, mutates the store, and resolves the fan-out set for outbound
// events. Each connection moves Unauthenticated -> Authenticated exactly
// once; everything but auth requires the Authenticated state.
type Router struct {
	store     store.Store
	tracker   *presence.Tracker
	hub       *ws.Hub
	publisher rabbitmq.Publisher
}

// New constructs a Router.
func New(s store.Store, tracker *presence.Tracker, hub *ws.Hub, publisher rabbitmq.Publisher) *Router {
	return &Router{store: s, tracker: tracker, hub: hub, publisher: publisher}
}

// HandleFrame processes one inbound frame. Faults are contained to the
// originating connection: any failure, including a panic, becomes an error
// frame and the hub stays serviceable.
func (r *Router) HandleFrame(ctx context.Context, client *ws.Client, frame []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("router: panic on conn %s: %v", client.Info().ConnID, rec)
			sendError(client, "Internal error")
		}
	}()

	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Type == "" {
		sendError(client, "Invalid message format")
		return
	}
	observability.IncWSFrame(env.Type)

	if env.Type == frameAuth {
		r.handleAuth(ctx, client, frame)
		return
	}
	if client.UserID() == 0 {
		sendError(client, "Not authenticated")
		return
	}

	switch env.Type {
	case frameGetUsers:
		r.handleGetUsers(ctx, client)
	case frameMessage:
		r.handleMessage(ctx, client, frame)
	case frameFetchChannelMessages:
		r.handleFetchChannelMessages(ctx, client, frame)
	case frameFetchDirectMessages:
		r.handleFetchDirectMessages(ctx, client, frame)
	case frameCreateChannel:
		r.handleCreateChannel(ctx, client, frame)
	case frameCreateGroupChat:
		r.handleCreateGroupChat(ctx, client, frame)
	case frameJoinChannel:
		r.handleJoinChannel(ctx, client, frame)
	case frameMarkChannelRead:
		r.handleMarkChannelRead(ctx, client, frame)
	default:
		// Unknown types are tolerated; the frame counter above still
		// records them.
	}
}

// HandleDisconnect runs the close path for a connection. If it was the
// user's last connection, the user goes offline and everyone else is told.
func (r *Router) HandleDisconnect(ctx context.Context, client *ws.Client) {
	userID := client.UserID()
	if userID == 0 {
		return
	}

	if last := r.hub.Unregister(client, userID); !last {
		return
	}

	if _, err := r.tracker.MarkOffline(ctx, userID); err != nil {
		log.Printf("router: mark offline user %d: %v", userID, err)
	}
	r.hub.DeliverAll(models.ServerEvent{
		Type:   models.EventUserStatus,
		UserID: userID,
		Status: models.StatusOffline,
	}, userID)
	r.publish(ctx, rabbitmq.KeyPresence, "user_offline", map[string]any{"userId": userID})
}

func (r *Router) handleAuth(ctx context.Context, client *ws.Client, frame []byte) {
	var f authFrame
	if !decode(client, frame, &f) {
		return
	}

	user, err := r.store.GetUser(ctx, f.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			client.Enqueue(models.ErrorEvent{Type: models.EventAuthError, Message: "Invalid user ID"})
		} else {
			client.Enqueue(models.ErrorEvent{Type: models.EventAuthError, Message: "Failed to authenticate"})
		}
		return
	}

	client.BindUser(user.ID)
	r.hub.Register(client, user.ID)

	// The status flip happens before any users_list below is built, so every
	// list sent after a successful auth already shows the user online.
	if updated, err := r.tracker.MarkOnline(ctx, user.ID); err == nil {
		user = updated
	} else {
		log.Printf("router: mark online user %d: %v", user.ID, err)
	}

	client.Enqueue(models.ServerEvent{Type: models.EventAuthSuccess, User: &user})
	r.hub.DeliverAll(models.ServerEvent{
		Type:   models.EventUserStatus,
		UserID: user.ID,
		Status: models.StatusOnline,
	}, user.ID)

	if channels, err := r.store.ListChannelsForUser(ctx, user.ID); err == nil {
		client.Enqueue(models.ServerEvent{Type: models.EventChannelsList, Channels: channels})
	} else {
		log.Printf("router: list channels for user %d: %v", user.ID, err)
	}
	if users, err := r.store.ListUsers(ctx); err == nil {
		client.Enqueue(models.ServerEvent{Type: models.EventUsersList, Users: users})
	} else {
		log.Printf("router: list users: %v", err)
	}
	if unread, err := r.tracker.UnreadChannels(ctx, user.ID); err == nil {
		client.Enqueue(models.ServerEvent{Type: models.EventUnreadChannels, ChannelIDs: unread})
	} else {
		log.Printf("router: unread channels for user %d: %v", user.ID, err)
	}

	r.publish(ctx, rabbitmq.KeyPresence, "user_online", map[string]any{"userId": user.ID})
}

func (r *Router) handleGetUsers(ctx context.Context, client *ws.Client) {
	users, err := r.store.ListUsers(ctx)
	if err != nil {
		sendError(client, "Failed to fetch users")
		return
	}
	client.Enqueue(models.ServerEvent{Type: models.EventUsersList, Users: users})
}

func (r *Router) handleMessage(ctx context.Context, client *ws.Client, frame []byte) {
	var f messageFrame
	if !decode(client, frame, &f) {
		return
	}

	hasChannel := f.ChannelID != nil && *f.ChannelID != 0
	hasReceiver := f.ReceiverID != nil && *f.ReceiverID != 0
	if hasChannel == hasReceiver {
		sendErrorDetails(client, "Invalid message data",
			[]string{"exactly one of channelId or receiverId must be set"})
		return
	}

	msg := models.NewMessage{Content: f.Content, Image: f.Image, SenderID: client.UserID()}
	if hasChannel {
		msg.ChannelID = f.ChannelID
	} else {
		msg.ReceiverID = f.ReceiverID
	}

	stored, err := r.store.CreateMessage(ctx, msg)
	if err != nil {
		sendError(client, "Failed to store message")
		return
	}

	full := models.FullMessage{Message: stored}
	if sender, err := r.store.GetUser(ctx, client.UserID()); err == nil {
		full.Sender = &sender
	}

	if hasChannel {
		// Channel messages go to every live connection, not only channel
		// members. Clients filter by channelId.
		r.hub.DeliverAll(models.ServerEvent{
			Type:      models.EventChannelMessage,
			Message:   &full,
			ChannelID: *f.ChannelID,
		}, 0)
		r.publish(ctx, rabbitmq.KeyChannelMessage, "message_created", full)
		return
	}

	event := models.ServerEvent{Type: models.EventDirectMessage, Message: &full}
	r.hub.Deliver(*f.ReceiverID, event)
	if *f.ReceiverID != client.UserID() {
		// The sender's other devices see their own sent message too.
		r.hub.Deliver(client.UserID(), event)
	}
	r.publish(ctx, rabbitmq.KeyDirectMessage, "message_created", full)
}

func (r *Router) handleFetchChannelMessages(ctx context.Context, client *ws.Client, frame []byte) {
	var f fetchChannelMessagesFrame
	if !decode(client, frame, &f) {
		return
	}

	msgs, err := r.store.ListChannelMessages(ctx, f.ChannelID)
	if err != nil {
		sendError(client, "Failed to fetch channel messages")
		return
	}
	full, err := r.withSenders(ctx, msgs)
	if err != nil {
		sendError(client, "Failed to fetch channel messages")
		return
	}
	client.Enqueue(models.ServerEvent{
		Type:      models.EventChannelMessages,
		ChannelID: f.ChannelID,
		Messages:  full,
	})
}

func (r *Router) handleFetchDirectMessages(ctx context.Context, client *ws.Client, frame []byte) {
	var f fetchDirectMessagesFrame
	if !decode(client, frame, &f) {
		return
	}

	msgs, err := r.store.ListDirectMessages(ctx, client.UserID(), f.UserID)
	if err != nil {
		sendError(client, "Failed to fetch direct messages")
		return
	}
	full, err := r.withSenders(ctx, msgs)
	if err != nil {
		sendError(client, "Failed to fetch direct messages")
		return
	}
	client.Enqueue(models.ServerEvent{
		Type:     models.EventDirectMessages,
		UserID:   f.UserID,
		Messages: full,
	})
}

func (r *Router) handleCreateChannel(ctx context.Context, client *ws.Client, frame []byte) {
	var f createChannelFrame
	if !decode(client, frame, &f) {
		return
	}

	name, ok := normalizeChannelName(client, f.Name)
	if !ok {
		return
	}

	channel, err := r.store.CreateChannel(ctx, models.Channel{
		Name:        name,
		Description: f.Description,
		CreatedByID: client.UserID(),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			sendError(client, "Channel name already exists")
		} else {
			sendError(client, "Failed to create channel")
		}
		return
	}

	if _, err := r.store.AddMember(ctx, channel.ID, client.UserID()); err != nil && !errors.Is(err, store.ErrAlreadyMember) {
		log.Printf("router: add creator to channel %d: %v", channel.ID, err)
	}

	r.hub.DeliverAll(models.ServerEvent{Type: models.EventNewChannel, Channel: &channel}, 0)
	client.Enqueue(models.ServerEvent{Type: models.EventChannelCreated, Channel: &channel})
	r.publish(ctx, rabbitmq.KeyChannelCreated, "channel_created", channel)
}

func (r *Router) handleCreateGroupChat(ctx context.Context, client *ws.Client, frame []byte) {
	var f createGroupChatFrame
	if !decode(client, frame, &f) {
		return
	}

	name, ok := normalizeChannelName(client, f.Name)
	if !ok {
		return
	}

	channel, err := r.store.CreateChannel(ctx, models.Channel{
		Name:        name,
		Description: f.Description,
		CreatedByID: client.UserID(),
		IsGroupChat: true,
		IsPrivate:   true,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			sendError(client, "Channel name already exists")
		} else {
			sendError(client, "Failed to create channel")
		}
		return
	}

	members := memberSet(f.MemberIDs, client.UserID())
	for _, id := range members {
		if _, err := r.store.AddMember(ctx, channel.ID, id); err != nil && !errors.Is(err, store.ErrAlreadyMember) {
			log.Printf("router: add member %d to channel %d: %v", id, channel.ID, err)
		}
	}

	// Private group: only the named members hear about it.
	event := models.ServerEvent{Type: models.EventNewChannel, Channel: &channel}
	for _, id := range members {
		r.hub.Deliver(id, event)
	}
	client.Enqueue(models.ServerEvent{Type: models.EventChannelCreated, Channel: &channel})
	r.publish(ctx, rabbitmq.KeyChannelCreated, "channel_created", channel)
}

func (r *Router) handleJoinChannel(ctx context.Context, client *ws.Client, frame []byte) {
	var f joinChannelFrame
	if !decode(client, frame, &f) {
		return
	}

	channel, err := r.store.GetChannel(ctx, f.ChannelID)
	if err != nil {
		if errors.Is(err, store.ErrChannelNotFound) {
			sendError(client, "Channel not found")
		} else {
			sendError(client, "Failed to join channel")
		}
		return
	}

	if _, err := r.store.AddMember(ctx, channel.ID, client.UserID()); err != nil {
		if errors.Is(err, store.ErrAlreadyMember) {
			sendError(client, "Already a member of this channel")
		} else {
			sendError(client, "Failed to join channel")
		}
		return
	}

	client.Enqueue(models.ServerEvent{Type: models.EventJoinedChannel, Channel: &channel})
	r.hub.DeliverAll(models.ServerEvent{
		Type:      models.EventUserJoinedChannel,
		UserID:    client.UserID(),
		ChannelID: channel.ID,
	}, 0)
	r.publish(ctx, rabbitmq.KeyChannelJoined, "channel_joined",
		map[string]any{"userId": client.UserID(), "channelId": channel.ID})
}

// handleMarkChannelRead is fire-and-forget: no reply on success or failure.
func (r *Router) handleMarkChannelRead(ctx context.Context, client *ws.Client, frame []byte) {
	var f markChannelReadFrame
	if !decode(client, frame, &f) {
		return
	}
	if err := r.tracker.MarkRead(ctx, client.UserID(), f.ChannelID, f.MessageID); err != nil {
		log.Printf("router: mark read channel %d for user %d: %v", f.ChannelID, client.UserID(), err)
	}
}

// withSenders denormalizes sender profiles onto messages with one batched
// lookup over the distinct sender ids.
func (r *Router) withSenders(ctx context.Context, msgs []models.Message) ([]models.FullMessage, error) {
	seen := make(map[int]struct{}, len(msgs))
	ids := make([]int, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}

	users, err := r.store.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	full := make([]models.FullMessage, 0, len(msgs))
	for _, m := range msgs {
		fm := models.FullMessage{Message: m}
		if sender, ok := byID[m.SenderID]; ok {
			fm.Sender = &sender
		}
		full = append(full, fm)
	}
	return full, nil
}

func (r *Router) publish(ctx context.Context, routingKey, eventName string, payload any) {
	_ = r.publisher.Publish(ctx, routingKey, rabbitmq.EventEnvelope{
		EventType: "chat_events",
		EventName: eventName,
		Payload:   payload,
	})
}

func normalizeChannelName(client *ws.Client, raw string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if !channelNamePattern.MatchString(name) {
		sendErrorDetails(client, "Invalid channel data",
			[]string{"name must contain only lowercase letters, digits, '-' or '_'"})
		return "", false
	}
	return name, true
}

func memberSet(memberIDs []int, creatorID int) []int {
	seen := map[int]struct{}{creatorID: {}}
	members := []int{creatorID}
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	return members
}

func decode(client *ws.Client, frame []byte, v any) bool {
	if err := json.Unmarshal(frame, v); err != nil {
		sendError(client, "Invalid message data")
		return false
	}
	return true
}

func sendError(client *ws.Client, message string) {
	client.Enqueue(models.ErrorEvent{Type: models.EventError, Message: message})
}

func sendErrorDetails(client *ws.Client, message string, details []string) {
	client.Enqueue(models.ErrorEvent{Type: models.EventError, Message: message, Errors: details})
}
