package services

import (
	"context"
	"testing"

	"github.com/karigarlink/rfq-service/internal/models"
	"github.com/karigarlink/rfq-service/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotify(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	online := store.addUser("Online", models.Provider)
	offline := store.addUser("Offline", models.Provider)
	pusher := newRecordingPusher(online.ID)
	svc := NewNotificationService(store, pusher, zap.NewNop().Sugar())

	n, err := svc.Notify(ctx, models.NotificationRequest{RecipientID: online.ID, Type: models.OrderUpdate, Message: "Order shipped"})
	require.NoError(t, err)
	assert.False(t, n.IsRead)
	events := pusher.eventsFor(online.ID)
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventNotification, events[0].Event)
	assert.Equal(t, n.ID, events[0].Payload.(*models.Notification).ID)

	_, err = svc.Notify(ctx, models.NotificationRequest{RecipientID: offline.ID, Type: models.OrderUpdate, Message: "Order shipped"})
	require.NoError(t, err)
	list, err := svc.GetNotifications(ctx, offline)
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 1)

	_, err = svc.Notify(ctx, models.NotificationRequest{RecipientID: online.ID, Type: "PING", Message: "x"})
	requireKind(t, err, models.ValidationKind)

	_, err = svc.Notify(ctx, models.NotificationRequest{RecipientID: "5e3c8b1a-0d6f-4f2e-8a77-2b9c4d1e6f30", Type: models.OrderUpdate, Message: "x"})
	requireKind(t, err, models.NotFoundKind)
}

func TestNotificationReadState(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for _, msg := range []string{"first", "second", "third"} {
		_, err := env.notes.Notify(ctx, models.NotificationRequest{RecipientID: env.buyer.ID, Type: models.OrderUpdate, Message: msg})
		require.NoError(t, err)
	}

	list, err := env.notes.GetNotifications(ctx, env.buyer)
	require.NoError(t, err)
	assert.Equal(t, 3, list.Unread)
	require.Len(t, list.Notifications, 3)
	assert.Equal(t, "third", list.Notifications[0].Message)

	oldest := list.Notifications[2]
	require.NoError(t, env.notes.MarkRead(ctx, env.buyer, oldest.ID))
	require.NoError(t, env.notes.MarkRead(ctx, env.buyer, oldest.ID))

	err = env.notes.MarkRead(ctx, env.provider, list.Notifications[0].ID)
	requireKind(t, err, models.NotFoundKind)
	err = env.notes.MarkRead(ctx, env.buyer, "garbage")
	requireKind(t, err, models.NotFoundKind)

	list, err = env.notes.GetNotifications(ctx, env.buyer)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Unread)
	assert.True(t, list.Notifications[2].IsRead)

	updated, err := env.notes.MarkAllRead(ctx, env.buyer)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	updated, err = env.notes.MarkAllRead(ctx, env.buyer)
	require.NoError(t, err)
	assert.EqualValues(t, 0, updated)

	list, err = env.notes.GetNotifications(ctx, env.buyer)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Unread)
	for _, n := range list.Notifications {
		assert.True(t, n.IsRead)
	}
}

func TestGetNotificationsLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for i := 0; i < notificationsPageSize+5; i++ {
		_, err := env.notes.Notify(ctx, models.NotificationRequest{RecipientID: env.other.ID, Type: models.OrderUpdate, Message: "update"})
		require.NoError(t, err)
	}
	list, err := env.notes.GetNotifications(ctx, env.other)
	require.NoError(t, err)
	assert.Len(t, list.Notifications, notificationsPageSize)
	assert.Equal(t, notificationsPageSize+5, list.Unread)
}
