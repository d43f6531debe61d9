package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"farmerconnect/internal/events"
	"farmerconnect/internal/marketerrors"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	payloads []any
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestNotificationService_Notify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	pub := &recordingPublisher{}
	svc := NewNotificationService(repo, pub)

	require.NoError(t, svc.Notify(ctx, models.Notification{UserID: "u1", Kind: models.NotifyBidPlaced, Title: "New bid"}))
	require.NoError(t, svc.Notify(ctx, models.Notification{UserID: ""}), "notifications without a user are dropped")

	require.Equal(t, []string{events.NotificationsChannel}, pub.channels)
	sent, ok := pub.payloads[0].(models.Notification)
	require.True(t, ok)
	require.NotEmpty(t, sent.NotificationID)
	require.False(t, sent.CreatedAt.IsZero())

	list, total, err := svc.List(ctx, "u1", false, models.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, sent.NotificationID, list[0].NotificationID)
}

func TestNotificationService_PublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	svc := NewNotificationService(repo, &recordingPublisher{err: errors.New("redis down")})

	require.NoError(t, svc.Notify(ctx, models.Notification{UserID: "u1", Title: "x"}))
	n, err := svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestNotificationService_ReadFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	svc := NewNotificationService(repo, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Notify(ctx, models.Notification{UserID: "u1", Title: "hello"}))
	}
	list, _, err := svc.List(ctx, "u1", true, models.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 3)

	require.NoError(t, svc.MarkRead(ctx, "u1", list[0].NotificationID))
	require.ErrorIs(t, svc.MarkRead(ctx, "u2", list[1].NotificationID), marketerrors.ErrNotificationNotFound)

	unread, err := svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, unread)

	changed, err := svc.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, changed)
}
