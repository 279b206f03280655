package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vapor-share-api/internal/models"
	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
)

type stubNotificationStore struct {
	items     []models.Notification
	markErr   error
	markedID  string
	markedFor string
	lastLimit int
}

func (s *stubNotificationStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	s.lastLimit = limit
	var out []models.Notification
	for _, n := range s.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *stubNotificationStore) MarkRead(ctx context.Context, id, userID string) error {
	s.markedID, s.markedFor = id, userID
	return s.markErr
}

func TestNotificationServiceList(t *testing.T) {
	store := &stubNotificationStore{items: []models.Notification{
		{ID: "n1", UserID: senderClaims().Subject, Filename: "a.txt"},
		{ID: "n2", UserID: "someone-else"},
	}}
	svc := NewNotificationService(store, nil)

	items, err := svc.List(context.Background(), senderClaims())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n1", items[0].ID)
	assert.Equal(t, notificationListLimit, store.lastLimit)

	empty, err := NewNotificationService(&stubNotificationStore{}, nil).List(context.Background(), senderClaims())
	require.NoError(t, err)
	assert.NotNil(t, empty)

	_, err = svc.List(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestNotificationServiceMarkRead(t *testing.T) {
	const id = "5b0c2a52-88b3-4a4e-8d43-5c84f8a0f4b1"

	store := &stubNotificationStore{}
	svc := NewNotificationService(store, nil)
	require.NoError(t, svc.MarkRead(context.Background(), senderClaims(), id))
	assert.Equal(t, id, store.markedID)
	assert.Equal(t, senderClaims().Subject, store.markedFor)

	store.markErr = sql.ErrNoRows
	assert.ErrorIs(t, svc.MarkRead(context.Background(), senderClaims(), id), appErrors.ErrNotificationAbsent)

	store.markErr = errStub
	assert.ErrorIs(t, svc.MarkRead(context.Background(), senderClaims(), id), appErrors.ErrInternal)

	assert.ErrorIs(t, svc.MarkRead(context.Background(), senderClaims(), "not-a-uuid"), appErrors.ErrNotificationAbsent)
	assert.ErrorIs(t, svc.MarkRead(context.Background(), nil, id), appErrors.ErrUnauthorized)
}
