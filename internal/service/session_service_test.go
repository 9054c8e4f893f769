package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pdf-signer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_CreateGetDelete(t *testing.T) {
	svc := NewSessionService(time.Hour, nopLogger{})

	sess := svc.Create()
	require.NotEmpty(t, sess.ID)
	require.NotNil(t, sess.Placements)

	got, err := svc.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	require.NoError(t, svc.Delete(sess.ID))
	_, err = svc.Get(sess.ID)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
	assert.True(t, errors.Is(svc.Delete(sess.ID), domain.ErrSessionNotFound))
}

func TestSessionService_SweepRemovesIdle(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewSessionService(time.Hour, nopLogger{})
	svc.now = func() time.Time { return now }

	idle := svc.Create()
	now = now.Add(30 * time.Minute)
	active := svc.Create()

	now = now.Add(45 * time.Minute)
	_, err := svc.Get(active.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.Sweep())
	_, err = svc.Get(idle.ID)
	assert.Error(t, err)
	_, err = svc.Get(active.ID)
	assert.NoError(t, err)
}

func TestSessionService_ZeroTTLNeverExpires(t *testing.T) {
	svc := NewSessionService(0, nopLogger{})
	svc.Create()
	svc.now = func() time.Time { return time.Now().Add(1000 * time.Hour) }

	assert.Equal(t, 0, svc.Sweep())
	assert.Equal(t, 1, svc.Len())
}

func TestSessionService_JanitorRunsHousekeepingWithoutTTL(t *testing.T) {
	svc := NewSessionService(0, nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := make(chan struct{}, 1)
	svc.StartJanitor(ctx, time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("housekeeping never ran")
	}
}

func TestSession_SetDocumentResetsPlacements(t *testing.T) {
	svc := NewSessionService(time.Hour, nopLogger{})
	sess := svc.Create()
	sess.Placements.Add(domain.Placement{URL: "a", Width: 10, Height: 10})

	sess.setDocument(&domain.DocumentInfo{Name: "doc.pdf", Pages: []domain.PageSize{a4}}, []byte("%PDF"))

	view := sess.View()
	assert.Empty(t, view.Placements)
	require.NotNil(t, view.Document)
	assert.Equal(t, 1, view.Document.PageCount())
}
