package slack

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/admissions/pkg/retry"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("xoxb-test")
	cfg.BaseURL = srv.URL
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.Retrier = retry.New(
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(5*time.Millisecond),
		retry.WithJitter(0),
	)
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingToken(t *testing.T) {
	_, err := NewClient(DefaultClientConfig(" "))
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestConversationInfo(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/conversations.info", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "C123", r.PostForm.Get("channel"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"channel":{"id":"C123","name":"team-rocket","name_normalized":"team-rocket","is_archived":false}}`)
	})

	ch, err := c.ConversationInfo(context.Background(), "C123")
	require.NoError(t, err)
	assert.Equal(t, "C123", ch.ID)
	assert.Equal(t, "team-rocket", ch.NameNormalized)
	assert.False(t, ch.IsArchived)
}

func TestRenameConversation_SendsName(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "team-rocket-spring-hack", r.PostForm.Get("name"))
		_, _ = io.WriteString(w, `{"ok":true,"channel":{"id":"C1","name_normalized":"team-rocket-spring-hack"}}`)
	})

	ch, err := c.RenameConversation(context.Background(), "C1", "team-rocket-spring-hack")
	require.NoError(t, err)
	assert.Equal(t, "team-rocket-spring-hack", ch.NameNormalized)
}

func TestCall_PermanentErrorIsNotRetried(t *testing.T) {
	var hits int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, `{"ok":false,"error":"channel_not_found"}`)
	})

	err := c.ArchiveConversation(context.Background(), "C404")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "channel_not_found", apiErr.Code)
	assert.Equal(t, "conversations.archive", apiErr.Method)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCall_UnknownErrorCodeIsFinal(t *testing.T) {
	var hits int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, `{"ok":false,"error":"something_new"}`)
	})

	err := c.ArchiveConversation(context.Background(), "C1")
	assert.EqualError(t, err, "slack conversations.archive: something_new")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCall_RetriesServerErrors(t *testing.T) {
	var hits int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	require.NoError(t, c.ArchiveConversation(context.Background(), "C1"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCall_HonorsRateLimit(t *testing.T) {
	var hits int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	require.NoError(t, c.ArchiveConversation(context.Background(), "C1"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCall_ClientErrorStatusIsFinal(t *testing.T) {
	var hits int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	})

	err := c.ArchiveConversation(context.Background(), "C1")
	assert.EqualError(t, err, "slack conversations.archive: status 403")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
