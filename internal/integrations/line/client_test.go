package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		"test-channel-token",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_EmptyToken(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "access token")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient("token")
	require.NoError(t, err)
	require.Equal(t, "https://api.line.me", c.baseURL)
}

// ---------------------------------------------------------------------------
// Client.Reply
// ---------------------------------------------------------------------------

func TestReply_HappyPath(t *testing.T) {
	var gotAuth string
	var gotBody replyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/bot/message/reply", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	require.NoError(t, c.Reply(context.Background(), "reply-token-1", "hello there"))
	require.Equal(t, "Bearer test-channel-token", gotAuth)
	require.Equal(t, "reply-token-1", gotBody.ReplyToken)
	require.Len(t, gotBody.Messages, 1)
	require.Equal(t, "text", gotBody.Messages[0].Type)
	require.Equal(t, "hello there", gotBody.Messages[0].Text)
}

func TestReply_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		_, _ = w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.Reply(context.Background(), "expired-token", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status")
	require.Contains(t, err.Error(), "400")
}

func TestReply_EmptyToken(t *testing.T) {
	c, err := NewClient("token")
	require.NoError(t, err)
	err = c.Reply(context.Background(), " ", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "reply token")
}

func TestReply_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	require.Error(t, c.Reply(context.Background(), "reply-token-1", "hello"))
}

// ---------------------------------------------------------------------------
// Client.GetProfile
// ---------------------------------------------------------------------------

func TestGetProfile_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/bot/profile/U123", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"displayName":"Taro","userId":"U123"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	name, err := c.GetProfile(context.Background(), "U123")
	require.NoError(t, err)
	require.Equal(t, "Taro", name)
}

func TestGetProfile_MissingDisplayName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"userId":"U123"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetProfile(context.Background(), "U123")
	require.Error(t, err)
	require.Contains(t, err.Error(), "display name")
}

func TestGetProfile_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		_, _ = w.Write([]byte(`{"message":"Not found"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetProfile(context.Background(), "Unknown")
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

func TestGetProfile_EmptyUserID(t *testing.T) {
	c, err := NewClient("token")
	require.NoError(t, err)
	_, err = c.GetProfile(context.Background(), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "user id")
}
