package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/cptrainer/internal/config"
)

func TestBotAPI_PostsSendMessage(t *testing.T) {
	var got SendMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	b := NewBotAPI(srv.URL+"/", "123:abc")
	require.NoError(t, b.Notify(context.Background(), 42, "hello"))
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, "hello", got.Text)
}

func TestBotAPI_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"non 2xx", http.StatusForbidden, `{"ok":false,"description":"Forbidden: bot was blocked by the user"}`, "blocked"},
		{"ok false", http.StatusOK, `{"ok":false,"description":"chat not found"}`, "chat not found"},
		{"garbage", http.StatusOK, `<html>`, "delivery failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := NewBotAPI(srv.URL, "t").Notify(context.Background(), 1, "x")
			require.ErrorIs(t, err, ErrDeliveryFailed)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestBotAPI_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewBotAPI(url, "secret-token").Notify(context.Background(), 1, "x")
	require.ErrorIs(t, err, ErrDeliveryFailed)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestNew_SelectsImplementation(t *testing.T) {
	_, isLog := New(config.BotConfig{}).(LogNotifier)
	assert.True(t, isLog)

	b, isBot := New(config.BotConfig{APIURL: "http://x", Token: "t"}).(*BotAPI)
	require.True(t, isBot)
	assert.Equal(t, "http://x", b.APIURL)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Notify(context.Background(), 7, "hi"))
}
