package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanpakhare/javanotes/internal/config"
)

func TestCheckOrigin(t *testing.T) {
	s := &AuthoringServer{
		config: &config.Config{Server: config.ServerConfig{
			Host: "localhost",
			Port: 8080,
			AllowedOrigins: []string{
				"http://editor.example.com:3000",
				"studio.local:4000",
			},
		}},
	}

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"missing origin", "", false},
		{"own host", "http://localhost:8080", true},
		{"own host https", "https://localhost:8080", true},
		{"loopback", "http://127.0.0.1:8080", true},
		{"wrong port", "http://localhost:9999", false},
		{"non http scheme", "ftp://localhost:8080", false},
		{"unparseable", "://nope", false},
		{"allowed origin url", "http://editor.example.com:3000", true},
		{"allowed bare host", "http://studio.local:4000", true},
		{"unknown host", "http://evil.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, s.checkOrigin(r))
		})
	}
}

func TestHandleWebSocketRejectsBadOrigin(t *testing.T) {
	s := newTestServer(t, map[string]string{"guide.md": guideDoc})

	ts := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	defer ts.Close()

	for _, origin := range []string{"", "http://evil.example.com"} {
		req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
		require.NoError(t, err)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, "origin %q", origin)
	}
}

func TestWebSocketLiveReloadFlow(t *testing.T) {
	s := newTestServer(t, map[string]string{"guide.md": guideDoc})
	s.config.Server.AllowedOrigins = []string{"http://editor.example.com:3000"}
	drainBroadcast(s)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.runHub(hubCtx)

	ts := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"http://editor.example.com:3000"}},
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return clientCount(s) == 1 },
		2*time.Second, 10*time.Millisecond)

	s.broadcastMessage(UpdateMessage{Type: "reload", Target: "guide.html", Timestamp: time.Now()})

	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)

		var msg UpdateMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == "reload" {
			assert.Equal(t, "guide.html", msg.Target)
			break
		}
	}

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return clientCount(s) == 0 },
		2*time.Second, 10*time.Millisecond)
}
