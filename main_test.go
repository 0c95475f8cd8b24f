package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onnwee/clipbot/chat"
	"github.com/onnwee/clipbot/config"
	"github.com/onnwee/clipbot/testutil"
	"github.com/onnwee/clipbot/youtubeapi"
)

const streamStart = "2025-03-01T18:00:00Z"

func testConfig(m *testutil.MockYouTubeServer, webhookURL string) *config.Config {
	return &config.Config{
		ChannelID:    "UC123",
		APIKeys:      []string{"k1"},
		APIBaseURL:   m.Endpoint(),
		WebhookURL:   webhookURL,
		PollInterval: 10 * time.Millisecond,
		ClipPad:      config.DefaultClipPad,
		ClipCooldown: config.DefaultClipCooldown,
	}
}

func chatRequests(m *testutil.MockYouTubeServer) int {
	n := 0
	for _, r := range m.Requests() {
		if r.URL.Path == testutil.LiveChatPath {
			n++
		}
	}
	return n
}

// liveMock serves a bound broadcast whose chat holds one clip command.
func liveMock(t *testing.T) *testutil.MockYouTubeServer {
	t.Helper()
	m := testutil.NewMockYouTubeServer(t)
	m.MockSearchResponse("vid1", "Friday stream")
	m.MockVideosResponse("vid1", "chat-1", streamStart)
	m.MockChatResponse([]map[string]interface{}{
		testutil.ChatItem("m1", "2025-03-01T18:01:05Z", "!clip Nice One", "alice"),
	}, "next", 0)
	return m
}

func webhookServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, &posts
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 5s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunStartupFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(m *testutil.MockYouTubeServer)
		wantErr error
	}{
		{
			name:    "no live video",
			setup:   func(m *testutil.MockYouTubeServer) { m.MockSearchResponse("", "") },
			wantErr: chat.ErrNoLiveBroadcast,
		},
		{
			name: "no active chat",
			setup: func(m *testutil.MockYouTubeServer) {
				m.MockSearchResponse("vid1", "Friday stream")
				m.MockVideosResponse("vid1", "", streamStart)
			},
			wantErr: chat.ErrMissingStreamDetails,
		},
		{
			name: "no start time",
			setup: func(m *testutil.MockYouTubeServer) {
				m.MockSearchResponse("vid1", "Friday stream")
				m.MockVideosResponse("vid1", "chat-1", "")
			},
			wantErr: chat.ErrMissingStreamDetails,
		},
		{
			name: "search over quota",
			setup: func(m *testutil.MockYouTubeServer) {
				m.Handle(testutil.SearchPath, func(w http.ResponseWriter, r *http.Request) {
					testutil.WriteAPIError(w, http.StatusForbidden, "quotaExceeded")
				})
			},
			wantErr: youtubeapi.ErrQuotaExhausted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testutil.NewMockYouTubeServer(t)
			tt.setup(m)
			hook, posts := webhookServer(t)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := run(ctx, testConfig(m, hook.URL))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("run() error = %v, want %v", err, tt.wantErr)
			}
			if n := chatRequests(m); n != 0 {
				t.Errorf("chat requests = %d, want 0 after a failed start", n)
			}
			if posts.Load() != 0 {
				t.Errorf("webhook posts = %d, want 0", posts.Load())
			}
		})
	}
}

func TestRunPollsUntilCancelled(t *testing.T) {
	m := liveMock(t)
	hook, posts := webhookServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(ctx, testConfig(m, hook.URL)) }()

	waitFor(t, func() bool { return chatRequests(m) >= 3 })
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	// the same page is served every time; the watermark keeps it to one clip
	if got := posts.Load(); got != 1 {
		t.Errorf("webhook posts = %d, want 1", got)
	}
}

func TestRunKeepsPollingWhenStatusServerCannotBind(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	m := liveMock(t)
	hook, _ := webhookServer(t)
	cfg := testConfig(m, hook.URL)
	cfg.HTTPAddr = busy.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	// the bind fails within the first poll interval; polling must outlive it
	waitFor(t, func() bool { return chatRequests(m) >= 5 })
	select {
	case err := <-done:
		t.Fatalf("run() returned %v before cancellation", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
