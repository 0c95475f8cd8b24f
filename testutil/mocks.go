package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Data API paths relative to the service endpoint.
const (
	SearchPath   = "/youtube/v3/search"
	VideosPath   = "/youtube/v3/videos"
	LiveChatPath = "/youtube/v3/liveChat/messages"
)

// MockYouTubeServer creates a test server that mocks YouTube Data API responses.
// Point services at it with option.WithEndpoint(m.Endpoint()).
type MockYouTubeServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	requests []*http.Request
}

// NewMockYouTubeServer creates a new mock YouTube API server.
func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	t.Helper()
	m := &MockYouTubeServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Clone(r.Context()))
		handler, ok := m.Handlers[r.URL.Path]
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Endpoint is the base URL to pass to option.WithEndpoint.
func (m *MockYouTubeServer) Endpoint() string { return m.URL + "/" }

// Handle installs handler for path.
func (m *MockYouTubeServer) Handle(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[path] = handler
}

// Requests returns the requests seen so far.
func (m *MockYouTubeServer) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*http.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// MockSearchResponse answers search.list with the given video id/title (empty id = no results).
func (m *MockYouTubeServer) MockSearchResponse(videoID, title string) {
	m.Handle(SearchPath, func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]interface{}{}
		if videoID != "" {
			items = append(items, map[string]interface{}{
				"id":      map[string]string{"kind": "youtube#video", "videoId": videoID},
				"snippet": map[string]string{"title": title},
			})
		}
		WriteJSON(w, map[string]interface{}{"items": items})
	})
}

// MockVideosResponse answers videos.list with live streaming details.
func (m *MockYouTubeServer) MockVideosResponse(videoID, chatID, actualStart string) {
	m.Handle(VideosPath, func(w http.ResponseWriter, r *http.Request) {
		details := map[string]string{}
		if chatID != "" {
			details["activeLiveChatId"] = chatID
		}
		if actualStart != "" {
			details["actualStartTime"] = actualStart
		}
		WriteJSON(w, map[string]interface{}{
			"items": []map[string]interface{}{
				{"id": videoID, "liveStreamingDetails": details},
			},
		})
	})
}

// ChatItem builds one liveChatMessage resource.
func ChatItem(id, publishedAt, text, author string) map[string]interface{} {
	item := map[string]interface{}{
		"id": id,
		"snippet": map[string]string{
			"publishedAt":    publishedAt,
			"displayMessage": text,
		},
	}
	if author != "" {
		item["authorDetails"] = map[string]string{"displayName": author}
	}
	return item
}

// MockChatResponse answers liveChatMessages.list with a fixed page.
func (m *MockYouTubeServer) MockChatResponse(items []map[string]interface{}, nextPageToken string, pollingMillis int64) {
	m.Handle(LiveChatPath, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]interface{}{
			"items":                 items,
			"nextPageToken":         nextPageToken,
			"pollingIntervalMillis": pollingMillis,
		})
	})
}

// WriteJSON writes v with a 200 status.
func WriteJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}

// WriteAPIError writes a googleapi-shaped error body.
func WriteAPIError(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck // test mock response
		"error": map[string]interface{}{
			"code":    code,
			"message": reason,
			"errors": []map[string]string{
				{"message": reason, "domain": "youtube.quota", "reason": reason},
			},
		},
	})
}
