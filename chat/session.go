package chat

import (
	"sync"
	"time"

	"github.com/onnwee/clipbot/config"
)

// Session is the mutable state of one run, tied to a single located broadcast.
// Only the poll loop writes to it after Bind; Snapshot is safe from other goroutines.
type Session struct {
	mu sync.RWMutex

	videoID     string
	title       string
	chatID      string
	streamStart time.Time

	watermark  time.Time
	pageToken  string
	interval   time.Duration
	lastClipAt time.Time
}

// NewSession returns an unbound session polling every defaultInterval until the
// server suggests otherwise.
func NewSession(defaultInterval time.Duration) *Session {
	if defaultInterval <= 0 {
		defaultInterval = config.DefaultPollInterval
	}
	return &Session{interval: defaultInterval}
}

// Bind commits the located broadcast.
func (s *Session) Bind(videoID, title, chatID string, streamStart time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoID = videoID
	s.title = title
	s.chatID = chatID
	s.streamStart = streamStart
}

// Ready reports whether a broadcast has been bound.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatID != "" && s.videoID != "" && !s.streamStart.IsZero()
}

// Interval is the delay before the next poll.
func (s *Session) Interval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interval
}

func (s *Session) cursor() (chatID, pageToken string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatID, s.pageToken
}

func (s *Session) broadcast() (videoID string, streamStart time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.videoID, s.streamStart
}

// advanceCursor stores the next page token and the suggested interval (kept when zero).
func (s *Session) advanceCursor(next string, suggested time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageToken = next
	if suggested > 0 {
		s.interval = suggested
	}
}

// accept moves the watermark to at and returns true when at is strictly newer.
func (s *Session) accept(at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !at.After(s.watermark) {
		return false
	}
	s.watermark = at
	return true
}

// claimClip records now as the last honored clip unless the cooldown is still running.
func (s *Session) claimClip(now time.Time, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastClipAt.IsZero() && now.Sub(s.lastClipAt) < cooldown {
		return false
	}
	s.lastClipAt = now
	return true
}

// Snapshot is a read-only copy of the session for status reporting.
type Snapshot struct {
	Ready       bool      `json:"ready"`
	VideoID     string    `json:"video_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	ChatID      string    `json:"chat_id,omitempty"`
	StreamStart time.Time `json:"stream_start,omitempty"`
	Watermark   time.Time `json:"watermark,omitempty"`
	PageToken   string    `json:"page_token,omitempty"`
	IntervalMS  int64     `json:"poll_interval_ms"`
	LastClipAt  time.Time `json:"last_clip_at,omitempty"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Ready:       s.chatID != "" && s.videoID != "" && !s.streamStart.IsZero(),
		VideoID:     s.videoID,
		Title:       s.title,
		ChatID:      s.chatID,
		StreamStart: s.streamStart,
		Watermark:   s.watermark,
		PageToken:   s.pageToken,
		IntervalMS:  s.interval.Milliseconds(),
		LastClipAt:  s.lastClipAt,
	}
}
