package chat

import (
	"context"
	"sync"
	"time"

	"github.com/onnwee/clipbot/clip"
	"github.com/onnwee/clipbot/youtubeapi"
)

type fakePlatform struct {
	videos     []youtubeapi.LiveVideo
	searchErr  error
	details    youtubeapi.StreamDetails
	detailsErr error

	pages    []youtubeapi.ChatPage
	pageErrs []error
	tokens   []string
}

func (f *fakePlatform) SearchLiveVideos(ctx context.Context, channelID string) ([]youtubeapi.LiveVideo, error) {
	return f.videos, f.searchErr
}

func (f *fakePlatform) StreamDetails(ctx context.Context, videoID string) (youtubeapi.StreamDetails, error) {
	return f.details, f.detailsErr
}

func (f *fakePlatform) ListChatMessages(ctx context.Context, chatID, pageToken string) (youtubeapi.ChatPage, error) {
	f.tokens = append(f.tokens, pageToken)
	i := len(f.tokens) - 1
	if i < len(f.pageErrs) && f.pageErrs[i] != nil {
		return youtubeapi.ChatPage{}, f.pageErrs[i]
	}
	if i < len(f.pages) {
		return f.pages[i], nil
	}
	return youtubeapi.ChatPage{}, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(ctx context.Context, content string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, content)
}

type fakeRecorder struct {
	clips []clip.Clip
	err   error
}

func (r *fakeRecorder) RecordClip(ctx context.Context, c clip.Clip) error {
	r.clips = append(r.clips, c)
	return r.err
}

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
