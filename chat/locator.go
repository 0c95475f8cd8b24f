package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/clipbot/telemetry"
	"github.com/onnwee/clipbot/youtubeapi"
)

var (
	// ErrNoLiveBroadcast means the channel has no live video right now.
	ErrNoLiveBroadcast = errors.New("no live broadcast found")
	// ErrMissingStreamDetails means the live video has no active chat or no actual start time.
	ErrMissingStreamDetails = errors.New("missing live stream details")
)

// UntitledStream is logged when the live video has no title.
const UntitledStream = "Untitled Stream"

// BroadcastFinder is the part of the platform the Locator uses.
type BroadcastFinder interface {
	SearchLiveVideos(ctx context.Context, channelID string) ([]youtubeapi.LiveVideo, error)
	StreamDetails(ctx context.Context, videoID string) (youtubeapi.StreamDetails, error)
}

// Locator finds the channel's live broadcast and binds it to a Session.
type Locator struct {
	platform BroadcastFinder
	session  *Session
}

// NewLocator creates a Locator writing into session.
func NewLocator(platform BroadcastFinder, session *Session) *Locator {
	return &Locator{platform: platform, session: session}
}

// Locate runs once. It does not wait for a stream to go live.
func (l *Locator) Locate(ctx context.Context, channelID string) error {
	ctx, span := telemetry.StartSpan(ctx, "chat", "locate", attribute.String("channel_id", channelID))
	defer span.End()

	err := l.locate(ctx, channelID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetSpanSuccess(span)
	return nil
}

func (l *Locator) locate(ctx context.Context, channelID string) error {
	videos, err := l.platform.SearchLiveVideos(ctx, channelID)
	if err != nil {
		return err
	}
	if len(videos) == 0 || videos[0].ID == "" {
		return fmt.Errorf("channel %s: %w", channelID, ErrNoLiveBroadcast)
	}
	live := videos[0]
	title := live.Title
	if title == "" {
		title = UntitledStream
	}

	details, err := l.platform.StreamDetails(ctx, live.ID)
	if err != nil {
		return err
	}
	if details.ActiveChatID == "" || details.ActualStart.IsZero() {
		return fmt.Errorf("video %s: %w", live.ID, ErrMissingStreamDetails)
	}

	l.session.Bind(live.ID, title, details.ActiveChatID, details.ActualStart)
	slog.Info("live broadcast located",
		slog.String("video_id", live.ID),
		slog.String("title", title),
		slog.Time("stream_started_at", details.ActualStart))
	return nil
}
