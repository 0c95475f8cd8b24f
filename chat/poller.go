package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/clipbot/clip"
	"github.com/onnwee/clipbot/config"
	"github.com/onnwee/clipbot/telemetry"
	"github.com/onnwee/clipbot/youtubeapi"
)

// ErrSessionNotReady is returned by Run when no broadcast was bound.
var ErrSessionNotReady = errors.New("chat session not initialized")

const unknownAuthor = "Unknown"

// ChatLister is the part of the platform the Poller uses.
type ChatLister interface {
	ListChatMessages(ctx context.Context, chatID, pageToken string) (youtubeapi.ChatPage, error)
}

// Notifier delivers clip messages. Implementations handle their own failures.
type Notifier interface {
	Notify(ctx context.Context, content string)
}

// ClipRecorder stores honored clips.
type ClipRecorder interface {
	RecordClip(ctx context.Context, c clip.Clip) error
}

// Options tune a Poller. Zero values fall back to the defaults.
type Options struct {
	Pad      time.Duration
	Cooldown time.Duration
	// Recorder is optional.
	Recorder ClipRecorder
	// Now is the wall clock used for the cooldown.
	Now func() time.Time
	// Sleep waits between iterations; it returns early with ctx's error.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Poller watches the bound chat for clip commands.
type Poller struct {
	session  *Session
	platform ChatLister
	notifier Notifier
	recorder ClipRecorder

	pad      time.Duration
	cooldown time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewPoller wires a poller to an already located session.
func NewPoller(session *Session, platform ChatLister, notifier Notifier, opts Options) *Poller {
	p := &Poller{
		session:  session,
		platform: platform,
		notifier: notifier,
		recorder: opts.Recorder,
		pad:      opts.Pad,
		cooldown: opts.Cooldown,
		now:      opts.Now,
		sleep:    opts.Sleep,
	}
	if p.pad <= 0 {
		p.pad = clip.DefaultPad
	}
	if p.cooldown <= 0 {
		p.cooldown = config.DefaultClipCooldown
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p
}

// Run polls until ctx is cancelled. Each iteration completes before the next is
// scheduled, and iteration errors never end the loop.
func (p *Poller) Run(ctx context.Context) error {
	if !p.session.Ready() {
		return ErrSessionNotReady
	}
	slog.Info("bot is now listening for clip commands", slog.String("command", clip.Command))
	for {
		if err := p.PollOnce(ctx); err != nil {
			telemetry.PollErrors.Inc()
			slog.Error("error polling chat", slog.Any("err", err))
		}
		d := p.session.Interval()
		telemetry.SetPollInterval(d)
		if err := p.sleep(ctx, d); err != nil {
			slog.Info("chat poller stopped")
			return nil
		}
	}
}

// PollOnce fetches one chat page and handles its messages. It is a no-op until
// the session is bound.
func (p *Poller) PollOnce(ctx context.Context) error {
	if !p.session.Ready() {
		slog.Debug("chat poll skipped: session not initialized")
		return nil
	}
	telemetry.PollCycles.Inc()

	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	chatID, pageToken := p.session.cursor()
	ctx, span := telemetry.StartSpan(ctx, "chat", "poll", attribute.String("chat_id", chatID))
	defer span.End()

	var (
		page youtubeapi.ChatPage
		err  error
	)
	took := telemetry.TimeFunc(telemetry.PollDuration, func() {
		page, err = p.platform.ListChatMessages(ctx, chatID, pageToken)
	})
	span.SetAttributes(attribute.Int64("fetch_ms", took.Milliseconds()))
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	p.session.advanceCursor(page.NextPageToken, page.PollingInterval)
	span.SetAttributes(attribute.Int("messages", len(page.Messages)))

	for _, m := range page.Messages {
		p.handle(ctx, m)
	}
	telemetry.SetSpanSuccess(span)
	return nil
}

func (p *Poller) handle(ctx context.Context, m youtubeapi.ChatMessage) {
	if !p.session.accept(m.PublishedAt) {
		return
	}
	telemetry.ChatMessages.Inc()
	if !clip.IsCommand(m.Text) {
		return
	}
	log := telemetry.LoggerWithCorr(ctx)
	author := m.Author
	if author == "" {
		author = unknownAuthor
	}

	if !p.session.claimClip(p.now(), p.cooldown) {
		telemetry.ClipsSuppressed.Inc()
		log.Info("cooldown active; ignoring duplicate clip command", slog.String("author", author))
		return
	}

	videoID, streamStart := p.session.broadcast()
	c := clip.New(videoID, author, m.Text, m.PublishedAt, streamStart, p.pad)
	telemetry.ClipsHonored.Inc()
	log.Info("clip requested",
		slog.String("author", c.Author),
		slog.String("title", c.Title),
		slog.String("from", clip.FormatTime(c.Start)),
		slog.String("to", clip.FormatTime(c.End)),
		slog.String("link", c.Link))

	p.notifier.Notify(ctx, c.Message())
	if p.recorder != nil {
		if err := p.recorder.RecordClip(ctx, c); err != nil {
			log.Warn("failed to record clip", slog.Any("err", err))
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
