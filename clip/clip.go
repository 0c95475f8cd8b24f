// Package clip holds the pure pieces of the !clip command: command detection,
// title parsing, the time window around a message and the notification text.
package clip

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// Command is the chat token that requests a clip. Matching is case-insensitive.
	Command = "!clip"
	// UntitledClip is used when the command carries no title.
	UntitledClip = "Untitled Clip"
	// DefaultPad is added on both sides of the command's position in the stream.
	DefaultPad = 30 * time.Second

	watchBaseURL = "https://youtu.be/"
)

// Clip describes one honored clip request.
type Clip struct {
	VideoID   string
	Author    string
	Title     string
	MessageAt time.Time
	Elapsed   int // seconds since stream start
	Start     int // seconds, clamped at 0
	End       int // seconds, not clamped
	Link      string
}

// FormatTime renders seconds as HH:MM:SS. Hours are not capped at 24.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// IsCommand reports whether text starts with the clip command.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.ToLower(text), Command)
}

// ParseTitle returns the words after the command word, or UntitledClip.
func ParseTitle(text string) string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return UntitledClip
	}
	return strings.Join(fields[1:], " ")
}

// Elapsed returns whole seconds between streamStart and at, rounded down.
func Elapsed(at, streamStart time.Time) int {
	ms := at.Sub(streamStart).Milliseconds()
	return int(math.Floor(float64(ms) / 1000))
}

// Window returns the clip bounds around elapsed. Only the start is clamped.
func Window(elapsed int, pad time.Duration) (start, end int) {
	p := int(pad / time.Second)
	start = elapsed - p
	if start < 0 {
		start = 0
	}
	return start, elapsed + p
}

// WatchURL is a deep link into the broadcast at start seconds.
func WatchURL(videoID string, start int) string {
	return fmt.Sprintf("%s%s?t=%d", watchBaseURL, videoID, start)
}

// New builds the clip for a command message.
func New(videoID, author, text string, messageAt, streamStart time.Time, pad time.Duration) Clip {
	elapsed := Elapsed(messageAt, streamStart)
	start, end := Window(elapsed, pad)
	return Clip{
		VideoID:   videoID,
		Author:    author,
		Title:     ParseTitle(text),
		MessageAt: messageAt,
		Elapsed:   elapsed,
		Start:     start,
		End:       end,
		Link:      WatchURL(videoID, start),
	}
}

// Message is the webhook text (Discord markdown).
func (c Clip) Message() string {
	var b strings.Builder
	b.WriteString("🎬 **Clip Requested!**\n")
	fmt.Fprintf(&b, "👤 By: %s\n", c.Author)
	fmt.Fprintf(&b, "📺 Title: **%s**\n", c.Title)
	fmt.Fprintf(&b, "⏱ From: `%s` to `%s`\n", FormatTime(c.Start), FormatTime(c.End))
	fmt.Fprintf(&b, "🔗 [Watch Clip](%s)", c.Link)
	return b.String()
}
