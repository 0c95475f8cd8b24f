// Package youtubeapi wraps the YouTube Data API for the three read calls the bot
// needs: finding a channel's live video, reading its live streaming details and
// paging through its live chat. Every call runs through a Rotator so a quota
// error on one credential falls over to the next.
package youtubeapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/clipbot/config"
)

// LiveVideo is a search hit for a channel's live broadcast.
type LiveVideo struct {
	ID    string
	Title string
}

// StreamDetails are the live streaming fields of a video. Missing fields are left zero.
type StreamDetails struct {
	ActiveChatID string
	ActualStart  time.Time
}

// ChatMessage is one live chat message in arrival order.
type ChatMessage struct {
	ID          string
	PublishedAt time.Time
	Text        string
	Author      string
}

// ChatPage is one liveChatMessages.list response.
type ChatPage struct {
	Messages        []ChatMessage
	NextPageToken   string
	PollingInterval time.Duration // zero when the server did not suggest one
}

// Client issues YouTube Data API calls through a credential Rotator.
type Client struct {
	rot *Rotator[*yt.Service]
}

// NewClient wraps an existing rotator (tests build one from fake services).
func NewClient(rot *Rotator[*yt.Service]) *Client {
	return &Client{rot: rot}
}

// NewFromConfig builds one service per API key plus one for the optional OAuth credential.
// hc supplies the base transport and timeout; nil uses http.DefaultClient.
func NewFromConfig(ctx context.Context, cfg *config.Config, hc *http.Client) (*Client, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	var entries []Credentialed[*yt.Service]
	for i, key := range cfg.APIKeys {
		svc, err := NewKeyService(ctx, key, cfg.APIBaseURL, hc)
		if err != nil {
			return nil, fmt.Errorf("youtube service for key %d: %w", i, err)
		}
		entries = append(entries, Credentialed[*yt.Service]{Label: fmt.Sprintf("api-key-%d", i), Client: svc})
	}
	if cfg.OAuth != nil {
		svc, err := NewOAuthService(ctx, *cfg.OAuth, cfg.APIBaseURL, hc)
		if err != nil {
			return nil, fmt.Errorf("youtube oauth service: %w", err)
		}
		entries = append(entries, Credentialed[*yt.Service]{Label: "oauth", Client: svc})
	}
	rot, err := NewRotator(entries)
	if err != nil {
		return nil, err
	}
	slog.Info("youtube client ready", slog.Int("credentials", rot.Len()))
	return NewClient(rot), nil
}

// NewKeyService returns a service authenticated by an API key.
func NewKeyService(ctx context.Context, key, baseURL string, hc *http.Client) (*yt.Service, error) {
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{
		Transport: &transport.APIKey{Key: key, Transport: base},
		Timeout:   hc.Timeout,
	}
	return newService(ctx, client, baseURL)
}

// NewOAuthService returns a service that refreshes access tokens from a stored refresh token.
func NewOAuthService(ctx context.Context, cred config.OAuthCredential, baseURL string, hc *http.Client) (*yt.Service, error) {
	oc := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{yt.YoutubeReadonlyScope},
	}
	// token refreshes use hc as well
	ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	client := oc.Client(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	client.Timeout = hc.Timeout
	return newService(ctx, client, baseURL)
}

func newService(ctx context.Context, client *http.Client, baseURL string) (*yt.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if baseURL != "" {
		opts = append(opts, option.WithEndpoint(baseURL))
	}
	return yt.NewService(ctx, opts...)
}

// Active returns the index and label of the credential in use.
func (c *Client) Active() (int, string) { return c.rot.Active() }

// SearchLiveVideos returns at most one video the channel is currently broadcasting.
func (c *Client) SearchLiveVideos(ctx context.Context, channelID string) ([]LiveVideo, error) {
	var out []LiveVideo
	err := c.rot.Do(ctx, "search.list", func(svc *yt.Service) error {
		res, err := svc.Search.List([]string{"snippet"}).
			ChannelId(channelID).
			EventType("live").
			Type("video").
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		out = out[:0]
		for _, item := range res.Items {
			if item == nil || item.Id == nil {
				continue
			}
			v := LiveVideo{ID: item.Id.VideoId}
			if item.Snippet != nil {
				v.Title = item.Snippet.Title
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search live videos: %w", err)
	}
	return out, nil
}

// StreamDetails reads the active chat id and actual start time of a video.
func (c *Client) StreamDetails(ctx context.Context, videoID string) (StreamDetails, error) {
	var out StreamDetails
	err := c.rot.Do(ctx, "videos.list", func(svc *yt.Service) error {
		res, err := svc.Videos.List([]string{"liveStreamingDetails"}).
			Id(videoID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		out = StreamDetails{}
		if len(res.Items) == 0 || res.Items[0] == nil || res.Items[0].LiveStreamingDetails == nil {
			return nil
		}
		d := res.Items[0].LiveStreamingDetails
		out.ActiveChatID = d.ActiveLiveChatId
		if d.ActualStartTime != "" {
			t, err := time.Parse(time.RFC3339, d.ActualStartTime)
			if err != nil {
				return fmt.Errorf("parse actualStartTime %q: %w", d.ActualStartTime, err)
			}
			out.ActualStart = t.UTC()
		}
		return nil
	})
	if err != nil {
		return StreamDetails{}, fmt.Errorf("stream details: %w", err)
	}
	return out, nil
}

// ListChatMessages returns the page after pageToken (empty for the first call).
// Messages with an unparseable publishedAt are dropped with a warning.
func (c *Client) ListChatMessages(ctx context.Context, chatID, pageToken string) (ChatPage, error) {
	var page ChatPage
	err := c.rot.Do(ctx, "liveChatMessages.list", func(svc *yt.Service) error {
		call := svc.LiveChatMessages.List(chatID, []string{"snippet", "authorDetails"})
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Context(ctx).Do()
		if err != nil {
			return err
		}
		page = ChatPage{
			NextPageToken:   res.NextPageToken,
			PollingInterval: time.Duration(res.PollingIntervalMillis) * time.Millisecond,
			Messages:        make([]ChatMessage, 0, len(res.Items)),
		}
		for _, item := range res.Items {
			if item == nil || item.Snippet == nil {
				continue
			}
			at, err := time.Parse(time.RFC3339Nano, item.Snippet.PublishedAt)
			if err != nil {
				slog.Warn("skipping chat message with bad publishedAt", slog.String("id", item.Id), slog.String("published_at", item.Snippet.PublishedAt))
				continue
			}
			m := ChatMessage{ID: item.Id, PublishedAt: at.UTC(), Text: item.Snippet.DisplayMessage}
			if item.AuthorDetails != nil {
				m.Author = item.AuthorDetails.DisplayName
			}
			page.Messages = append(page.Messages, m)
		}
		return nil
	})
	if err != nil {
		return ChatPage{}, fmt.Errorf("list chat messages: %w", err)
	}
	return page, nil
}
