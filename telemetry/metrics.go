// Package telemetry provides Prometheus metrics, OpenTelemetry tracing and
// correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// Counters
	PollCycles = prometheus.NewCounter(prometheus.CounterOpts{Name: "clipbot_poll_cycles_total", Help: "Number of chat poll iterations (PollOnce invocations)"})
	PollErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "clipbot_poll_errors_total", Help: "Number of poll iterations aborted by an error"})
	ChatMessages = prometheus.NewCounter(prometheus.CounterOpts{Name: "clipbot_chat_messages_total", Help: "Chat messages accepted past the watermark"})
	ClipsHonored = prometheus.NewCounter(prometheus.CounterOpts{Name: "clipbot_clips_honored_total", Help: "Clip commands turned into notifications"})
	ClipsSuppressed = prometheus.NewCounter(prometheus.CounterOpts{Name: "clipbot_clips_cooldown_total", Help: "Clip commands ignored due to cooldown"})
	NotificationsSent = prometheus.NewCounter(prometheus.CounterOpts{Name: "clipbot_notifications_sent_total", Help: "Webhook notifications delivered"})
	NotificationsFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "clipbot_notifications_failed_total", Help: "Webhook notifications that failed"})
	CredentialRotations = prometheus.NewCounter(prometheus.CounterOpts{Name: "clipbot_credential_rotations_total", Help: "Credential rotations caused by quota errors"})
	QuotaExhausted = prometheus.NewCounter(prometheus.CounterOpts{Name: "clipbot_quota_exhausted_total", Help: "Calls that failed with every credential over quota"})

	// Histograms (seconds)
	PollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "clipbot_poll_duration_seconds", Help: "Duration of the chat page fetch in each poll iteration", Buckets: prometheus.DefBuckets})

	// Gauges
	PollIntervalGauge = prometheus.NewGauge(prometheus.GaugeOpts{Name: "clipbot_poll_interval_seconds", Help: "Current delay between poll iterations"})
	ActiveCredentialGauge = prometheus.NewGauge(prometheus.GaugeOpts{Name: "clipbot_active_credential_index", Help: "Index of the credential currently in use"})
)

// Init registers metrics with the default registry (idempotent).
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			PollCycles, PollErrors, ChatMessages, ClipsHonored, ClipsSuppressed,
			NotificationsSent, NotificationsFailed, CredentialRotations, QuotaExhausted,
			PollDuration, PollIntervalGauge, ActiveCredentialGauge,
		)
	})
}

// SetPollInterval records the delay before the next poll.
func SetPollInterval(d time.Duration) { PollIntervalGauge.Set(d.Seconds()) }

// SetActiveCredential records the rotator's active index.
func SetActiveCredential(i int) { ActiveCredentialGauge.Set(float64(i)) }

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
