package youtubeapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/onnwee/clipbot/config"
	"github.com/onnwee/clipbot/telemetry"
)

// Credentialed pairs a client with a label safe to log (never the secret itself).
type Credentialed[T any] struct {
	Label  string
	Client T
}

// Rotator holds clients bound to distinct credentials and the index of the active one.
// A quota error on the active client advances the index circularly; every other
// error is returned to the caller untouched.
type Rotator[T any] struct {
	mu      sync.Mutex
	entries []Credentialed[T]
	active  int
}

// NewRotator returns config.ErrNoCredentials when entries is empty.
func NewRotator[T any](entries []Credentialed[T]) (*Rotator[T], error) {
	if len(entries) == 0 {
		return nil, config.ErrNoCredentials
	}
	telemetry.SetActiveCredential(0)
	return &Rotator[T]{entries: entries}, nil
}

// Len is the number of credentials.
func (r *Rotator[T]) Len() int { return len(r.entries) }

// Active returns the index and label of the credential in use.
func (r *Rotator[T]) Active() (int, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.entries[r.active].Label
}

// Do calls fn with the active client. On a quota error it rotates and retries, making at
// most one attempt per credential before failing with ErrQuotaExhausted.
func (r *Rotator[T]) Do(ctx context.Context, op string, fn func(T) error) error {
	var lastErr error
	for attempt := 0; attempt < len(r.entries); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx, entry := r.current()
		err := fn(entry.Client)
		if err == nil {
			return nil
		}
		if !IsQuotaError(err) {
			return err
		}
		lastErr = err
		next := r.advance(idx)
		telemetry.CredentialRotations.Inc()
		slog.Warn("youtube quota exceeded; rotating credential",
			slog.String("op", op),
			slog.String("from", entry.Label),
			slog.Int("to_index", next),
			slog.Int("attempt", attempt+1))
	}
	telemetry.QuotaExhausted.Inc()
	return fmt.Errorf("%s: %w (after %d credentials): %w", op, ErrQuotaExhausted, len(r.entries), lastErr)
}

func (r *Rotator[T]) current() (int, Credentialed[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.entries[r.active]
}

// advance moves past idx unless another caller already did.
func (r *Rotator[T]) advance(idx int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == idx {
		r.active = (idx + 1) % len(r.entries)
		telemetry.SetActiveCredential(r.active)
	}
	return r.active
}
