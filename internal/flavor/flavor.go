// internal/flavor/flavor.go
//
// Flavor text shown when a run ends: a short cheer after a win, a roast
// after stepping on a mine. Text comes from an optional remote generator.
//
// Failures never reach the player: an unconfigured provider, an error and
// an empty reply each have their own fixed fallback line.
package flavor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	UnconfiguredWin  = "Ultimate Lemon Champion!"
	UnconfiguredLoss = "Explosive Defeat!"
	ErrorWin         = "Victory!"
	ErrorLoss        = "Boom!"
	EmptyWin         = "You are a Legend!"
	EmptyLoss        = "Try again!"

	// TimeoutMessage is used for timeouts; the generator is not asked.
	TimeoutMessage = "Time's up! The lemons have soured."

	DefaultTimeout = 5 * time.Second
)

// Provider generates a line for a finished run.
type Provider interface {
	Message(ctx context.Context, won bool) (string, error)
}

// Static is the provider used when no generator is configured.
type Static struct{}

func (Static) Message(ctx context.Context, won bool) (string, error) {
	return pick(won, UnconfiguredWin, UnconfiguredLoss), nil
}

func pick(won bool, win, loss string) string {
	if won {
		return win
	}
	return loss
}

// HTTPProvider asks a remote endpoint for the text.
// Request:  POST {"action":"message","isWin":bool}
// Response: {"message":string}
type HTTPProvider struct {
	url    string
	client *http.Client
}

// NewHTTPProvider targets url. A non-positive timeout uses DefaultTimeout.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProvider{url: url, client: &http.Client{Timeout: timeout}}
}

type messageRequest struct {
	Action string `json:"action"`
	IsWin  bool   `json:"isWin"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (p *HTTPProvider) Message(ctx context.Context, won bool) (string, error) {
	body, err := json.Marshal(messageRequest{Action: "message", IsWin: won})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("flavor endpoint: status %d", res.StatusCode)
	}
	var out messageResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("flavor endpoint: %w", err)
	}
	return out.Message, nil
}

// Resolve asks p and applies the fallbacks. A nil provider counts as
// unconfigured.
func Resolve(ctx context.Context, p Provider, won bool) string {
	if p == nil {
		p = Static{}
	}
	msg, err := p.Message(ctx, won)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Bool("won", won).Msg("flavor text unavailable")
		}
		return pick(won, ErrorWin, ErrorLoss)
	}
	if msg = strings.TrimSpace(msg); msg == "" {
		return pick(won, EmptyWin, EmptyLoss)
	}
	return msg
}

// Teller fetches flavor text off the caller's goroutine.
type Teller struct {
	provider Provider
	timeout  time.Duration
}

// NewTeller wraps p. A nil p behaves like Static.
func NewTeller(p Provider, timeout time.Duration) *Teller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Teller{provider: p, timeout: timeout}
}

// Tell resolves the message in the background and hands it to deliver.
// deliver runs on the background goroutine.
func (t *Teller) Tell(won bool, deliver func(msg string)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		deliver(Resolve(ctx, t.provider, won))
	}()
}
