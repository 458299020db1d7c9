package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"style-relay/domain"
)

const (
	nicknamePrefix = "TRANSFORM NICKNAME: "
	messagePrefix  = "TRANSFORM MESSAGE: "
)

type GatewayConfig struct {
	DefaultStyle      domain.Style
	NicknameMaxLength int
	MessageMaxLength  int
}

// Gateway wraps the external transformation service. Its one promise to
// callers: a transform never blocks beyond the client timeout and never
// fails — on any trouble the original text comes back unchanged, and chat
// keeps flowing without the provider.
type Gateway struct {
	log     *slog.Logger
	client  *Client
	tracker *Tracker
	cfg     GatewayConfig

	mu       sync.Mutex
	contexts map[domain.Style]*callContext
}

// callContext is the reusable per-style request handle: the resolved system
// instruction, built lazily once per style. The contract is one-shot, so no
// conversation state lives here.
type callContext struct {
	system string
}

// NewGateway builds a gateway. A nil client means the service is not
// configured; every transform then returns its input unchanged.
func NewGateway(log *slog.Logger, client *Client, tracker *Tracker, cfg GatewayConfig) *Gateway {
	return &Gateway{
		log:      log,
		client:   client,
		tracker:  tracker,
		cfg:      cfg,
		contexts: make(map[domain.Style]*callContext),
	}
}

func (g *Gateway) TransformNickname(ctx context.Context, original string, style domain.Style) string {
	return g.transform(ctx, original, style, nicknamePrefix, g.cfg.NicknameMaxLength)
}

func (g *Gateway) TransformMessage(ctx context.Context, original string, style domain.Style) string {
	return g.transform(ctx, original, style, messagePrefix, g.cfg.MessageMaxLength)
}

// QuotaSnapshot returns a read-only copy of the shared rate-limit state.
func (g *Gateway) QuotaSnapshot() domain.RateLimitState {
	return g.tracker.Snapshot()
}

func (g *Gateway) transform(ctx context.Context, original string, style domain.Style, prefix string, maxRunes int) string {
	if g.client == nil {
		return original
	}
	if g.tracker.Exceeded() {
		g.log.Warn("Rate limit exceeded, returning original text")
		return original
	}

	cc := g.callContext(style)
	completion, err := g.client.Complete(ctx, cc.system, prefix+original)
	if err != nil {
		var rateLimited *RateLimitError
		if errors.As(err, &rateLimited) {
			g.tracker.MarkExceeded(rateLimited.RetryAfter, rateLimited.Detail)
			g.log.Warn("Transformation quota exhausted", "detail", rateLimited.Detail)
		} else {
			g.log.Error("Transformation call failed", "style", style, "error", err)
		}
		return original
	}
	g.tracker.Observe(completion.Remaining, completion.Limit)

	cleaned, ok := sanitize(completion.Text, maxRunes)
	if !ok {
		g.log.Warn(fmt.Sprintf("Rejecting transformed text (empty or above %d runes)", maxRunes))
		return original
	}
	if !sameScript(original, cleaned) {
		g.log.Warn("Rejecting transformed text (writing system changed)", "style", style)
		return original
	}
	return cleaned
}

// callContext returns the cached per-style request handle, creating it on
// first use. Unknown styles resolve to the configured default template.
func (g *Gateway) callContext(style domain.Style) *callContext {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cc, ok := g.contexts[style]; ok {
		return cc
	}
	cc := &callContext{system: SystemPrompt(style, g.cfg.DefaultStyle)}
	g.contexts[style] = cc
	return cc
}
