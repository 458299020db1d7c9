package workers

import (
	"context"
	"log/slog"
	"time"

	"style-relay/contract"
	"style-relay/domain"
)

// QuotaWatcher pushes a quota-update broadcast whenever the gateway
// rate-limit snapshot changes, so clients learn about an exhausted quota
// without polling request-quota.
type QuotaWatcher struct {
	log         *slog.Logger
	coordinator contract.ICoordinator
	transformer contract.ITransformer
	interval    time.Duration
	last        domain.RateLimitState
}

func NewQuotaWatcher(log *slog.Logger, coordinator contract.ICoordinator,
	transformer contract.ITransformer, interval time.Duration) *QuotaWatcher {
	return &QuotaWatcher{
		log:         log,
		coordinator: coordinator,
		transformer: transformer,
		interval:    interval,
	}
}

func (w *QuotaWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping quota watcher")
			return nil
		case <-ticker.C:
			snapshot := w.transformer.QuotaSnapshot()
			if quotaEqual(snapshot, w.last) {
				continue
			}
			w.last = snapshot
			w.log.Info("Quota state changed, broadcasting",
				"exceeded", snapshot.IsExceeded, "last_error", snapshot.LastError)
			w.coordinator.PushQuota(ctx)
		}
	}
}

func quotaEqual(a, b domain.RateLimitState) bool {
	return a.IsExceeded == b.IsExceeded &&
		a.LastError == b.LastError &&
		timePtrEqual(a.ResetAt, b.ResetAt) &&
		intPtrEqual(a.Remaining, b.Remaining) &&
		intPtrEqual(a.Limit, b.Limit)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
