// Package eventhandler содержит подписчиков на доменные события приёмной
// кампании.
package eventhandler

import (
	"context"
	"log/slog"

	"github.com/cohort-hub/admissions/internal/domain/ranking"
	"github.com/cohort-hub/admissions/internal/domain/shared"
)

// Subscriber - шина событий со стороны подписчика.
type Subscriber interface {
	Subscribe(eventType shared.EventType, handler shared.EventHandler) error
	SubscribeAll(handler shared.EventHandler) error
}

// ═══════════════════════════════════════════════════════════════════════════
// RANKING CACHE INVALIDATION
// Любая новая оценка или смена статуса делает закешированные страницы
// рейтинга устаревшими.
// ═══════════════════════════════════════════════════════════════════════════

// RankingInvalidator сбрасывает кеш рейтинга.
type RankingInvalidator struct {
	cache  ranking.Cache
	logger *slog.Logger
}

// NewRankingInvalidator создаёт обработчик.
func NewRankingInvalidator(cache ranking.Cache, logger *slog.Logger) *RankingInvalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RankingInvalidator{cache: cache, logger: logger}
}

// Handle реализует shared.EventHandler.
func (h *RankingInvalidator) Handle(ctx context.Context, event shared.Event) error {
	if h.cache == nil {
		return nil
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Warn("ranking cache invalidation failed",
			"event_type", event.EventType(),
			"student_id", event.AggregateID(),
			"error", err,
		)
		return err
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// AUDIT LOG
// ═══════════════════════════════════════════════════════════════════════════

// AuditLogger пишет каждое событие в журнал.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger создаёт обработчик.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger.With("component", "audit")}
}

// Handle реализует shared.EventHandler.
func (h *AuditLogger) Handle(ctx context.Context, event shared.Event) error {
	attrs := []any{
		"event_type", event.EventType(),
		"student_id", event.AggregateID(),
		"occurred_at", event.OccurredAt(),
	}
	for k, v := range event.Payload() {
		if k == "student_id" {
			continue
		}
		attrs = append(attrs, k, v)
	}
	h.logger.InfoContext(ctx, "admission event", attrs...)
	return nil
}

// Register подписывает обработчики на шину.
func Register(bus Subscriber, invalidator *RankingInvalidator, audit *AuditLogger) error {
	if invalidator != nil {
		for _, t := range []shared.EventType{
			shared.EventRatingSubmitted,
			shared.EventAdmissionOffered,
			shared.EventAdmissionOfferReset,
			shared.EventOfferAccepted,
			shared.EventStudentRejected,
		} {
			if err := bus.Subscribe(t, invalidator.Handle); err != nil {
				return err
			}
		}
	}
	if audit != nil {
		if err := bus.SubscribeAll(audit.Handle); err != nil {
			return err
		}
	}
	return nil
}
