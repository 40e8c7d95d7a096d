package ranking

import (
	"context"
	"time"

	"github.com/cohort-hub/admissions/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository читает агрегаты оценок.
type Repository interface {
	// TopRated возвращает упорядоченную (SortMeans) страницу агрегатов и
	// записи соответствующих студентов. Агрегация и выборка студентов
	// выполняются как одно согласованное чтение.
	TopRated(ctx context.Context, q Query) ([]Mean, []*student.Student, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// CacheSlot - место страницы в кеше, вычисленное при чтении. Запись после
// промаха идёт в тот же слот: если между чтением и записью случилась
// инвалидация, слот уже устарел и записанная страница никогда не будет прочитана.
type CacheSlot string

// Cache кеширует страницы рейтинга. Отделён от репозитория (Redis, no-op).
type Cache interface {
	// Get возвращает закешированную страницу; ok=false при промахе.
	// slot пуст, если его не удалось вычислить.
	Get(ctx context.Context, q Query) (entries []*Entry, slot CacheSlot, ok bool, err error)

	// Set сохраняет страницу с TTL в слот, полученный от Get.
	Set(ctx context.Context, slot CacheSlot, entries []*Entry, ttl time.Duration) error

	// Invalidate сбрасывает все страницы рейтинга.
	Invalidate(ctx context.Context) error
}
