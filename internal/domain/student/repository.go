package student

import (
	"context"

	"github.com/cohort-hub/admissions/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence (postgres, memory).
// ══════════════════════════════════════════════════════════════════════════════

// MutateFunc применяет переход состояния к загруженной заявке.
// Возврат ошибки отменяет запись.
type MutateFunc func(s *Student) error

// Repository определяет операции хранилища заявок.
type Repository interface {
	// Create сохраняет новую заявку.
	// Возвращает ошибку с видом ErrAlreadyExists при дубликате id или username.
	Create(ctx context.Context, s *Student) error

	// Get возвращает студента по ссылке.
	// Возвращает ErrStudentNotFound, если студент не найден.
	Get(ctx context.Context, ref Ref) (*Student, error)

	// FindNextUnrated возвращает самого раннего (по CreatedAt, затем ID)
	// студента, которого reviewer ещё не оценил, с фильтром по треку.
	// Если таких нет, возвращает (nil, nil).
	FindNextUnrated(ctx context.Context, reviewer string, track shared.Optional[Track]) (*Student, error)

	// UpdateStatus загружает студента, применяет mutate и сохраняет результат
	// атомарно: между чтением и записью другой переход для этой строки
	// невозможен. Возвращает ErrStudentNotFound или ошибку mutate.
	UpdateStatus(ctx context.Context, ref Ref, mutate MutateFunc) (*Student, error)
}
