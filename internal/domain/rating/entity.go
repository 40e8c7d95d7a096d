// Package rating содержит доменную модель оценки абитуриента ревьюером.
package rating

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// MinValue - минимальная допустимая оценка.
	MinValue = 1
	// MaxValue - максимальная допустимая оценка.
	MaxValue = 10
)

// Value - оценка по шкале 1..10.
type Value int

// NewValue проверяет, что v целое число в диапазоне [MinValue, MaxValue].
// Дробные значения (1.5) отклоняются, а не округляются.
func NewValue(v float64) (Value, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, shared.ErrInvalidRating
	}
	if v < MinValue || v > MaxValue {
		return 0, shared.ErrInvalidRating
	}
	return Value(v), nil
}

// IsValid проверяет диапазон.
func (v Value) IsValid() bool {
	return v >= MinValue && v <= MaxValue
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Rating - неизменяемая оценка одного ревьюера для одного студента.
type Rating struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	RatedBy   string    `json:"rated_by"`
	Value     Value     `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft - оценка до сохранения: студент ещё задан ссылкой.
type Draft struct {
	ID        string
	Student   student.Ref
	RatedBy   string
	Value     Value
	CreatedAt time.Time
}

// Validate проверяет черновик.
func (d Draft) Validate() error {
	if err := d.Student.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(d.RatedBy) == "" {
		return shared.ErrReviewerIdentity
	}
	if !d.Value.IsValid() {
		return shared.ErrInvalidRating
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository - хранилище оценок.
type Repository interface {
	// Insert разрешает ссылку на студента и сохраняет оценку в одной
	// транзакции. Возвращает ErrStudentNotFound, если студента нет, и
	// ErrAlreadyRated, если этот ревьюер уже оценил студента.
	Insert(ctx context.Context, d Draft) (*Rating, error)
}
