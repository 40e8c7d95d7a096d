// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"

	"github.com/cohort-hub/admissions/internal/application/gate"
	"github.com/cohort-hub/admissions/internal/domain/access"
	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
	"github.com/cohort-hub/admissions/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// NEXT UNRATED STUDENT QUERY
// Выдаёт ревьюеру следующего студента из очереди: самого раннего по времени
// подачи заявки, которого этот ревьюер ещё не оценивал.
// ══════════════════════════════════════════════════════════════════════════════

// NextUnratedStudentQuery содержит параметры запроса.
type NextUnratedStudentQuery struct {
	// Track - необязательный фильтр по треку.
	Track shared.Optional[student.Track]
}

// NextUnratedStudentHandler обрабатывает запрос очереди ревью.
type NextUnratedStudentHandler struct {
	students student.Repository
	log      *logger.Logger
	guarded  gate.Func[NextUnratedStudentQuery, *student.Student]
}

// NewNextUnratedStudentHandler создаёт обработчик.
func NewNextUnratedStudentHandler(students student.Repository, log *logger.Logger) *NextUnratedStudentHandler {
	if log == nil {
		log = logger.Nop()
	}
	h := &NextUnratedStudentHandler{students: students, log: log}
	h.guarded = gate.Guard(access.NextUnratedRule, h.handle)
	return h
}

// Handle возвращает следующего студента или nil, если очередь пуста.
// Пустая очередь не является ошибкой.
func (h *NextUnratedStudentHandler) Handle(ctx context.Context, caller access.Caller, q NextUnratedStudentQuery) (*student.Student, error) {
	return h.guarded(ctx, caller, q)
}

func (h *NextUnratedStudentHandler) handle(ctx context.Context, reviewer string, q NextUnratedStudentQuery) (*student.Student, error) {
	if t, ok := q.Track.Get(); ok && !t.IsValid() {
		return nil, shared.ErrInvalidTrack
	}

	s, err := h.students.FindNextUnrated(ctx, reviewer, q.Track)
	if err != nil {
		h.log.Error("next unrated lookup failed",
			logger.Operation("NextUnratedStudent"),
			logger.Reviewer(reviewer),
			logger.Err(err),
		)
		return nil, err
	}
	return s, nil
}
