package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/cohort-hub/admissions/internal/application/gate"
	"github.com/cohort-hub/admissions/internal/domain/access"
	"github.com/cohort-hub/admissions/internal/domain/rating"
	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
	"github.com/cohort-hub/admissions/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT RATING COMMAND
// Ревьюер ставит студенту оценку 1..10. Одна оценка на пару (студент, ревьюер).
// ══════════════════════════════════════════════════════════════════════════════

// SubmitRatingCommand содержит данные оценки.
type SubmitRatingCommand struct {
	// Student - ссылка на студента по ID или username.
	Student student.Ref

	// Rating - значение оценки. Дробные значения отклоняются.
	Rating float64
}

// SubmitRatingHandler обрабатывает команду.
type SubmitRatingHandler struct {
	ratings rating.Repository
	deps    Deps
	guarded gate.Func[SubmitRatingCommand, *rating.Rating]
}

// NewSubmitRatingHandler создаёт обработчик.
func NewSubmitRatingHandler(ratings rating.Repository, deps Deps) *SubmitRatingHandler {
	h := &SubmitRatingHandler{ratings: ratings, deps: deps.withDefaults()}
	h.guarded = gate.Guard(access.SubmitRatingRule, h.handle)
	return h
}

// Handle сохраняет оценку.
func (h *SubmitRatingHandler) Handle(ctx context.Context, caller access.Caller, cmd SubmitRatingCommand) (*rating.Rating, error) {
	return h.guarded(ctx, caller, cmd)
}

func (h *SubmitRatingHandler) handle(ctx context.Context, reviewer string, cmd SubmitRatingCommand) (*rating.Rating, error) {
	value, err := rating.NewValue(cmd.Rating)
	if err != nil {
		return nil, err
	}
	if err := cmd.Student.Validate(); err != nil {
		return nil, err
	}

	draft := rating.Draft{
		ID:        uuid.NewString(),
		Student:   cmd.Student.Normalize(),
		RatedBy:   reviewer,
		Value:     value,
		CreatedAt: h.deps.Clock.Now(),
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	saved, err := h.ratings.Insert(ctx, draft)
	if err != nil {
		if !shared.IsNotFound(err) && !shared.IsAlreadyExists(err) {
			h.deps.Logger.Error("rating insert failed",
				logger.Operation("SubmitRating"),
				logger.StudentRef(draft.Student.String()),
				logger.Reviewer(reviewer),
				logger.Err(err),
			)
		}
		return nil, err
	}

	h.deps.Logger.Info("rating submitted",
		logger.Operation("SubmitRating"),
		logger.StudentID(saved.StudentID),
		logger.Reviewer(reviewer),
		logger.Rating(int(saved.Value)),
	)

	h.deps.publish(ctx, shared.RatingSubmittedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventRatingSubmitted, saved.StudentID, reviewer, saved.CreatedAt),
		RatingID:  saved.ID,
		Rating:    int(saved.Value),
	})
	return saved, nil
}
