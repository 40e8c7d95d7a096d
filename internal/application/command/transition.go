package command

import (
	"context"

	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
	"github.com/cohort-hub/admissions/pkg/logger"
)

// transitioner runs one state machine step against the repository and
// reports it.
type transitioner struct {
	students student.Repository
	deps     Deps
}

func (t transitioner) apply(
	ctx context.Context,
	op string,
	eventType shared.EventType,
	ref student.Ref,
	actor string,
	mutate student.MutateFunc,
) (*student.Student, error) {
	s, err := t.students.UpdateStatus(ctx, ref, mutate)
	if err != nil {
		if shared.IsNotFound(err) || shared.IsState(err) || shared.IsValidation(err) {
			return nil, err
		}
		t.deps.Logger.Error("status update failed",
			logger.Operation(op),
			logger.StudentRef(ref.String()),
			logger.Actor(actor),
			logger.Err(err),
		)
		return nil, err
	}

	t.deps.Logger.Info("admission status changed",
		logger.Operation(op),
		logger.StudentID(s.ID),
		logger.Actor(actor),
		logger.Status(string(s.Status)),
	)

	event := shared.StatusChangedEvent{
		BaseEvent: shared.NewBaseEvent(eventType, s.ID, actor, s.UpdatedAt),
		Status:    string(s.Status),
		OfferDate: s.OfferDate,
	}
	if s.RejectionReason != nil {
		event.RejectionReason = string(*s.RejectionReason)
	}
	t.deps.publish(ctx, event)
	return s, nil
}
