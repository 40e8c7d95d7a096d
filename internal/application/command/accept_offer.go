package command

import (
	"context"

	"github.com/cohort-hub/admissions/internal/application/gate"
	"github.com/cohort-hub/admissions/internal/domain/access"
	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCEPT OFFER COMMAND
// Студент принимает предложение. Цель определяется только по username из
// токена, входных параметров у команды нет.
// ══════════════════════════════════════════════════════════════════════════════

// AcceptOfferCommand не содержит полей.
type AcceptOfferCommand struct{}

// AcceptOfferHandler обрабатывает команду.
type AcceptOfferHandler struct {
	tx      transitioner
	policy  student.OfferPolicy
	guarded gate.Func[AcceptOfferCommand, *student.Student]
}

// NewAcceptOfferHandler создаёт обработчик.
func NewAcceptOfferHandler(students student.Repository, policy student.OfferPolicy, deps Deps) *AcceptOfferHandler {
	h := &AcceptOfferHandler{
		tx:     transitioner{students: students, deps: deps.withDefaults()},
		policy: policy,
	}
	h.guarded = gate.Guard(access.AcceptOfferRule, h.handle)
	return h
}

// Handle переводит заявку вызывающего в ACCEPTED.
func (h *AcceptOfferHandler) Handle(ctx context.Context, caller access.Caller) (*student.Student, error) {
	return h.guarded(ctx, caller, AcceptOfferCommand{})
}

func (h *AcceptOfferHandler) handle(ctx context.Context, username string, _ AcceptOfferCommand) (*student.Student, error) {
	now := h.tx.deps.Clock.Now()
	s, err := h.tx.apply(ctx, "AcceptOffer", shared.EventOfferAccepted, student.ByUsername(username), username,
		func(s *student.Student) error {
			return s.Accept(now, h.policy)
		})
	if shared.IsNotFound(err) {
		return nil, shared.ErrApplicationNotFound
	}
	return s, err
}
