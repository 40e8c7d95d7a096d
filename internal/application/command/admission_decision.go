package command

import (
	"context"

	"github.com/cohort-hub/admissions/internal/application/gate"
	"github.com/cohort-hub/admissions/internal/domain/access"
	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMISSION DECISION COMMANDS
// Административные действия приёмной комиссии: предложить зачисление,
// перезапустить срок предложения, отклонить заявку. Допустимы из любого
// состояния.
// ══════════════════════════════════════════════════════════════════════════════

// OfferAdmissionCommand предлагает студенту зачисление.
type OfferAdmissionCommand struct {
	Student student.Ref
}

// ResetAdmissionOfferCommand перезапускает часы предложения.
type ResetAdmissionOfferCommand struct {
	Student student.Ref
}

// RejectStudentCommand отклоняет заявку.
type RejectStudentCommand struct {
	Student student.Ref

	// Reason - необязательная причина; по умолчанию OTHER.
	Reason shared.Optional[student.RejectionReason]
}

// AdmissionDecisionHandler обрабатывает решения администратора.
type AdmissionDecisionHandler struct {
	tx     transitioner
	offer  gate.Func[OfferAdmissionCommand, *student.Student]
	reset  gate.Func[ResetAdmissionOfferCommand, *student.Student]
	reject gate.Func[RejectStudentCommand, *student.Student]
}

// NewAdmissionDecisionHandler создаёт обработчик.
func NewAdmissionDecisionHandler(students student.Repository, deps Deps) *AdmissionDecisionHandler {
	h := &AdmissionDecisionHandler{tx: transitioner{students: students, deps: deps.withDefaults()}}
	h.offer = gate.Guard(access.OfferRule, h.handleOffer)
	h.reset = gate.Guard(access.ResetOfferRule, h.handleReset)
	h.reject = gate.Guard(access.RejectRule, h.handleReject)
	return h
}

// Offer ставит статус OFFERED и OfferDate = now. Повторный вызов обновляет
// OfferDate.
func (h *AdmissionDecisionHandler) Offer(ctx context.Context, caller access.Caller, cmd OfferAdmissionCommand) (*student.Student, error) {
	return h.offer(ctx, caller, cmd)
}

// ResetOffer ставит OfferDate = now, статус не меняется.
func (h *AdmissionDecisionHandler) ResetOffer(ctx context.Context, caller access.Caller, cmd ResetAdmissionOfferCommand) (*student.Student, error) {
	return h.reset(ctx, caller, cmd)
}

// Reject ставит статус REJECTED с указанной причиной.
func (h *AdmissionDecisionHandler) Reject(ctx context.Context, caller access.Caller, cmd RejectStudentCommand) (*student.Student, error) {
	return h.reject(ctx, caller, cmd)
}

func (h *AdmissionDecisionHandler) handleOffer(ctx context.Context, actor string, cmd OfferAdmissionCommand) (*student.Student, error) {
	if err := cmd.Student.Validate(); err != nil {
		return nil, err
	}
	now := h.tx.deps.Clock.Now()
	return h.tx.apply(ctx, "OfferAdmission", shared.EventAdmissionOffered, cmd.Student.Normalize(), actor,
		func(s *student.Student) error {
			s.Offer(now)
			return nil
		})
}

func (h *AdmissionDecisionHandler) handleReset(ctx context.Context, actor string, cmd ResetAdmissionOfferCommand) (*student.Student, error) {
	if err := cmd.Student.Validate(); err != nil {
		return nil, err
	}
	now := h.tx.deps.Clock.Now()
	return h.tx.apply(ctx, "ResetAdmissionOffer", shared.EventAdmissionOfferReset, cmd.Student.Normalize(), actor,
		func(s *student.Student) error {
			s.ResetOffer(now)
			return nil
		})
}

func (h *AdmissionDecisionHandler) handleReject(ctx context.Context, actor string, cmd RejectStudentCommand) (*student.Student, error) {
	if err := cmd.Student.Validate(); err != nil {
		return nil, err
	}
	if r, ok := cmd.Reason.Get(); ok && !r.IsValid() {
		return nil, shared.ErrInvalidReason
	}
	now := h.tx.deps.Clock.Now()
	return h.tx.apply(ctx, "RejectStudent", shared.EventStudentRejected, cmd.Student.Normalize(), actor,
		func(s *student.Student) error {
			s.Reject(cmd.Reason, now)
			return nil
		})
}
