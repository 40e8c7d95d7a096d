package student

import (
	"strings"
	"time"

	"github.com/cohort-hub/admissions/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Track - направление, на которое подал заявку студент.
type Track string

const (
	TrackBeginner     Track = "BEGINNER"
	TrackIntermediate Track = "INTERMEDIATE"
	TrackAdvanced     Track = "ADVANCED"
)

// IsValid проверяет, что трек известен.
func (t Track) IsValid() bool {
	switch t {
	case TrackBeginner, TrackIntermediate, TrackAdvanced:
		return true
	default:
		return false
	}
}

// ParseTrack разбирает трек без учёта регистра.
func ParseTrack(s string) (Track, error) {
	t := Track(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.ErrInvalidTrack
	}
	return t, nil
}

// Status - состояние заявки студента.
type Status string

const (
	// StatusPending - заявка ждёт решения.
	StatusPending Status = "PENDING"
	// StatusOffered - студенту сделано предложение о зачислении.
	StatusOffered Status = "OFFERED"
	// StatusAccepted - студент принял предложение.
	StatusAccepted Status = "ACCEPTED"
	// StatusRejected - заявка отклонена.
	StatusRejected Status = "REJECTED"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusOffered, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// RejectionReason - причина отказа.
type RejectionReason string

const (
	ReasonOther      RejectionReason = "OTHER"
	ReasonExperience RejectionReason = "EXPERIENCE"
	ReasonTimezone   RejectionReason = "TIMEZONE"
	ReasonCapacity   RejectionReason = "CAPACITY"
	ReasonIncomplete RejectionReason = "INCOMPLETE"
)

// IsValid проверяет, что причина известна.
func (r RejectionReason) IsValid() bool {
	switch r {
	case ReasonOther, ReasonExperience, ReasonTimezone, ReasonCapacity, ReasonIncomplete:
		return true
	default:
		return false
	}
}

// ParseRejectionReason разбирает причину без учёта регистра.
func ParseRejectionReason(s string) (RejectionReason, error) {
	r := RejectionReason(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.ErrInvalidReason
	}
	return r, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REFERENCE
// ══════════════════════════════════════════════════════════════════════════════

// Ref выбирает студента либо по ID, либо по уникальному username.
// Ровно одно из полей должно быть заполнено.
type Ref struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
}

// ByID создаёт ссылку по идентификатору.
func ByID(id string) Ref { return Ref{ID: id} }

// ByUsername создаёт ссылку по username.
func ByUsername(username string) Ref { return Ref{Username: username} }

// Validate проверяет, что задано ровно одно поле.
func (r Ref) Validate() error {
	hasID := strings.TrimSpace(r.ID) != ""
	hasUsername := strings.TrimSpace(r.Username) != ""
	if hasID == hasUsername {
		return shared.ErrInvalidStudentRef
	}
	return nil
}

// Normalize приводит ссылку к каноническому виду.
func (r Ref) Normalize() Ref {
	if strings.TrimSpace(r.ID) != "" {
		return Ref{ID: shared.NormalizeID(r.ID)}
	}
	return Ref{Username: strings.TrimSpace(r.Username)}
}

// String возвращает строку для логов.
func (r Ref) String() string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	return "username:" + r.Username
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - абитуриент программы.
type Student struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string `json:"id"`

	// Username - уникальное имя пользователя, совпадает с username в токене.
	Username string `json:"username"`

	GivenName string `json:"given_name,omitempty"`
	Surname   string `json:"surname,omitempty"`
	Email     string `json:"email,omitempty"`

	// Track - направление заявки.
	Track Track `json:"track"`

	// Status - текущее состояние заявки.
	Status Status `json:"status"`

	// OfferDate - момент последнего предложения (nil, если предложения не было).
	OfferDate *time.Time `json:"offer_date,omitempty"`

	// RejectionReason - причина отказа, задана только в статусе REJECTED.
	RejectionReason *RejectionReason `json:"rejection_reason,omitempty"`

	// CreatedAt - неизменяемое время создания, задаёт порядок очереди ревью.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt - время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStudentParams содержит параметры для создания заявки.
type NewStudentParams struct {
	ID        string
	Username  string
	GivenName string
	Surname   string
	Email     string
	Track     Track
	CreatedAt time.Time
}

// NewStudent создаёт заявку в статусе PENDING.
func NewStudent(p NewStudentParams) (*Student, error) {
	if !shared.IsUUID(p.ID) {
		return nil, shared.NewDomainError("student", "Create", shared.ErrInvalidID, "student id must be a UUID")
	}
	if strings.TrimSpace(p.Username) == "" {
		return nil, shared.NewDomainError("student", "Create", shared.ErrValidation, "username is required")
	}
	if !p.Track.IsValid() {
		return nil, shared.ErrInvalidTrack
	}
	createdAt := p.CreatedAt.UTC()
	return &Student{
		ID:        shared.NormalizeID(p.ID),
		Username:  strings.TrimSpace(p.Username),
		GivenName: p.GivenName,
		Surname:   p.Surname,
		Email:     p.Email,
		Track:     p.Track,
		Status:    StatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}

// Clone возвращает глубокую копию.
func (s *Student) Clone() *Student {
	c := *s
	if s.OfferDate != nil {
		d := *s.OfferDate
		c.OfferDate = &d
	}
	if s.RejectionReason != nil {
		r := *s.RejectionReason
		c.RejectionReason = &r
	}
	return &c
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE MACHINE
// PENDING -> OFFERED -> {ACCEPTED, REJECTED}; PENDING -> REJECTED.
// Offer and reject are administrative overrides legal from any state.
// ══════════════════════════════════════════════════════════════════════════════

// Offer делает (или повторяет) предложение: статус OFFERED, часы предложения
// перезапускаются.
func (s *Student) Offer(now time.Time) {
	t := now.UTC()
	s.Status = StatusOffered
	s.OfferDate = &t
	s.RejectionReason = nil
	s.UpdatedAt = t
}

// ResetOffer перезапускает часы предложения, не трогая статус.
func (s *Student) ResetOffer(now time.Time) {
	t := now.UTC()
	s.OfferDate = &t
	s.UpdatedAt = t
}

// Accept переводит студента в ACCEPTED, если предложение сейчас действительно.
// OfferDate остаётся как есть.
func (s *Student) Accept(now time.Time, policy OfferPolicy) error {
	if !policy.HasValidOffer(s, now) {
		return shared.ErrOfferNotValid
	}
	s.Status = StatusAccepted
	s.UpdatedAt = now.UTC()
	return nil
}

// Reject отклоняет заявку. Без причины используется OTHER.
func (s *Student) Reject(reason shared.Optional[RejectionReason], now time.Time) {
	r := reason.OrElse(ReasonOther)
	s.Status = StatusRejected
	s.RejectionReason = &r
	s.UpdatedAt = now.UTC()
}

// ══════════════════════════════════════════════════════════════════════════════
// OFFER POLICY
// ══════════════════════════════════════════════════════════════════════════════

// DefaultOfferValidity - срок действия предложения по умолчанию.
const DefaultOfferValidity = 7 * 24 * time.Hour

// OfferPolicy задаёт окно, в течение которого предложение можно принять.
type OfferPolicy struct {
	Validity time.Duration
}

// NewOfferPolicy создаёт политику; неположительное окно заменяется значением
// по умолчанию.
func NewOfferPolicy(validity time.Duration) OfferPolicy {
	if validity <= 0 {
		validity = DefaultOfferValidity
	}
	return OfferPolicy{Validity: validity}
}

// Cutoff возвращает самый ранний OfferDate, который ещё действителен в момент
// now (строго больше).
func (p OfferPolicy) Cutoff(now time.Time) time.Time {
	return now.UTC().Add(-p.Validity)
}

// ExpiresAt возвращает момент истечения предложения.
func (p OfferPolicy) ExpiresAt(s *Student) (time.Time, bool) {
	if s.OfferDate == nil {
		return time.Time{}, false
	}
	return s.OfferDate.Add(p.Validity), true
}

// HasValidOffer: статус OFFERED и OfferDate внутри окна.
func (p OfferPolicy) HasValidOffer(s *Student, now time.Time) bool {
	if s.Status != StatusOffered || s.OfferDate == nil {
		return false
	}
	return s.OfferDate.After(p.Cutoff(now))
}
