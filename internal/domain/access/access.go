// Package access описывает, кто может вызывать какую операцию приёмной кампании.
//
// Авторизация - чистая функция от требуемой роли и вызывающего. Пакет не
// обращается к хранилищу, поэтому правило проверяется до любого чтения или
// записи.
package access

import (
	"strings"

	"github.com/cohort-hub/admissions/internal/domain/shared"
)

// Role - грубое право, которое несёт токен вызывающего.
type Role string

const (
	RoleReviewer Role = "REVIEWER"
	RoleAdmin    Role = "ADMIN"
	RoleStudent  Role = "STUDENT"
)

// ParseRole разбирает имя роли без учёта регистра. Для неизвестной роли
// возвращает false, вызывающие её пропускают.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleReviewer, RoleAdmin, RoleStudent:
		return r, true
	default:
		return "", false
	}
}

// Caller - аутентифицированный автор запроса.
type Caller struct {
	Username string
	Roles    []Role
}

// Anonymous - вызывающий без ролей и без имени.
var Anonymous = Caller{}

// HasRole сообщает, есть ли у вызывающего ровно роль r.
func (c Caller) HasRole(r Role) bool {
	for _, have := range c.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Satisfies сообщает, удовлетворяет ли вызывающий требуемой роли.
// ADMIN покрывает и REVIEWER. STUDENT покрывается только STUDENT.
func (c Caller) Satisfies(required Role) bool {
	if c.HasRole(required) {
		return true
	}
	return required == RoleReviewer && c.HasRole(RoleAdmin)
}

// Identity возвращает username без пробелов по краям или "".
func (c Caller) Identity() string {
	return strings.TrimSpace(c.Username)
}

// Authorize возвращает ErrNotAuthorized, если роль вызывающего не подходит.
func Authorize(required Role, caller Caller) error {
	if !caller.Satisfies(required) {
		return shared.ErrNotAuthorized
	}
	return nil
}

// RequireIdentity возвращает username вызывающего. Если в токене его нет,
// возвращается ошибка идентификации для данной роли.
func RequireIdentity(required Role, caller Caller) (string, error) {
	id := caller.Identity()
	if id != "" {
		return id, nil
	}
	if required == RoleStudent {
		return "", shared.ErrStudentIdentity
	}
	return "", shared.ErrReviewerIdentity
}

// ═══════════════════════════════════════════════════════════════════════════
// Rules
// ═══════════════════════════════════════════════════════════════════════════

// Rule - требование доступа одной операции.
type Rule struct {
	Role     Role
	Identity bool
}

// Правила операций приёмной кампании.
var (
	NextUnratedRule   = Rule{Role: RoleReviewer, Identity: true}
	SubmitRatingRule  = Rule{Role: RoleReviewer, Identity: true}
	TopRatedRule      = Rule{Role: RoleAdmin}
	OfferRule         = Rule{Role: RoleAdmin}
	ResetOfferRule    = Rule{Role: RoleAdmin}
	RejectRule        = Rule{Role: RoleAdmin}
	AcceptOfferRule   = Rule{Role: RoleStudent, Identity: true}
	ExportRankingRule = Rule{Role: RoleAdmin}
)

// Check применяет правило и возвращает имя вызывающего, если правило его
// требует.
func (r Rule) Check(caller Caller) (string, error) {
	if err := Authorize(r.Role, caller); err != nil {
		return "", err
	}
	if !r.Identity {
		return caller.Identity(), nil
	}
	return RequireIdentity(r.Role, caller)
}
