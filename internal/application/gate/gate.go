// Package gate ставит правила доступа перед обработчиками прикладного слоя.
//
// Защищённый обработчик не запускается, если вызывающий не прошёл правило:
// неавторизованный запрос не читает и не пишет хранилище.
package gate

import (
	"context"

	"github.com/cohort-hub/admissions/internal/domain/access"
)

// Handler - бизнес-часть операции. identity - username вызывающего, если
// правило его требует, иначе то, что было в токене.
type Handler[Req, Res any] func(ctx context.Context, identity string, req Req) (Res, error)

// Func - обработчик, который ещё предстоит авторизовать.
type Func[Req, Res any] func(ctx context.Context, caller access.Caller, req Req) (Res, error)

// Guard оборачивает next так, что rule проверяется до его запуска.
func Guard[Req, Res any](rule access.Rule, next Handler[Req, Res]) Func[Req, Res] {
	return func(ctx context.Context, caller access.Caller, req Req) (Res, error) {
		identity, err := rule.Check(caller)
		if err != nil {
			var zero Res
			return zero, err
		}
		return next(ctx, identity, req)
	}
}
