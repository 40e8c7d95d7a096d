// Package student содержит доменную модель абитуриента.
//
// Пакет определяет:
//
//   - Сущность Student и её перечисления: Track, Status, RejectionReason
//   - Ref - ссылку на студента по ID или username
//   - OfferPolicy - окно действия предложения о зачислении
//   - Repository - контракт хранилища заявок
//
// # Жизненный цикл заявки
//
//	PENDING ──offer──▶ OFFERED ──accept (в окне)──▶ ACCEPTED
//	   │                  │
//	   └──reject──▶ REJECTED ◀──reject──┘
//
// Offer и Reject являются административными действиями и допустимы из любого
// состояния. Повторный Offer перезапускает часы предложения. ResetOffer
// перезапускает часы, не меняя статус.
//
// # Окно предложения
//
// Предложение действительно, пока now < OfferDate + Validity:
//
//	policy := NewOfferPolicy(7 * 24 * time.Hour)
//	if err := s.Accept(clock.Now(), policy); err != nil {
//	    // shared.ErrOfferNotValid
//	}
//
// Ровно на границе окна предложение считается истёкшим.
package student
