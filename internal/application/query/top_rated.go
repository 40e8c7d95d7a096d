package query

import (
	"context"
	"time"

	"github.com/cohort-hub/admissions/internal/application/gate"
	"github.com/cohort-hub/admissions/internal/domain/access"
	"github.com/cohort-hub/admissions/internal/domain/ranking"
	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
	"github.com/cohort-hub/admissions/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOP RATED QUERY
// Рейтинг студентов по средней оценке. Пагинация применяется к
// сгруппированному результату, а не к отдельным оценкам.
// ══════════════════════════════════════════════════════════════════════════════

// TopRatedQuery содержит параметры запроса рейтинга.
type TopRatedQuery struct {
	Skip  shared.Optional[int]
	Take  shared.Optional[int]
	Track shared.Optional[student.Track]
}

func (q TopRatedQuery) toRanking(maxTake int) ranking.Query {
	take := q.Take
	if t, ok := take.Get(); ok && maxTake > 0 && t > maxTake {
		take = shared.Some(maxTake)
	}
	return ranking.Query{
		Page:  shared.Page{Skip: q.Skip, Take: take},
		Track: q.Track,
	}
}

// TopRatedOptions настраивает обработчик.
type TopRatedOptions struct {
	// Cache - необязательный кеш страниц (nil = без кеша).
	Cache ranking.Cache
	// CacheTTL - время жизни закешированной страницы.
	CacheTTL time.Duration
	// MaxTake - верхняя граница явно заданного take (0 = без ограничения).
	MaxTake int
	Logger  *logger.Logger
}

// TopRatedHandler обрабатывает запросы рейтинга.
type TopRatedHandler struct {
	repo    ranking.Repository
	opts    TopRatedOptions
	log     *logger.Logger
	guarded gate.Func[TopRatedQuery, []*ranking.Entry]
}

// NewTopRatedHandler создаёт обработчик.
func NewTopRatedHandler(repo ranking.Repository, opts TopRatedOptions) *TopRatedHandler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	h := &TopRatedHandler{repo: repo, opts: opts, log: log}
	h.guarded = gate.Guard(access.TopRatedRule, h.handle)
	return h
}

// Handle возвращает страницу рейтинга.
func (h *TopRatedHandler) Handle(ctx context.Context, caller access.Caller, q TopRatedQuery) ([]*ranking.Entry, error) {
	return h.guarded(ctx, caller, q)
}

// Export возвращает страницу рейтинга для выгрузки. Правило доступа то же,
// что у Handle.
func (h *TopRatedHandler) Export(ctx context.Context, caller access.Caller, q TopRatedQuery) ([]*ranking.Entry, error) {
	if _, err := access.ExportRankingRule.Check(caller); err != nil {
		return nil, err
	}
	return h.handle(ctx, caller.Identity(), q)
}

func (h *TopRatedHandler) handle(ctx context.Context, _ string, q TopRatedQuery) ([]*ranking.Entry, error) {
	rq := q.toRanking(h.opts.MaxTake)
	if err := rq.Validate(); err != nil {
		return nil, err
	}

	// Слот берётся до чтения из репозитория: инвалидация, пришедшая во
	// время чтения, делает его устаревшим.
	slot, entries, ok := h.fromCache(ctx, rq)
	if ok {
		return entries, nil
	}

	means, students, err := h.repo.TopRated(ctx, rq)
	if err != nil {
		h.log.Error("top rated aggregation failed", logger.Operation("TopRated"), logger.Err(err))
		return nil, err
	}

	entries, err = ranking.Assemble(means, students, rq.Page.Offset())
	if err != nil {
		h.log.Error("top rated join failed", logger.Operation("TopRated"), logger.Err(err))
		return nil, err
	}

	h.toCache(ctx, slot, entries)
	return entries, nil
}

// fromCache пытается получить страницу из кеша. Ошибки кеша не прерывают запрос.
func (h *TopRatedHandler) fromCache(ctx context.Context, q ranking.Query) (ranking.CacheSlot, []*ranking.Entry, bool) {
	if h.opts.Cache == nil {
		return "", nil, false
	}
	entries, slot, ok, err := h.opts.Cache.Get(ctx, q)
	if err != nil {
		h.log.Warn("top rated cache read failed", logger.Err(err))
		return "", nil, false
	}
	return slot, entries, ok
}

func (h *TopRatedHandler) toCache(ctx context.Context, slot ranking.CacheSlot, entries []*ranking.Entry) {
	if h.opts.Cache == nil || h.opts.CacheTTL <= 0 || slot == "" {
		return
	}
	if err := h.opts.Cache.Set(ctx, slot, entries, h.opts.CacheTTL); err != nil {
		h.log.Warn("top rated cache write failed", logger.Err(err))
	}
}
