package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cohort-hub/admissions/internal/domain/ranking"
	"github.com/cohort-hub/admissions/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RankingRepository implements ranking.Repository for PostgreSQL.
type RankingRepository struct {
	conn *Connection
}

var _ ranking.Repository = (*RankingRepository)(nil)

// NewRankingRepository creates a new RankingRepository.
func NewRankingRepository(conn *Connection) *RankingRepository {
	return &RankingRepository{conn: conn}
}

// TopRated aggregates ratings per student, pages the grouped rows and fetches
// the page's students. Both statements run in one REPEATABLE READ snapshot.
func (r *RankingRepository) TopRated(ctx context.Context, q ranking.Query) ([]ranking.Mean, []*student.Student, error) {
	if err := q.Validate(); err != nil {
		return nil, nil, err
	}

	var limit *int64
	if t, ok := q.Page.Take.Get(); ok {
		v := int64(t)
		limit = &v
	}

	var (
		means    []ranking.Mean
		students []*student.Student
	)
	err := r.conn.WithTx(ctx, SnapshotTxOptions(), func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT ar.student_id::text, SUM(ar.rating)::bigint, COUNT(*)::bigint
			FROM admission_ratings ar
			JOIN students s ON s.id = ar.student_id
			WHERE ($1::text IS NULL OR s.track = $1::text)
			GROUP BY ar.student_id
			ORDER BY AVG(ar.rating) DESC, ar.student_id ASC
			OFFSET $2 LIMIT $3
		`, trackParam(q.Track), int64(q.Page.Offset()), limit)
		if err != nil {
			return fmt.Errorf("failed to aggregate ratings: %w", err)
		}

		means, err = scanMeans(rows)
		if err != nil || len(means) == 0 {
			return err
		}

		ids := make([]string, len(means))
		for i, m := range means {
			ids[i] = m.StudentID
		}

		rows, err = tx.Query(ctx,
			`SELECT `+studentColumns+` FROM students s WHERE s.id::text = ANY($1::text[])`, ids)
		if err != nil {
			return fmt.Errorf("failed to fetch ranked students: %w", err)
		}
		students, err = scanStudents(rows)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return means, students, nil
}

func scanMeans(rows pgx.Rows) ([]ranking.Mean, error) {
	defer rows.Close()

	means := make([]ranking.Mean, 0)
	for rows.Next() {
		var m ranking.Mean
		var sum, count int64
		if err := rows.Scan(&m.StudentID, &sum, &count); err != nil {
			return nil, fmt.Errorf("failed to scan mean: %w", err)
		}
		m.Sum = int(sum)
		m.Count = int(count)
		means = append(means, m)
	}
	return means, rows.Err()
}
