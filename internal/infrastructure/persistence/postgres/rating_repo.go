package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cohort-hub/admissions/internal/domain/rating"
	"github.com/cohort-hub/admissions/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATING REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RatingRepository implements rating.Repository for PostgreSQL.
type RatingRepository struct {
	conn *Connection
}

var _ rating.Repository = (*RatingRepository)(nil)

// NewRatingRepository creates a new RatingRepository.
func NewRatingRepository(conn *Connection) *RatingRepository {
	return &RatingRepository{conn: conn}
}

// Insert resolves the student and inserts the rating in one transaction.
// The (student_id, rated_by) unique constraint settles concurrent duplicates.
func (r *RatingRepository) Insert(ctx context.Context, d rating.Draft) (*rating.Rating, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	where, arg, err := refClause(d.Student, 1)
	if err != nil {
		return nil, err
	}

	var saved rating.Rating
	err = r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var studentID string
		err := tx.QueryRow(ctx, `SELECT s.id::text FROM students s WHERE `+where, arg).Scan(&studentID)
		if IsNoRows(err) {
			return shared.ErrStudentNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to resolve student: %w", err)
		}

		var value int
		err = tx.QueryRow(ctx, `
			INSERT INTO admission_ratings (id, student_id, rated_by, rating, created_at)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5)
			RETURNING id::text, student_id::text, rated_by, rating, created_at
		`, d.ID, studentID, d.RatedBy, int(d.Value), d.CreatedAt).Scan(
			&saved.ID, &saved.StudentID, &saved.RatedBy, &value, &saved.CreatedAt,
		)
		if err != nil {
			switch {
			case IsUniqueViolation(err):
				return shared.ErrAlreadyRated
			case IsForeignKeyViolation(err):
				return shared.ErrStudentNotFound
			case IsCheckViolation(err):
				return shared.ErrInvalidRating
			}
			return fmt.Errorf("failed to insert rating: %w", err)
		}
		saved.Value = rating.Value(value)
		saved.CreatedAt = saved.CreatedAt.UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

