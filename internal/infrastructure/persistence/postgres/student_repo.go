package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// studentColumns is the select list shared by every student query; tables
// are always aliased as s.
const studentColumns = `s.id::text, s.username, s.given_name, s.surname, s.email,
	s.track, s.status, s.offer_date, s.rejection_reason, s.created_at, s.updated_at`

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

var _ student.Repository = (*StudentRepository)(nil)

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a new application.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (
			id, username, given_name, surname, email, track, status,
			offer_date, rejection_reason, created_at, updated_at
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.Username,
		s.GivenName,
		s.Surname,
		s.Email,
		string(s.Track),
		string(s.Status),
		s.OfferDate,
		reasonParam(s.RejectionReason),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("student", "Create", shared.ErrAlreadyExists, "student already exists", err)
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// Get returns a student by id or username.
func (r *StudentRepository) Get(ctx context.Context, ref student.Ref) (*student.Student, error) {
	where, arg, err := refClause(ref, 1)
	if err != nil {
		return nil, err
	}
	row := r.conn.QueryRow(ctx, `SELECT `+studentColumns+` FROM students s WHERE `+where, arg)
	return scanStudent(row)
}

// FindNextUnrated returns the oldest student the reviewer has not rated yet.
func (r *StudentRepository) FindNextUnrated(
	ctx context.Context,
	reviewer string,
	track shared.Optional[student.Track],
) (*student.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students s
		WHERE ($2::text IS NULL OR s.track = $2::text)
		  AND NOT EXISTS (
			SELECT 1 FROM admission_ratings ar
			WHERE ar.student_id = s.id AND ar.rated_by = $1
		  )
		ORDER BY s.created_at ASC, s.id ASC
		LIMIT 1
	`

	s, err := scanStudent(r.conn.QueryRow(ctx, query, reviewer, trackParam(track)))
	if shared.IsNotFound(err) {
		return nil, nil
	}
	return s, err
}

// UpdateStatus locks the row, applies mutate and writes the result back in one
// transaction. A concurrent transition on the same row waits for the lock
// and then sees the committed state.
func (r *StudentRepository) UpdateStatus(
	ctx context.Context,
	ref student.Ref,
	mutate student.MutateFunc,
) (*student.Student, error) {
	where, arg, err := refClause(ref, 1)
	if err != nil {
		return nil, err
	}

	var updated *student.Student
	err = r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		current, err := scanStudent(tx.QueryRow(ctx,
			`SELECT `+studentColumns+` FROM students s WHERE `+where+` FOR UPDATE`, arg))
		if err != nil {
			return err
		}

		if err := mutate(current); err != nil {
			return err
		}

		updated, err = scanStudent(tx.QueryRow(ctx, `
			UPDATE students s
			SET status = $2, offer_date = $3, rejection_reason = $4, updated_at = $5
			WHERE s.id = $1::uuid
			RETURNING `+studentColumns,
			current.ID,
			string(current.Status),
			current.OfferDate,
			reasonParam(current.RejectionReason),
			current.UpdatedAt,
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// refClause builds the WHERE predicate selecting a student by ref, using
// placeholder $n. A malformed id cannot match any row.
func refClause(ref student.Ref, n int) (string, any, error) {
	if err := ref.Validate(); err != nil {
		return "", nil, err
	}
	ref = ref.Normalize()
	if ref.ID != "" {
		if !shared.IsUUID(ref.ID) {
			return "", nil, shared.ErrStudentNotFound
		}
		return fmt.Sprintf("s.id = $%d::uuid", n), ref.ID, nil
	}
	return fmt.Sprintf("s.username = $%d", n), ref.Username, nil
}

func trackParam(track shared.Optional[student.Track]) *string {
	t, ok := track.Get()
	if !ok {
		return nil
	}
	s := string(t)
	return &s
}

func reasonParam(r *student.RejectionReason) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

// scanStudent scans one row selected with studentColumns.
func scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	var track, status string
	var reason *string

	err := row.Scan(
		&s.ID,
		&s.Username,
		&s.GivenName,
		&s.Surname,
		&s.Email,
		&track,
		&status,
		&s.OfferDate,
		&reason,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.Track = student.Track(track)
	s.Status = student.Status(status)
	if reason != nil {
		rr := student.RejectionReason(*reason)
		s.RejectionReason = &rr
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	if s.OfferDate != nil {
		t := s.OfferDate.UTC()
		s.OfferDate = &t
	}
	return &s, nil
}

// scanStudents scans every row selected with studentColumns.
func scanStudents(rows pgx.Rows) ([]*student.Student, error) {
	defer rows.Close()

	var out []*student.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}
	return out, nil
}
