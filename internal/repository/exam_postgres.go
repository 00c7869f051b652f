package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/provalab/provahub-backend/internal/model"
)

// PostgresExamRepository is the pgx-backed exam catalog.
type PostgresExamRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresExamRepository creates a new PostgresExamRepository.
func NewPostgresExamRepository(pool *pgxpool.Pool) *PostgresExamRepository {
	return &PostgresExamRepository{pool: pool}
}

// Create inserts the exam with its full question tree in one transaction.
func (r *PostgresExamRepository) Create(ctx context.Context, e *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exams (id, title, description, created_by, duration_minutes)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		e.ID, e.Title, e.Description, e.CreatedBy, e.DurationMinutes,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	if err := insertQuestions(ctx, tx, e); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Update replaces the exam in place: the exam row is updated and the whole
// question tree is deleted and reinserted from the supplied object.
func (r *PostgresExamRepository) Update(ctx context.Context, e *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE exams
		 SET title = $1, description = $2, duration_minutes = $3, updated_at = NOW()
		 WHERE id = $4`,
		e.Title, e.Description, e.DurationMinutes, e.ID)
	if err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	// Options go with their questions via ON DELETE CASCADE.
	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, e.ID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	if err := insertQuestions(ctx, tx, e); err != nil {
		return err
	}

	if err := tx.QueryRow(ctx,
		`SELECT created_at, updated_at FROM exams WHERE id = $1`, e.ID,
	).Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return fmt.Errorf("reread exam: %w", err)
	}

	return tx.Commit(ctx)
}

// Delete removes the exam and, via cascade, its questions and options.
// Submissions are untouched and become orphaned references.
func (r *PostgresExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves an exam with its questions and options.
func (r *PostgresExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, created_by, duration_minutes, created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.CreatedBy, &e.DurationMinutes, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadQuestions(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListByAuthor retrieves all exams created by one professor, newest first.
func (r *PostgresExamRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Exam, error) {
	return r.list(ctx,
		`SELECT id, title, description, created_by, duration_minutes, created_at, updated_at
		 FROM exams WHERE created_by = $1 ORDER BY created_at DESC`, authorID)
}

// ListAll retrieves every exam in the catalog, newest first.
func (r *PostgresExamRepository) ListAll(ctx context.Context) ([]model.Exam, error) {
	return r.list(ctx,
		`SELECT id, title, description, created_by, duration_minutes, created_at, updated_at
		 FROM exams ORDER BY created_at DESC`)
}

func (r *PostgresExamRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.CreatedBy,
			&e.DurationMinutes, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range exams {
		if err := r.loadQuestions(ctx, &exams[i]); err != nil {
			return nil, err
		}
	}
	return exams, nil
}

func (r *PostgresExamRepository) loadQuestions(ctx context.Context, e *model.Exam) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, text, position FROM questions
		 WHERE exam_id = $1 ORDER BY position`, e.ID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	e.Questions = []model.Question{}
	for rows.Next() {
		var q model.Question
		var pos int
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &pos); err != nil {
			return err
		}
		e.Questions = append(e.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range e.Questions {
		q := &e.Questions[i]
		optRows, err := r.pool.Query(ctx,
			`SELECT id, question_id, text, is_correct FROM options
			 WHERE question_id = $1 ORDER BY position`, q.ID)
		if err != nil {
			return fmt.Errorf("load options: %w", err)
		}
		for optRows.Next() {
			var o model.Option
			if err := optRows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect); err != nil {
				optRows.Close()
				return err
			}
			q.Options = append(q.Options, o)
		}
		if err := optRows.Err(); err != nil {
			optRows.Close()
			return err
		}
		optRows.Close()
	}
	return nil
}

func insertQuestions(ctx context.Context, tx pgx.Tx, e *model.Exam) error {
	for qi := range e.Questions {
		q := &e.Questions[qi]
		if _, err := tx.Exec(ctx,
			`INSERT INTO questions (id, exam_id, text, position) VALUES ($1, $2, $3, $4)`,
			q.ID, e.ID, q.Text, qi); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		for oi := range q.Options {
			o := &q.Options[oi]
			if _, err := tx.Exec(ctx,
				`INSERT INTO options (id, question_id, text, is_correct, position)
				 VALUES ($1, $2, $3, $4, $5)`,
				o.ID, q.ID, o.Text, o.IsCorrect, oi); err != nil {
				return fmt.Errorf("insert option: %w", err)
			}
		}
	}
	return nil
}
