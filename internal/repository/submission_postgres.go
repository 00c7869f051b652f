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

// PostgresSubmissionRepository is the pgx-backed submission store.
// Submissions are append-only; no update or delete statements exist here.
type PostgresSubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSubmissionRepository creates a new PostgresSubmissionRepository.
func NewPostgresSubmissionRepository(pool *pgxpool.Pool) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{pool: pool}
}

// Append inserts a finalized submission with its answers in one transaction.
func (r *PostgresSubmissionRepository) Append(ctx context.Context, sub *model.Submission) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO submissions (id, exam_id, student_id, submitted_at, score)
		 VALUES ($1, $2, $3, $4, $5)`,
		sub.ID, sub.ExamID, sub.StudentID, sub.SubmittedAt, sub.Score); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	for _, a := range sub.Answers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO submission_answers (submission_id, question_id, selected_option_id)
			 VALUES ($1, $2, $3)`,
			sub.ID, a.QuestionID, a.SelectedOptionID); err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// FindByID retrieves a submission with its answers.
func (r *PostgresSubmissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, submitted_at, score
		 FROM submissions WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.SubmittedAt, &s.Score)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadAnswers(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ListByExam retrieves all submissions for an exam, newest first.
func (r *PostgresSubmissionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Submission, error) {
	return r.list(ctx,
		`SELECT id, exam_id, student_id, submitted_at, score
		 FROM submissions WHERE exam_id = $1 ORDER BY submitted_at DESC`, examID)
}

// ListByStudent retrieves all of a student's submissions, newest first.
func (r *PostgresSubmissionRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Submission, error) {
	return r.list(ctx,
		`SELECT id, exam_id, student_id, submitted_at, score
		 FROM submissions WHERE student_id = $1 ORDER BY submitted_at DESC`, studentID)
}

// Exists reports whether the student already has a submission for the exam.
func (r *PostgresSubmissionRepository) Exists(ctx context.Context, examID, studentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM submissions WHERE exam_id = $1 AND student_id = $2)`,
		examID, studentID,
	).Scan(&exists)
	return exists, err
}

// AttemptAnswers reads back the rows the autosave worker persisted for a
// still-open attempt.
func (r *PostgresSubmissionRepository) AttemptAnswers(ctx context.Context, examID, studentID uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, option_id FROM attempt_answers
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(map[uuid.UUID]uuid.UUID)
	for rows.Next() {
		var questionID, optionID uuid.UUID
		if err := rows.Scan(&questionID, &optionID); err != nil {
			return nil, err
		}
		answers[questionID] = optionID
	}
	return answers, rows.Err()
}

// DeleteAttemptAnswers drops the autosaved rows for one attempt.
func (r *PostgresSubmissionRepository) DeleteAttemptAnswers(ctx context.Context, examID, studentID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM attempt_answers WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID)
	return err
}

func (r *PostgresSubmissionRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.ExamID, &s.StudentID, &s.SubmittedAt, &s.Score); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range subs {
		if err := r.loadAnswers(ctx, &subs[i]); err != nil {
			return nil, err
		}
	}
	return subs, nil
}

func (r *PostgresSubmissionRepository) loadAnswers(ctx context.Context, s *model.Submission) error {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, selected_option_id FROM submission_answers
		 WHERE submission_id = $1`, s.ID)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	s.Answers = []model.Answer{}
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.QuestionID, &a.SelectedOptionID); err != nil {
			return err
		}
		s.Answers = append(s.Answers, a)
	}
	return rows.Err()
}
