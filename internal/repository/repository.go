// Package repository defines the storage contracts for exams, submissions
// and users, plus the PostgreSQL implementations. The core services only
// see the interfaces, so the in-memory implementation in the memory
// subpackage can stand in during tests.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/provalab/provahub-backend/internal/model"
)

// ErrNotFound is returned when a lookup by ID or email matches nothing.
// Callers check for it explicitly; a missing record is not exceptional.
var ErrNotFound = errors.New("record not found")

// ExamRepository is the exam catalog: exams are owned by their author and
// always read and written whole, nested questions and options included.
type ExamRepository interface {
	Create(ctx context.Context, exam *model.Exam) error
	// Update replaces the stored exam wholesale. There is no partial
	// merge — an update that omits questions loses them.
	Update(ctx context.Context, exam *model.Exam) error
	// Delete removes the exam. Submissions referencing it are left in
	// place as orphaned records.
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Exam, error)
	ListAll(ctx context.Context) ([]model.Exam, error)
}

// SubmissionRepository is the append-only submission store.
type SubmissionRepository interface {
	Append(ctx context.Context, sub *model.Submission) error
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Submission, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Submission, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	// Exists reports whether the student already submitted this exam.
	// The available-exams view uses it to enforce the one-attempt rule.
	Exists(ctx context.Context, examID, studentID uuid.UUID) (bool, error)
	// AttemptAnswers returns the autosaved in-flight answers for an
	// attempt, keyed by question. A fresh session seeds itself from them
	// when the process that held the attempt went down.
	AttemptAnswers(ctx context.Context, examID, studentID uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	// DeleteAttemptAnswers drops the autosaved answers for an attempt.
	DeleteAttemptAnswers(ctx context.Context, examID, studentID uuid.UUID) error
}

// UserRepository stores accounts for both roles.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}
