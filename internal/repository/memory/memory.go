// Package memory holds in-memory implementations of the repository
// contracts. They back the process-resident deployment mode and the unit
// tests; all state is lost on restart by design.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/provalab/provahub-backend/internal/model"
	"github.com/provalab/provahub-backend/internal/repository"
)

// ExamRepository is a map-backed exam catalog. Reads return deep copies so
// a caller holding an exam snapshot is isolated from later edits.
type ExamRepository struct {
	mu    sync.RWMutex
	exams map[uuid.UUID]*model.Exam
	seq   int
	order map[uuid.UUID]int // insertion order for stable listing
}

// NewExamRepository creates an empty in-memory exam catalog.
func NewExamRepository() *ExamRepository {
	return &ExamRepository{
		exams: make(map[uuid.UUID]*model.Exam),
		order: make(map[uuid.UUID]int),
	}
}

func (r *ExamRepository) Create(_ context.Context, e *model.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// ID collisions are undefined behavior per the catalog contract;
	// last write wins here.
	r.exams[e.ID] = copyExam(e)
	if _, ok := r.order[e.ID]; !ok {
		r.seq++
		r.order[e.ID] = r.seq
	}
	return nil
}

func (r *ExamRepository) Update(_ context.Context, e *model.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exams[e.ID]; !ok {
		return repository.ErrNotFound
	}
	r.exams[e.ID] = copyExam(e)
	return nil
}

func (r *ExamRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exams[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.exams, id)
	delete(r.order, id)
	return nil
}

func (r *ExamRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyExam(e), nil
}

func (r *ExamRepository) ListByAuthor(_ context.Context, authorID uuid.UUID) ([]model.Exam, error) {
	return r.filter(func(e *model.Exam) bool { return e.CreatedBy == authorID }), nil
}

func (r *ExamRepository) ListAll(_ context.Context) ([]model.Exam, error) {
	return r.filter(func(*model.Exam) bool { return true }), nil
}

func (r *ExamRepository) filter(keep func(*model.Exam) bool) []model.Exam {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Exam
	for _, e := range r.exams {
		if keep(e) {
			out = append(out, *copyExam(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.order[out[i].ID] < r.order[out[j].ID]
	})
	return out
}

func copyExam(e *model.Exam) *model.Exam {
	cp := *e
	cp.Questions = make([]model.Question, len(e.Questions))
	for i, q := range e.Questions {
		qc := q
		qc.Options = append([]model.Option(nil), q.Options...)
		cp.Questions[i] = qc
	}
	return &cp
}

// SubmissionRepository is a slice-backed, append-only submission store.
// All reads are linear filters; volumes are small by assumption.
type SubmissionRepository struct {
	mu       sync.RWMutex
	subs     []model.Submission
	autosave map[attemptKey]map[uuid.UUID]uuid.UUID
}

type attemptKey struct {
	examID    uuid.UUID
	studentID uuid.UUID
}

// NewSubmissionRepository creates an empty in-memory submission store.
func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{
		autosave: make(map[attemptKey]map[uuid.UUID]uuid.UUID),
	}
}

func (r *SubmissionRepository) Append(_ context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	cp.Answers = append([]model.Answer(nil), s.Answers...)
	r.subs = append(r.subs, cp)
	return nil
}

func (r *SubmissionRepository) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Submission, error) {
	return r.filter(func(s *model.Submission) bool { return s.ExamID == examID }), nil
}

func (r *SubmissionRepository) ListByStudent(_ context.Context, studentID uuid.UUID) ([]model.Submission, error) {
	return r.filter(func(s *model.Submission) bool { return s.StudentID == studentID }), nil
}

func (r *SubmissionRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.subs {
		if r.subs[i].ID == id {
			cp := r.subs[i]
			cp.Answers = append([]model.Answer(nil), r.subs[i].Answers...)
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *SubmissionRepository) Exists(_ context.Context, examID, studentID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.subs {
		if r.subs[i].ExamID == examID && r.subs[i].StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *SubmissionRepository) AttemptAnswers(_ context.Context, examID, studentID uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]uuid.UUID)
	for q, o := range r.autosave[attemptKey{examID, studentID}] {
		out[q] = o
	}
	return out, nil
}

func (r *SubmissionRepository) DeleteAttemptAnswers(_ context.Context, examID, studentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.autosave, attemptKey{examID, studentID})
	return nil
}

// SaveAttemptAnswer upserts one autosaved answer, mirroring what the
// persistence worker does against PostgreSQL.
func (r *SubmissionRepository) SaveAttemptAnswer(examID, studentID, questionID, optionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attemptKey{examID, studentID}
	if r.autosave[key] == nil {
		r.autosave[key] = make(map[uuid.UUID]uuid.UUID)
	}
	r.autosave[key][questionID] = optionID
}

func (r *SubmissionRepository) filter(keep func(*model.Submission) bool) []model.Submission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Submission
	for i := range r.subs {
		if keep(&r.subs[i]) {
			cp := r.subs[i]
			cp.Answers = append([]model.Answer(nil), r.subs[i].Answers...)
			out = append(out, cp)
		}
	}
	return out
}

// UserRepository is a map-backed account store.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*model.User
	byEmail map[string]*model.User
}

// NewUserRepository creates an empty in-memory account store.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[uuid.UUID]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (r *UserRepository) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = &cp
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
