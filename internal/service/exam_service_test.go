package service_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/provalab/provahub-backend/internal/config"
	"github.com/provalab/provahub-backend/internal/model"
	"github.com/provalab/provahub-backend/internal/repository"
	"github.com/provalab/provahub-backend/internal/repository/memory"
	"github.com/provalab/provahub-backend/internal/service"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	rs := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: rs.Addr()})
}

func makeExamService(t *testing.T) (*service.ExamService, repository.ExamRepository) {
	t.Helper()
	repo := memory.NewExamRepository()
	return service.NewExamService(repo, testRedis(t), zerolog.Nop()), repo
}

// saveRequest builds a valid two-question request; the first option of each
// question is the correct one.
func saveRequest(title string) *model.SaveExamRequest {
	question := func(text string) model.QuestionPayload {
		return model.QuestionPayload{
			ID:   uuid.NewString(),
			Text: text,
			Options: []model.OptionPayload{
				{ID: uuid.NewString(), Text: "right", IsCorrect: true},
				{ID: uuid.NewString(), Text: "wrong"},
			},
		}
	}
	return &model.SaveExamRequest{
		Title:           title,
		Description:     "fixture",
		DurationMinutes: 30,
		Questions:       []model.QuestionPayload{question("Q1"), question("Q2")},
	}
}

func TestExamService_CreateAndReadBack(t *testing.T) {
	svc, _ := makeExamService(t)
	authorID := uuid.New()

	created, err := svc.Create(context.Background(), authorID, saveRequest("Algebra"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, authorID, created.CreatedBy)

	got, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Title, got.Title)
	require.Len(t, got.Questions, 2)
	require.Len(t, got.Questions[0].Options, 2)
}

func TestExamService_CreateValidation(t *testing.T) {
	tests := map[string]struct {
		mutate  func(req *model.SaveExamRequest)
		wantErr error
	}{
		"blank title": {
			mutate:  func(r *model.SaveExamRequest) { r.Title = "   " },
			wantErr: service.ErrEmptyTitle,
		},
		"zero duration": {
			mutate:  func(r *model.SaveExamRequest) { r.DurationMinutes = 0 },
			wantErr: service.ErrInvalidDuration,
		},
		"no questions": {
			mutate:  func(r *model.SaveExamRequest) { r.Questions = nil },
			wantErr: service.ErrNoQuestions,
		},
		"blank question text": {
			mutate:  func(r *model.SaveExamRequest) { r.Questions[0].Text = "" },
			wantErr: service.ErrEmptyQuestion,
		},
		"blank option text": {
			mutate:  func(r *model.SaveExamRequest) { r.Questions[0].Options[1].Text = " " },
			wantErr: service.ErrEmptyOption,
		},
		"single option": {
			mutate: func(r *model.SaveExamRequest) {
				r.Questions[0].Options = r.Questions[0].Options[:1]
			},
			wantErr: service.ErrTooFewOptions,
		},
		"no correct option": {
			mutate: func(r *model.SaveExamRequest) {
				r.Questions[1].Options[0].IsCorrect = false
			},
			wantErr: service.ErrNoCorrectOption,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			svc, _ := makeExamService(t)
			req := saveRequest("Invalid")
			tt.mutate(req)

			_, err := svc.Create(context.Background(), uuid.New(), req)
			require.ErrorIs(t, err, tt.wantErr)

			// A rejected exam leaves the catalog untouched.
			exams, err := svc.ListAll(context.Background())
			require.NoError(t, err)
			require.Empty(t, exams)
		})
	}
}

func TestExamService_UpdateReplacesWholesale(t *testing.T) {
	svc, _ := makeExamService(t)
	authorID := uuid.New()

	created, err := svc.Create(context.Background(), authorID, saveRequest("Before"))
	require.NoError(t, err)

	replacement := saveRequest("After")
	replacement.Questions = replacement.Questions[:1] // drop a question

	updated, err := svc.Update(context.Background(), created.ID, authorID, replacement)
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)

	got, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "After", got.Title)
	require.Len(t, got.Questions, 1)
}

func TestExamService_UpdateAuthorOnly(t *testing.T) {
	svc, _ := makeExamService(t)

	created, err := svc.Create(context.Background(), uuid.New(), saveRequest("Guarded"))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, uuid.New(), saveRequest("Hijack"))
	require.ErrorIs(t, err, service.ErrNotExamAuthor)
}

func TestExamService_DeleteVisibility(t *testing.T) {
	svc, _ := makeExamService(t)
	authorID := uuid.New()

	created, err := svc.Create(context.Background(), authorID, saveRequest("Doomed"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID, authorID))

	_, err = svc.GetByID(context.Background(), created.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	exams, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, exams)

	// Deleting twice reports not found.
	require.ErrorIs(t, svc.Delete(context.Background(), created.ID, authorID), repository.ErrNotFound)
}

func TestExamService_GetByIDNotFound(t *testing.T) {
	svc, _ := makeExamService(t)

	_, err := svc.GetByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExamService_GetPayloadStripsAnswerKey(t *testing.T) {
	repo := memory.NewExamRepository()
	rdb := testRedis(t)
	svc := service.NewExamService(repo, rdb, zerolog.Nop())

	created, err := svc.Create(context.Background(), uuid.New(), saveRequest("Sealed"))
	require.NoError(t, err)

	payload, err := svc.GetPayload(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, payload.ExamID)
	require.Len(t, payload.Questions, 2)
	for _, q := range payload.Questions {
		require.Len(t, q.Options, 2)
	}

	// Create warmed the cache; the payload must survive losing the repo row.
	require.NoError(t, repo.Delete(context.Background(), created.ID))
	cached, err := svc.GetPayload(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, payload.ExamID, cached.ExamID)
	require.True(t, rdb.Exists(context.Background(), config.CacheKey.ExamPayloadKey(created.ID.String())).Val() == 1)
}

func TestExamService_GetPayloadSelfHeals(t *testing.T) {
	repo := memory.NewExamRepository()
	rdb := testRedis(t)
	svc := service.NewExamService(repo, rdb, zerolog.Nop())

	created, err := svc.Create(context.Background(), uuid.New(), saveRequest("Healing"))
	require.NoError(t, err)

	// Drop the cache behind the service's back; the payload rebuilds from
	// the repository.
	require.NoError(t, rdb.FlushAll(context.Background()).Err())

	payload, err := svc.GetPayload(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, payload.ExamID)
}
