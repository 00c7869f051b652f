package attempt_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/provalab/provahub-backend/internal/attempt"
	"github.com/provalab/provahub-backend/internal/model"
)

func buildExam(questions, minutes int) *model.Exam {
	exam := &model.Exam{ID: uuid.New(), Title: "Session fixture", DurationMinutes: minutes}
	for i := 0; i < questions; i++ {
		q := model.Question{ID: uuid.New(), ExamID: exam.ID, Text: "Q"}
		q.Options = []model.Option{
			{ID: uuid.New(), QuestionID: q.ID, Text: "right", IsCorrect: true},
			{ID: uuid.New(), QuestionID: q.ID, Text: "wrong"},
		}
		exam.Questions = append(exam.Questions, q)
	}
	return exam
}

func startedSession(t *testing.T, exam *model.Exam) *attempt.Session {
	t.Helper()
	sess := attempt.NewSession(exam, uuid.New())
	sess.Start(time.Now())
	return sess
}

func TestSession_Start(t *testing.T) {
	exam := buildExam(3, 30)
	sess := attempt.NewSession(exam, uuid.New())
	require.Equal(t, attempt.StateNotStarted, sess.State())

	sess.Start(time.Now())
	require.Equal(t, attempt.StateInProgress, sess.State())
	require.Equal(t, 30*60, sess.Remaining())
	require.Equal(t, 0, sess.CurrentIndex())

	// Starting again must not rearm the countdown.
	sess.Tick()
	sess.Start(time.Now())
	require.Equal(t, 30*60-1, sess.Remaining())
}

func TestSession_SelectAnswer_LastWriteWins(t *testing.T) {
	exam := buildExam(2, 30)
	sess := startedSession(t, exam)
	q := exam.Questions[0]

	require.NoError(t, sess.SelectAnswer(q.ID, q.Options[1].ID))
	require.NoError(t, sess.SelectAnswer(q.ID, q.Options[0].ID))

	answers := sess.Answers()
	require.Len(t, answers, 1)
	require.Equal(t, q.Options[0].ID, answers[q.ID])
	require.Equal(t, 1, sess.AnsweredCount())
}

func TestSession_SelectAnswer_Membership(t *testing.T) {
	exam := buildExam(2, 30)
	sess := startedSession(t, exam)

	err := sess.SelectAnswer(uuid.New(), exam.Questions[0].Options[0].ID)
	require.ErrorIs(t, err, attempt.ErrUnknownQuestion)

	// An option from another question is rejected too.
	err = sess.SelectAnswer(exam.Questions[0].ID, exam.Questions[1].Options[0].ID)
	require.ErrorIs(t, err, attempt.ErrUnknownOption)
}

func TestSession_NavigationClamps(t *testing.T) {
	exam := buildExam(3, 30)
	sess := startedSession(t, exam)

	sess.PrevQuestion()
	require.Equal(t, 0, sess.CurrentIndex())

	sess.NextQuestion()
	sess.NextQuestion()
	require.Equal(t, 2, sess.CurrentIndex())

	sess.NextQuestion()
	require.Equal(t, 2, sess.CurrentIndex())

	sess.JumpTo(99)
	require.Equal(t, 2, sess.CurrentIndex())
	sess.JumpTo(-1)
	require.Equal(t, 2, sess.CurrentIndex())
	sess.JumpTo(1)
	require.Equal(t, 1, sess.CurrentIndex())
}

func TestSession_FinishRequiresConfirmation(t *testing.T) {
	exam := buildExam(2, 30)
	sess := startedSession(t, exam)
	q := exam.Questions[0]
	require.NoError(t, sess.SelectAnswer(q.ID, q.Options[0].ID))

	err := sess.Finish(false)
	require.ErrorIs(t, err, attempt.ErrUnanswered)
	require.Equal(t, attempt.StateInProgress, sess.State())

	require.NoError(t, sess.Finish(true))
	require.Equal(t, attempt.StateSubmitting, sess.State())
}

func TestSession_FinishFullyAnsweredNeedsNoConfirmation(t *testing.T) {
	exam := buildExam(2, 30)
	sess := startedSession(t, exam)
	for _, q := range exam.Questions {
		require.NoError(t, sess.SelectAnswer(q.ID, q.Options[0].ID))
	}

	require.NoError(t, sess.Finish(false))
}

func TestSession_TickExpiryBypassesConfirmation(t *testing.T) {
	exam := buildExam(4, 1) // 60 seconds
	sess := startedSession(t, exam)

	// Answer 2 of 4 questions correctly, then run the clock out.
	for _, q := range exam.Questions[:2] {
		require.NoError(t, sess.SelectAnswer(q.ID, q.Options[0].ID))
	}

	expired := false
	for i := 0; i < 60; i++ {
		expired = sess.Tick()
	}
	require.True(t, expired)
	require.Equal(t, attempt.StateSubmitting, sess.State())
	require.True(t, sess.Expired())

	select {
	case <-sess.ExpireSignal():
	default:
		t.Fatal("expire signal not closed")
	}

	// Finalize grades the partial answer set without any confirmation.
	sub, err := sess.Finalize(time.Now())
	require.NoError(t, err)
	require.Equal(t, 50.0, sub.Score)
	require.Len(t, sub.Answers, 2)

	// Further ticks are no-ops after expiry.
	require.False(t, sess.Tick())
}

func TestSession_FinalizeIsTerminal(t *testing.T) {
	exam := buildExam(1, 30)
	sess := startedSession(t, exam)
	q := exam.Questions[0]
	require.NoError(t, sess.SelectAnswer(q.ID, q.Options[0].ID))
	require.NoError(t, sess.Finish(false))

	sub, err := sess.Finalize(time.Now())
	require.NoError(t, err)
	require.Equal(t, 100.0, sub.Score)
	require.Equal(t, attempt.StateFinalized, sess.State())
	require.Equal(t, sub, sess.Result())

	select {
	case <-sess.DoneSignal():
	default:
		t.Fatal("done signal not closed")
	}

	// No path back from Finalized.
	_, err = sess.Finalize(time.Now())
	require.ErrorIs(t, err, attempt.ErrFinalized)
	require.ErrorIs(t, sess.Finish(true), attempt.ErrFinalized)
	require.ErrorIs(t, sess.SelectAnswer(q.ID, q.Options[0].ID), attempt.ErrNotInProgress)
	require.False(t, sess.Tick())
}

func TestSession_FinalizeBeforeSubmitting(t *testing.T) {
	exam := buildExam(1, 30)
	sess := startedSession(t, exam)

	_, err := sess.Finalize(time.Now())
	require.ErrorIs(t, err, attempt.ErrNotSubmitting)
}

func TestSession_SnapshotReleaseRetry(t *testing.T) {
	exam := buildExam(2, 30)
	sess := startedSession(t, exam)
	for _, q := range exam.Questions {
		require.NoError(t, sess.SelectAnswer(q.ID, q.Options[0].ID))
	}
	require.NoError(t, sess.Finish(false))

	// Snapshot grades without leaving Submitting; only one finalize may
	// be in flight at a time.
	sub, err := sess.Snapshot(time.Now())
	require.NoError(t, err)
	require.Equal(t, 100.0, sub.Score)
	require.Equal(t, attempt.StateSubmitting, sess.State())

	_, err = sess.Snapshot(time.Now())
	require.ErrorIs(t, err, attempt.ErrFinalizeInFlight)

	// A failed store append releases the session; Finish and Snapshot
	// work again and Commit seals the retry.
	sess.Release()
	require.NoError(t, sess.Finish(false))
	sub, err = sess.Snapshot(time.Now())
	require.NoError(t, err)

	sess.Commit(sub)
	require.Equal(t, attempt.StateFinalized, sess.State())
	require.Equal(t, sub, sess.Result())
	select {
	case <-sess.DoneSignal():
	default:
		t.Fatal("done signal not closed")
	}
}

func TestSession_RestoreAnswersSkipsForeignEntries(t *testing.T) {
	exam := buildExam(2, 30)
	sess := startedSession(t, exam)

	recovered := map[uuid.UUID]uuid.UUID{
		exam.Questions[0].ID: exam.Questions[0].Options[1].ID,
		uuid.New():           uuid.New(),
		exam.Questions[1].ID: exam.Questions[0].Options[0].ID, // another question's option
	}
	require.Equal(t, 1, sess.RestoreAnswers(recovered))

	answers := sess.Answers()
	require.Len(t, answers, 1)
	require.Equal(t, exam.Questions[0].Options[1].ID, answers[exam.Questions[0].ID])
}

func TestManager_OpenGetRemove(t *testing.T) {
	m := attempt.NewManager(zerolog.Nop())
	exam := buildExam(2, 30)
	studentID := uuid.New()

	sess, resumed := m.Open(exam, studentID, time.Now())
	require.False(t, resumed)
	require.Equal(t, attempt.StateInProgress, sess.State())
	require.Equal(t, 1, m.Len())

	// Opening again resumes the same session.
	again, resumed := m.Open(exam, studentID, time.Now())
	require.True(t, resumed)
	require.Same(t, sess, again)

	got, ok := m.Get(exam.ID, studentID)
	require.True(t, ok)
	require.Same(t, sess, got)

	m.Remove(exam.ID, studentID)
	_, ok = m.Get(exam.ID, studentID)
	require.False(t, ok)
	require.Equal(t, 0, m.Len())
}

func TestManager_TickAllReportsExpired(t *testing.T) {
	m := attempt.NewManager(zerolog.Nop())
	short := buildExam(1, 1)
	long := buildExam(1, 30)
	studentID := uuid.New()

	m.Open(short, studentID, time.Now())
	m.Open(long, studentID, time.Now())

	var expired []*attempt.Session
	for i := 0; i < 60; i++ {
		expired = m.TickAll()
	}
	require.Len(t, expired, 1)
	require.Equal(t, short.ID, expired[0].ExamID)
}
