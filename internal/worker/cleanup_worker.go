package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/provalab/provahub-backend/internal/config"
)

const (
	CleanupBatchSize    = 50
	CleanupBatchTimeout = 2 * time.Second
	CleanupPollTimeout  = 1 * time.Second
)

// CleanupWorker drains finalize_cleanup_queue in batches: once a submission
// is appended, the attempt's autosave rows in PostgreSQL and the Redis answer
// buffer are stale and get removed here instead of on the request path.
type CleanupWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewCleanupWorker creates a new CleanupWorker.
func NewCleanupWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *CleanupWorker {
	return &CleanupWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "cleanup_worker").Logger(),
	}
}

type cleanupPayload struct {
	ExamID       string `json:"exam_id"`
	StudentID    string `json:"student_id"`
	SubmissionID string `json:"submission_id"`
}

// Start begins the batching worker loop. Call in a goroutine.
func (w *CleanupWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CleanupWorker started")

	batch := make([]*cleanupPayload, 0, CleanupBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= CleanupBatchSize || time.Since(lastFlush) >= CleanupBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, CleanupPollTimeout, config.WorkerKey.FinalizeCleanupQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p cleanupPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *CleanupWorker) flushSafe(ctx context.Context, batch []*cleanupPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkDeleteAnswerRows(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk cleanup failed, using fallback")

		for _, p := range batch {
			if err := w.deleteSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("deleteSingle failed — requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.FinalizeCleanupQueue, raw)
			}
		}
		return
	}

	w.bulkClearAutosaveBuffers(ctx, batch)
}

// bulkDeleteAnswerRows removes autosaved answers for a batch of finalized
// attempts with a single UNNEST join.
func (w *CleanupWorker) bulkDeleteAnswerRows(ctx context.Context, batch []*cleanupPayload) error {
	n := len(batch)

	examIDs := make([]uuid.UUID, 0, n)
	studentIDs := make([]uuid.UUID, 0, n)

	for _, p := range batch {
		eID, err := uuid.Parse(p.ExamID)
		if err != nil {
			return err
		}
		sID, err := uuid.Parse(p.StudentID)
		if err != nil {
			return err
		}
		examIDs = append(examIDs, eID)
		studentIDs = append(studentIDs, sID)
	}

	query := `
		DELETE FROM attempt_answers AS a
		USING UNNEST($1::uuid[], $2::uuid[]) AS t (exam_id, student_id)
		WHERE a.exam_id = t.exam_id
		  AND a.student_id = t.student_id
	`

	_, err := w.pool.Exec(ctx, query, examIDs, studentIDs)
	return err
}

func (w *CleanupWorker) bulkClearAutosaveBuffers(ctx context.Context, batch []*cleanupPayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		key := config.CacheKey.StudentAnswersKey(p.ExamID, p.StudentID)
		pipe.Del(ctx, key)
	}

	_, _ = pipe.Exec(ctx)
}

func (w *CleanupWorker) deleteSingle(ctx context.Context, p *cleanupPayload) error {
	eID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return err
	}
	sID, err := uuid.Parse(p.StudentID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`DELETE FROM attempt_answers WHERE exam_id = $1 AND student_id = $2`,
		eID, sID,
	)
	return err
}
