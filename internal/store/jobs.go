package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func insertJob(tx *sql.Tx, jobID string, postID int64, runAt, now time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO schedule_jobs (job_id, post_id, run_at, state, attempts, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		jobID, postID, runAt.UnixMilli(), JobQueued, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// AttachJob registers a job for a post that has none and records its id on
// the post. Used when reconciling posts left without a timer.
func (db *DB) AttachJob(postID int64, jobID string, runAt time.Time) error {
	now := time.Now()
	return db.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE scheduled_posts SET job_id = ?, updated_at = ? WHERE id = ?`,
			jobID, now.UnixMilli(), postID)
		if err != nil {
			return fmt.Errorf("set job id: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return insertJob(tx, jobID, postID, runAt, now)
	})
}

// GetJob returns the job, or nil if absent.
func (db *DB) GetJob(jobID string) (*Job, error) {
	var (
		j              Job
		runAt, created int64
	)
	err := db.QueryRow(`SELECT job_id, post_id, run_at, state, attempts, created_at FROM schedule_jobs WHERE job_id = ?`, jobID).
		Scan(&j.ID, &j.PostID, &runAt, &j.State, &j.Attempts, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.RunAt = fromMillis(runAt)
	j.CreatedAt = fromMillis(created)
	return &j, nil
}

// CancelJob removes a queued job. A missing or already firing job is not an
// error; the result reports whether a row was removed.
func (db *DB) CancelJob(jobID string) (bool, error) {
	res, err := db.Exec(`DELETE FROM schedule_jobs WHERE job_id = ? AND state = ?`, jobID, JobQueued)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DueJobs returns up to limit queued jobs whose run time has passed.
func (db *DB) DueJobs(now time.Time, limit int) ([]Job, error) {
	rows, err := db.Query(`
		SELECT job_id, post_id, run_at, state, attempts, created_at
		FROM schedule_jobs WHERE state = ? AND run_at <= ?
		ORDER BY run_at ASC LIMIT ?`, JobQueued, now.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var jobs []Job
	for rows.Next() {
		var (
			j              Job
			runAt, created int64
		)
		if err := rows.Scan(&j.ID, &j.PostID, &runAt, &j.State, &j.Attempts, &created); err != nil {
			return nil, err
		}
		j.RunAt = fromMillis(runAt)
		j.CreatedAt = fromMillis(created)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ClaimJob moves a queued job to firing. Only one caller can win the claim.
func (db *DB) ClaimJob(jobID string) (bool, error) {
	res, err := db.Exec(`UPDATE schedule_jobs SET state = ?, attempts = attempts + 1 WHERE job_id = ? AND state = ?`,
		JobFiring, jobID, JobQueued)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReleaseJob returns a firing job to the queue.
func (db *DB) ReleaseJob(jobID string) error {
	_, err := db.Exec(`UPDATE schedule_jobs SET state = ? WHERE job_id = ? AND state = ?`, JobQueued, jobID, JobFiring)
	return err
}

// FinishJob deletes a job row regardless of state.
func (db *DB) FinishJob(jobID string) error {
	_, err := db.Exec(`DELETE FROM schedule_jobs WHERE job_id = ?`, jobID)
	return err
}

// ResetFiringJobs requeues jobs left in firing by an interrupted process.
func (db *DB) ResetFiringJobs() (int64, error) {
	res, err := db.Exec(`UPDATE schedule_jobs SET state = ? WHERE state = ?`, JobQueued, JobFiring)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// NextRunAt returns the earliest queued run time, or the zero time if none.
func (db *DB) NextRunAt() (time.Time, error) {
	var runAt sql.NullInt64
	err := db.QueryRow(`SELECT MIN(run_at) FROM schedule_jobs WHERE state = ?`, JobQueued).Scan(&runAt)
	if err != nil || !runAt.Valid {
		return time.Time{}, err
	}
	return fromMillis(runAt.Int64), nil
}

// CountJobs returns the number of queued jobs.
func (db *DB) CountJobs() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM schedule_jobs WHERE state = ?`, JobQueued).Scan(&n)
	return n, err
}
