package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/postbot/internal/post"
)

const scheduledColumns = `id, owner_id, text, media, buttons, layout, publish_at, channel_id, job_id,
	status, last_error, created_at, updated_at`

// CreateScheduled inserts the post and its timer job in one transaction and
// sets p.ID. p.JobID must already be assigned.
func (db *DB) CreateScheduled(p *ScheduledPost) error {
	media, err := post.EncodeMedia(p.Media)
	if err != nil {
		return err
	}
	buttons, err := post.EncodeButtons(p.Buttons)
	if err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	now := time.Now()

	return db.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO scheduled_posts (owner_id, text, media, media_kind, buttons, layout, publish_at,
				channel_id, job_id, status, last_error, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.OwnerID, p.Text, media, p.MediaKind(), buttons, string(p.Layout), p.PublishAt.UnixMilli(),
			p.ChannelID, p.JobID, p.Status, p.LastError, now.UnixMilli(), now.UnixMilli())
		if err != nil {
			return fmt.Errorf("insert scheduled post: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertJob(tx, p.JobID, id, p.PublishAt, now); err != nil {
			return err
		}
		p.ID = id
		p.CreatedAt = now
		p.UpdatedAt = now
		return nil
	})
}

// GetScheduled returns the post with the given id, or nil if absent.
func (db *DB) GetScheduled(id int64) (*ScheduledPost, error) {
	row := db.QueryRow(`SELECT `+scheduledColumns+` FROM scheduled_posts WHERE id = ?`, id)
	p, err := scanScheduled(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// GetScheduledByJob returns the post owning jobID, or nil if absent.
func (db *DB) GetScheduledByJob(jobID string) (*ScheduledPost, error) {
	row := db.QueryRow(`SELECT `+scheduledColumns+` FROM scheduled_posts WHERE job_id = ?`, jobID)
	p, err := scanScheduled(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// ListScheduledByOwner returns the owner's posts ordered by publish time.
func (db *DB) ListScheduledByOwner(ownerID int64) ([]ScheduledPost, error) {
	return db.queryScheduled(`SELECT `+scheduledColumns+` FROM scheduled_posts
		WHERE owner_id = ? ORDER BY publish_at ASC, id ASC`, ownerID)
}

// ListScheduled returns every scheduled post ordered by publish time.
func (db *DB) ListScheduled() ([]ScheduledPost, error) {
	return db.queryScheduled(`SELECT ` + scheduledColumns + ` FROM scheduled_posts ORDER BY publish_at ASC, id ASC`)
}

// ListPendingWithoutJob returns pending posts whose timer row is missing.
func (db *DB) ListPendingWithoutJob() ([]ScheduledPost, error) {
	return db.queryScheduled(`SELECT `+scheduledColumns+` FROM scheduled_posts p
		WHERE p.status = ? AND NOT EXISTS (SELECT 1 FROM schedule_jobs j WHERE j.post_id = p.id)
		ORDER BY publish_at ASC`, StatusPending)
}

// ReplaceScheduled overwrites the post's content, publish time and job in
// one transaction: the old job row is dropped and a job for p.JobID is
// registered. The post id is unchanged and its status returns to pending.
func (db *DB) ReplaceScheduled(p *ScheduledPost) error {
	media, err := post.EncodeMedia(p.Media)
	if err != nil {
		return err
	}
	buttons, err := post.EncodeButtons(p.Buttons)
	if err != nil {
		return err
	}
	now := time.Now()

	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM schedule_jobs WHERE post_id = ?`, p.ID); err != nil {
			return fmt.Errorf("drop old job: %w", err)
		}
		res, err := tx.Exec(`
			UPDATE scheduled_posts SET text = ?, media = ?, media_kind = ?, buttons = ?, layout = ?,
				publish_at = ?, channel_id = ?, job_id = ?, status = ?, last_error = '', updated_at = ?
			WHERE id = ?`,
			p.Text, media, p.MediaKind(), buttons, string(p.Layout), p.PublishAt.UnixMilli(),
			p.ChannelID, p.JobID, StatusPending, now.UnixMilli(), p.ID)
		if err != nil {
			return fmt.Errorf("update scheduled post: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if err := insertJob(tx, p.JobID, p.ID, p.PublishAt, now); err != nil {
			return err
		}
		p.Status = StatusPending
		p.LastError = ""
		p.UpdatedAt = now
		return nil
	})
}

// DeleteScheduled removes the post and, through the foreign key, its job.
// It reports whether a row was deleted.
func (db *DB) DeleteScheduled(id int64) (bool, error) {
	res, err := db.Exec(`DELETE FROM scheduled_posts WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkScheduledFailed records a delivery failure; the post stays listed so
// it can be published manually or deleted.
func (db *DB) MarkScheduledFailed(id int64, errMsg string) error {
	res, err := db.Exec(`UPDATE scheduled_posts SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, errMsg, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) queryScheduled(query string, args ...any) ([]ScheduledPost, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var posts []ScheduledPost
	for rows.Next() {
		p, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func scanScheduled(s scanner) (*ScheduledPost, error) {
	var (
		p                  ScheduledPost
		media, buttons     string
		layout             string
		publishAt          int64
		createdAt, updated int64
	)
	if err := s.Scan(&p.ID, &p.OwnerID, &p.Text, &media, &buttons, &layout, &publishAt, &p.ChannelID,
		&p.JobID, &p.Status, &p.LastError, &createdAt, &updated); err != nil {
		return nil, err
	}
	var err error
	if p.Media, err = post.DecodeMedia(media); err != nil {
		return nil, fmt.Errorf("scheduled post %d: %w", p.ID, err)
	}
	if p.Buttons, err = post.DecodeButtons(buttons); err != nil {
		return nil, fmt.Errorf("scheduled post %d: %w", p.ID, err)
	}
	p.Layout = post.Layout(layout)
	p.PublishAt = fromMillis(publishAt)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}
