package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/postbot/internal/post"
)

const publishedColumns = `owner_id, channel_id, message_id, text, media, buttons, layout,
	text_message_id, text_is_caption, buttons_message_id, message_ids, published_at, updated_at`

// InsertPublished records a delivered post.
func (db *DB) InsertPublished(p *PublishedPost) error {
	media, err := post.EncodeMedia(p.Media)
	if err != nil {
		return err
	}
	buttons, err := post.EncodeButtons(p.Buttons)
	if err != nil {
		return err
	}
	ids, err := json.Marshal(p.MessageIDs)
	if err != nil {
		return err
	}
	if p.PublishedAt.IsZero() {
		p.PublishedAt = time.Now()
	}
	p.UpdatedAt = p.PublishedAt

	_, err = db.Exec(`
		INSERT INTO published_posts (`+publishedColumns+`, media_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.OwnerID, p.ChannelID, p.MessageID, p.Text, media, buttons, string(p.Layout),
		p.TextMessageID, p.TextIsCaption, p.ButtonsMessageID, string(ids),
		p.PublishedAt.UnixMilli(), p.UpdatedAt.UnixMilli(), p.MediaKind())
	if err != nil {
		return fmt.Errorf("insert published post: %w", err)
	}
	return nil
}

// GetPublished returns the post keyed by (channelID, messageID), or nil.
func (db *DB) GetPublished(channelID, messageID string) (*PublishedPost, error) {
	row := db.QueryRow(`SELECT `+publishedColumns+` FROM published_posts WHERE channel_id = ? AND message_id = ?`,
		channelID, messageID)
	p, err := scanPublished(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// ListPublishedByOwner returns the owner's most recent posts first.
func (db *DB) ListPublishedByOwner(ownerID int64, limit int) ([]PublishedPost, error) {
	return db.queryPublished(`SELECT `+publishedColumns+` FROM published_posts
		WHERE owner_id = ? ORDER BY published_at DESC LIMIT ?`, ownerID, limit)
}

// ListPublished returns the most recent posts of every owner.
func (db *DB) ListPublished(limit int) ([]PublishedPost, error) {
	return db.queryPublished(`SELECT `+publishedColumns+` FROM published_posts
		ORDER BY published_at DESC LIMIT ?`, limit)
}

// UpdatePublishedContent stores edited text and buttons. Media is immutable.
func (db *DB) UpdatePublishedContent(channelID, messageID, text string, buttons []post.Button) error {
	blob, err := post.EncodeButtons(buttons)
	if err != nil {
		return err
	}
	res, err := db.Exec(`UPDATE published_posts SET text = ?, buttons = ?, updated_at = ?
		WHERE channel_id = ? AND message_id = ?`,
		text, blob, time.Now().UnixMilli(), channelID, messageID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetButtonsMessage records which message now carries the inline keyboard.
func (db *DB) SetButtonsMessage(channelID, messageID, buttonsMessageID string) error {
	_, err := db.Exec(`UPDATE published_posts SET buttons_message_id = ? WHERE channel_id = ? AND message_id = ?`,
		buttonsMessageID, channelID, messageID)
	return err
}

// DeletePublished removes the record and reports whether it existed.
func (db *DB) DeletePublished(channelID, messageID string) (bool, error) {
	res, err := db.Exec(`DELETE FROM published_posts WHERE channel_id = ? AND message_id = ?`, channelID, messageID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountPublished returns the number of recorded posts.
func (db *DB) CountPublished() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM published_posts`).Scan(&n)
	return n, err
}

func (db *DB) queryPublished(query string, args ...any) ([]PublishedPost, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var posts []PublishedPost
	for rows.Next() {
		p, err := scanPublished(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func scanPublished(s scanner) (*PublishedPost, error) {
	var (
		p                   PublishedPost
		media, buttons, ids string
		layout              string
		published, updated  int64
	)
	if err := s.Scan(&p.OwnerID, &p.ChannelID, &p.MessageID, &p.Text, &media, &buttons, &layout,
		&p.TextMessageID, &p.TextIsCaption, &p.ButtonsMessageID, &ids, &published, &updated); err != nil {
		return nil, err
	}
	var err error
	if p.Media, err = post.DecodeMedia(media); err != nil {
		return nil, fmt.Errorf("published post %s/%s: %w", p.ChannelID, p.MessageID, err)
	}
	if p.Buttons, err = post.DecodeButtons(buttons); err != nil {
		return nil, fmt.Errorf("published post %s/%s: %w", p.ChannelID, p.MessageID, err)
	}
	if err := json.Unmarshal([]byte(ids), &p.MessageIDs); err != nil {
		return nil, fmt.Errorf("published post %s/%s: message ids: %w", p.ChannelID, p.MessageID, err)
	}
	p.Layout = post.Layout(layout)
	p.PublishedAt = fromMillis(published)
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}
