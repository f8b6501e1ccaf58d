package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"contentpilot/domain/model"
	"contentpilot/domain/repository"

	"github.com/google/uuid"
)

const postColumns = `id, user_id, platform, status, caption, media_urls, platform_post_id,
	platform_post_url, scheduled_for, failure_reason, metrics, metrics_last_fetched_at,
	created_at, updated_at`

// PostRepository persists publication targets on PostgreSQL.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository { return &PostRepository{db: db} }

func (r *PostRepository) CreatePost(ctx context.Context, post *model.PublishedPost) error {
	if !post.Platform.Valid() {
		return fmt.Errorf("unsupported platform: %s", post.Platform)
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.Status == "" {
		post.Status = model.PostStatusPending
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	media, err := json.Marshal(post.MediaURLs)
	if err != nil {
		return err
	}
	q := `INSERT INTO published_posts (id, user_id, platform, status, caption, media_urls, scheduled_for, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)`
	_, err = r.db.ExecContext(ctx, q, post.ID, post.UserID, string(post.Platform), string(post.Status), post.Caption, media, post.ScheduledFor, now)
	if err != nil {
		return fmt.Errorf("inserting post failed: %w", err)
	}
	return nil
}

func (r *PostRepository) GetPostByID(ctx context.Context, postID string) (*model.PublishedPost, error) {
	q := `SELECT ` + postColumns + ` FROM published_posts WHERE id=$1`
	return scanPost(r.db.QueryRowContext(ctx, q, postID))
}

func (r *PostRepository) UpdatePostStatus(ctx context.Context, postID string, status model.PostStatus, platformPostID, platformPostURL, failureReason *string) error {
	q := `UPDATE published_posts SET status=$1,
			platform_post_id=COALESCE($2, platform_post_id),
			platform_post_url=COALESCE($3, platform_post_url),
			failure_reason=$4, updated_at=now()
		  WHERE id=$5`
	_, err := r.db.ExecContext(ctx, q, string(status), platformPostID, platformPostURL, failureReason, postID)
	return err
}

// CancelPost is advisory: it only flips rows that have not reached a terminal
// publish state, and never touches an already published record.
func (r *PostRepository) CancelPost(ctx context.Context, postID string) error {
	q := `UPDATE published_posts SET status='cancelled', updated_at=now()
		  WHERE id=$1 AND status IN ('scheduled','pending','processing','failed')`
	res, err := r.db.ExecContext(ctx, q, postID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("post %s not cancellable", postID)
	}
	return nil
}

func (r *PostRepository) DeletePost(ctx context.Context, postID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM published_posts WHERE id=$1`, postID)
	return err
}

func (r *PostRepository) ListStaleMetrics(ctx context.Context, olderThan time.Time, limit int) ([]*model.PublishedPost, error) {
	q := `SELECT ` + postColumns + ` FROM published_posts
		  WHERE status='published' AND (metrics_last_fetched_at IS NULL OR metrics_last_fetched_at < $1)
		  ORDER BY metrics_last_fetched_at ASC NULLS FIRST
		  LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.PublishedPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PostRepository) UpdatePostMetrics(ctx context.Context, postID string, metrics *model.PostMetrics) error {
	raw, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	q := `UPDATE published_posts SET metrics=$1, metrics_last_fetched_at=now(), updated_at=now() WHERE id=$2`
	_, err = r.db.ExecContext(ctx, q, raw, postID)
	return err
}

func scanPost(row rowScanner) (*model.PublishedPost, error) {
	p := &model.PublishedPost{}
	var (
		media, metrics  []byte
		platformPostID  sql.NullString
		platformPostURL sql.NullString
		scheduledFor    sql.NullTime
		failureReason   sql.NullString
		metricsAt       sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Platform, &p.Status, &p.Caption, &media,
		&platformPostID, &platformPostURL, &scheduledFor, &failureReason,
		&metrics, &metricsAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &p.MediaURLs); err != nil {
			return nil, fmt.Errorf("decoding media_urls failed: %w", err)
		}
	}
	if len(metrics) > 0 {
		m := &model.PostMetrics{}
		if err := json.Unmarshal(metrics, m); err != nil {
			return nil, fmt.Errorf("decoding metrics failed: %w", err)
		}
		p.Metrics = m
	}
	if platformPostID.Valid {
		p.PlatformPostID = &platformPostID.String
	}
	if platformPostURL.Valid {
		p.PlatformPostURL = &platformPostURL.String
	}
	if scheduledFor.Valid {
		p.ScheduledFor = &scheduledFor.Time
	}
	if failureReason.Valid {
		p.FailureReason = &failureReason.String
	}
	if metricsAt.Valid {
		p.MetricsLastFetchedAt = &metricsAt.Time
	}
	return p, nil
}

var _ repository.IPublishedPost = (*PostRepository)(nil)
