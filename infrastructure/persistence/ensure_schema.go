package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureCoreSchema creates the tables this service owns. Safe to call at
// startup; all statements are idempotent.
func EnsureCoreSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		// payload and result are opaque to the store; bytea keeps them
		// byte-for-byte where jsonb would canonicalize the JSON.
		`CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			payload BYTEA NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			priority INT NOT NULL DEFAULT 0,
			attempts INT NOT NULL DEFAULT 0,
			max_attempts INT NOT NULL DEFAULT 3,
			scheduled_for TIMESTAMPTZ,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			result BYTEA,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_reserve
			ON jobs (priority DESC, created_at DESC)
			WHERE status = 'pending'`,
		`CREATE TABLE IF NOT EXISTS published_posts (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			caption TEXT NOT NULL DEFAULT '',
			media_urls JSONB NOT NULL DEFAULT '[]'::jsonb,
			platform_post_id TEXT,
			platform_post_url TEXT,
			scheduled_for TIMESTAMPTZ,
			failure_reason TEXT,
			metrics JSONB,
			metrics_last_fetched_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_published_posts_metrics
			ON published_posts (metrics_last_fetched_at)
			WHERE status = 'published'`,
		`CREATE TABLE IF NOT EXISTS social_connections (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			access_token TEXT NOT NULL,
			account_id TEXT NOT NULL,
			account_name TEXT,
			token_expires_at TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_id, platform)
		)`,
		`CREATE TABLE IF NOT EXISTS schedule_registrations (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			external_id TEXT NOT NULL,
			cron_expr TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensuring core schema failed: %w", err)
		}
	}
	return nil
}
