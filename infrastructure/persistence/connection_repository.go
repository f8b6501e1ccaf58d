package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"contentpilot/domain/model"
	"contentpilot/domain/repository"

	"github.com/google/uuid"
)

// ConnectionRepository stores per-(user, platform) credentials. Tokens are
// sealed with the configured cipher before hitting the database.
type ConnectionRepository struct {
	db     *sql.DB
	cipher *TokenCipher
}

func NewConnectionRepository(db *sql.DB, cipher *TokenCipher) *ConnectionRepository {
	return &ConnectionRepository{db: db, cipher: cipher}
}

func (r *ConnectionRepository) GetConnection(ctx context.Context, userID string, platform model.Platform) (*model.SocialConnection, error) {
	q := `SELECT id, user_id, platform, access_token, account_id, account_name, token_expires_at, status, created_at, updated_at
		  FROM social_connections WHERE user_id=$1 AND platform=$2`
	row := r.db.QueryRowContext(ctx, q, userID, string(platform))
	conn := &model.SocialConnection{}
	var (
		accountName sql.NullString
		expiresAt   sql.NullTime
		sealed      string
	)
	if err := row.Scan(&conn.ID, &conn.UserID, &conn.Platform, &sealed, &conn.AccountID,
		&accountName, &expiresAt, &conn.Status, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if accountName.Valid {
		conn.AccountName = &accountName.String
	}
	if expiresAt.Valid {
		conn.TokenExpiresAt = &expiresAt.Time
	}
	token, err := r.cipher.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("connection %s: %w", conn.ID, err)
	}
	conn.AccessToken = token
	return conn, nil
}

func (r *ConnectionRepository) UpsertConnection(ctx context.Context, conn *model.SocialConnection) error {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.Status == "" {
		conn.Status = model.ConnectionStatusActive
	}
	sealed, err := r.cipher.Seal(conn.AccessToken)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	q := `INSERT INTO social_connections (id, user_id, platform, access_token, account_id, account_name, token_expires_at, status, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
		  ON CONFLICT (user_id, platform) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			account_id=EXCLUDED.account_id,
			account_name=EXCLUDED.account_name,
			token_expires_at=EXCLUDED.token_expires_at,
			status=EXCLUDED.status,
			updated_at=EXCLUDED.updated_at`
	_, err = r.db.ExecContext(ctx, q, conn.ID, conn.UserID, string(conn.Platform), sealed,
		conn.AccountID, conn.AccountName, conn.TokenExpiresAt, string(conn.Status), now)
	return err
}

// MarkConnectionStatus transitions an active connection. The status guard in
// the WHERE clause makes the transition single-shot no matter how many call
// sites detect the same expiry.
func (r *ConnectionRepository) MarkConnectionStatus(ctx context.Context, connectionID string, status model.ConnectionStatus) (bool, error) {
	q := `UPDATE social_connections SET status=$1, updated_at=now() WHERE id=$2 AND status='active'`
	res, err := r.db.ExecContext(ctx, q, string(status), connectionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ repository.ISocialConnection = (*ConnectionRepository)(nil)
