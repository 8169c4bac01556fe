package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"club-auth/internal/auth"
	"club-auth/internal/auth/credentials"
	"club-auth/internal/db"

	"github.com/lib/pq"
)

const pqUniqueViolation = pq.ErrorCode("23505")

const accountColumns = `id, email, nickname, name, avatar_url, provider, provider_user_id,
	birthday, birth_year, gender, age_range, created_at, updated_at, last_login_at`

// Postgres is the PostgreSQL-backed RecordStore.
type Postgres struct {
	db   *db.DB
	opts options
}

var _ RecordStore = (*Postgres)(nil)

var errNilCredential = errors.New("store: credential is nil")

func NewPostgres(db *db.DB, opts ...Option) *Postgres {
	return &Postgres{db: db, opts: buildOptions(opts)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*auth.Account, error) {
	var (
		acc       auth.Account
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&acc.ID,
		&acc.Email,
		&acc.Nickname,
		&acc.Name,
		&acc.AvatarURL,
		&acc.Provider,
		&acc.ProviderUserID,
		&acc.Birthday,
		&acc.BirthYear,
		&acc.Gender,
		&acc.AgeRange,
		&acc.CreatedAt,
		&acc.UpdatedAt,
		&lastLogin,
	)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		acc.LastLoginAt = &t
	}
	return &acc, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func (p *Postgres) FindByProvider(
	ctx context.Context,
	provider string,
	providerUserID string,
) (*auth.Account, error) {

	acc, err := scanAccount(p.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE provider = $1
		  AND provider_user_id = $2
	`, provider, providerUserID))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find by provider: %w", err)
	}
	return acc, nil
}

func (p *Postgres) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	acc, err := scanAccount(p.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find by id: %w", err)
	}
	return acc, nil
}

func (p *Postgres) ListByProvider(ctx context.Context, provider string) ([]*auth.Account, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE provider = $1
		ORDER BY created_at
	`, provider)
	if err != nil {
		return nil, fmt.Errorf("store: list by provider: %w", err)
	}
	defer rows.Close()

	accounts := []*auth.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list by provider: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list by provider: %w", err)
	}
	return accounts, nil
}

func (p *Postgres) CreateAccount(
	ctx context.Context,
	acc *auth.Account,
	cred *credentials.Credential,
) error {

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	// 1. Insert account; the unique index decides concurrent first logins
	err = tx.QueryRowContext(ctx, `
		INSERT INTO accounts (
			id, email, nickname, name, avatar_url, provider, provider_user_id,
			birthday, birth_year, gender, age_range, last_login_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`,
		acc.ID,
		acc.Email,
		acc.Nickname,
		acc.Name,
		acc.AvatarURL,
		acc.Provider,
		acc.ProviderUserID,
		acc.Birthday,
		acc.BirthYear,
		acc.Gender,
		acc.AgeRange,
		acc.LastLoginAt,
	).Scan(&acc.CreatedAt, &acc.UpdatedAt)

	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("store: insert account: %w", err)
	}

	// 2. Attach the one-time credential
	if err := insertCredential(ctx, tx, cred); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateAccount(
	ctx context.Context,
	acc *auth.Account,
	cred *credentials.Credential,
) error {
	if cred == nil {
		return errNilCredential
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	// 1. Refresh profile fields and last login
	err = tx.QueryRowContext(ctx, `
		UPDATE accounts
		SET email = $1,
		    nickname = $2,
		    name = $3,
		    avatar_url = $4,
		    birthday = $5,
		    birth_year = $6,
		    gender = $7,
		    age_range = $8,
		    last_login_at = $9,
		    updated_at = NOW()
		WHERE id = $10
		RETURNING created_at, updated_at
	`,
		acc.Email,
		acc.Nickname,
		acc.Name,
		acc.AvatarURL,
		acc.Birthday,
		acc.BirthYear,
		acc.Gender,
		acc.AgeRange,
		acc.LastLoginAt,
		acc.ID,
	).Scan(&acc.CreatedAt, &acc.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: update account: %w", err)
	}

	// 2. Prune stale unconsumed credentials
	_, err = tx.ExecContext(ctx, `
		DELETE FROM login_credentials
		WHERE account_id = $1
		  AND issued_at < $2
	`, acc.ID, cred.IssuedAt.Add(-p.opts.credentialTTL))
	if err != nil {
		return fmt.Errorf("store: prune credentials: %w", err)
	}

	// 3. Attach this login's credential
	if err := insertCredential(ctx, tx, cred); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func insertCredential(ctx context.Context, tx *sql.Tx, cred *credentials.Credential) error {
	if cred == nil {
		return errNilCredential
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO login_credentials (id, account_id, secret_hash, hash_version, issued_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		cred.ID,
		cred.AccountID,
		cred.SecretHash,
		cred.HashVersion,
		cred.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert credential: %w", err)
	}
	return nil
}

func (p *Postgres) ConsumeCredential(
	ctx context.Context,
	accountID string,
	credentialID string,
) (*credentials.Credential, error) {

	var cred credentials.Credential
	err := p.db.QueryRowContext(ctx, `
		DELETE FROM login_credentials
		WHERE id = $1
		  AND account_id = $2
		RETURNING id, account_id, secret_hash, hash_version, issued_at
	`, credentialID, accountID).Scan(
		&cred.ID,
		&cred.AccountID,
		&cred.SecretHash,
		&cred.HashVersion,
		&cred.IssuedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, credentials.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: consume credential: %w", err)
	}
	return &cred, nil
}

func (p *Postgres) LinkRosterProfile(ctx context.Context, acc *auth.Account) (bool, error) {
	if !canLinkRoster(acc) {
		return false, nil
	}

	res, err := p.db.ExecContext(ctx, `
		UPDATE players
		SET provider = $1,
		    provider_user_id = $2,
		    email = $3,
		    profile_image = $4,
		    updated_at = NOW()
		WHERE id = (
			SELECT id FROM players
			WHERE name = $5
			  AND birthday = $6
			  AND provider_user_id IS NULL
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		AND NOT EXISTS (
			SELECT 1 FROM players
			WHERE provider = $1
			  AND provider_user_id = $2
		)
	`,
		acc.Provider,
		acc.ProviderUserID,
		acc.Email,
		acc.AvatarURL,
		acc.Name,
		acc.Birthday,
	)
	if err != nil {
		return false, fmt.Errorf("store: link roster profile: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: link roster profile: %w", err)
	}
	return n > 0, nil
}
