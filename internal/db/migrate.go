package db

import (
	"context"
	"database/sql"
)

// accounts carries the (provider, provider_user_id) unique index the login
// workflow relies on to collapse concurrent first logins into one row.
// Email is indexed but not unique: placeholder and real emails may repeat
// across providers and are never used for matching.
const schema = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS accounts (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    email text NOT NULL,
    nickname text NOT NULL DEFAULT '',
    name text NOT NULL DEFAULT '',
    avatar_url text NOT NULL DEFAULT '',
    provider text NOT NULL,
    provider_user_id text NOT NULL,
    birthday text NOT NULL DEFAULT '',
    birth_year text NOT NULL DEFAULT '',
    gender text NOT NULL DEFAULT '',
    age_range text NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW(),
    last_login_at timestamptz,
    CONSTRAINT accounts_provider_unique
        UNIQUE (provider, provider_user_id)
);

CREATE INDEX IF NOT EXISTS accounts_email_lower_idx
ON accounts (LOWER(email));

CREATE TABLE IF NOT EXISTS login_credentials (
    id uuid PRIMARY KEY,
    account_id uuid NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    secret_hash text NOT NULL,
    hash_version text NOT NULL,
    issued_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS login_credentials_account_id_idx
ON login_credentials (account_id);

CREATE TABLE IF NOT EXISTS players (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    name text NOT NULL,
    birthday text NOT NULL DEFAULT '',
    provider text,
    provider_user_id text,
    email text,
    profile_image text,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS players_name_birthday_idx
ON players (name, birthday);
`

func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
