package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// authMigration creates the login tables when they are missing. Profile
// tables hold more columns in the full academy schema; only what login
// reads is declared here.
const authMigration = `
CREATE TABLE IF NOT EXISTS students (
    id bigserial PRIMARY KEY,
    name text NOT NULL,
    register_no text UNIQUE,
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS student_users (
    id bigserial PRIMARY KEY,
    student_id bigint NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    email text NOT NULL,
    password text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS student_users_email_lower_unique
ON student_users (LOWER(email));

CREATE TABLE IF NOT EXISTS supervisors (
    id bigserial PRIMARY KEY,
    name text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS supervisor_users (
    id bigserial PRIMARY KEY,
    supervisor_id bigint NOT NULL REFERENCES supervisors(id) ON DELETE CASCADE,
    email text NOT NULL,
    password text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS supervisor_users_email_lower_unique
ON supervisor_users (LOWER(email));

CREATE TABLE IF NOT EXISTS user_roles (
    id bigserial PRIMARY KEY,
    user_id text NOT NULL UNIQUE,
    role text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW()
);
`

func RunAuthMigration(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, authMigration); err != nil {
		return fmt.Errorf("auth migration failed: %w", err)
	}
	return nil
}
