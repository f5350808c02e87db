// internal/repository/postgres/credential_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"academy-service/internal/domain/auth"
	xerrors "academy-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// Tables names the credential and profile tables. Deployments that
// renamed them can override any field; empty fields keep the default.
type Tables struct {
	StudentUsers    string
	Students        string
	SupervisorUsers string
	Supervisors     string
	UserRoles       string
}

func DefaultTables() Tables {
	return Tables{
		StudentUsers:    "student_users",
		Students:        "students",
		SupervisorUsers: "supervisor_users",
		Supervisors:     "supervisors",
		UserRoles:       "user_roles",
	}
}

func (t Tables) withDefaults() Tables {
	d := DefaultTables()
	if t.StudentUsers == "" {
		t.StudentUsers = d.StudentUsers
	}
	if t.Students == "" {
		t.Students = d.Students
	}
	if t.SupervisorUsers == "" {
		t.SupervisorUsers = d.SupervisorUsers
	}
	if t.Supervisors == "" {
		t.Supervisors = d.Supervisors
	}
	if t.UserRoles == "" {
		t.UserRoles = d.UserRoles
	}
	return t
}

type CredentialRepository struct {
	db              Querier
	studentQuery    string
	supervisorQuery string
}

func NewCredentialRepository(db Querier, tables Tables) *CredentialRepository {
	t := tables.withDefaults()
	return &CredentialRepository{
		db: db,
		studentQuery: fmt.Sprintf(`
			SELECT p.id, u.email, u.password, p.name, COALESCE(p.register_no, '')
			FROM %s u
			JOIN %s p ON p.id = u.student_id
			WHERE LOWER(u.email) = LOWER($1)
			LIMIT 1
		`, pq.QuoteIdentifier(t.StudentUsers), pq.QuoteIdentifier(t.Students)),
		supervisorQuery: fmt.Sprintf(`
			SELECT p.id, u.email, u.password, p.name, ''
			FROM %s u
			JOIN %s p ON p.id = u.supervisor_id
			WHERE LOWER(u.email) = LOWER($1)
			LIMIT 1
		`, pq.QuoteIdentifier(t.SupervisorUsers), pq.QuoteIdentifier(t.Supervisors)),
	}
}

// FindStudentByEmail returns the student login joined to its profile
func (r *CredentialRepository) FindStudentByEmail(ctx context.Context, email string) (*auth.CredentialRecord, error) {
	return r.find(ctx, r.studentQuery, email, "student")
}

// FindSupervisorByEmail returns the supervisor login joined to its profile
func (r *CredentialRepository) FindSupervisorByEmail(ctx context.Context, email string) (*auth.CredentialRecord, error) {
	return r.find(ctx, r.supervisorQuery, email, "supervisor")
}

func (r *CredentialRepository) find(ctx context.Context, query, email, kind string) (*auth.CredentialRecord, error) {
	var rec auth.CredentialRecord
	err := r.db.QueryRow(ctx, query, email).Scan(
		&rec.ID, &rec.Email, &rec.PasswordHash, &rec.Name, &rec.RegisterNo,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s credentials: %w", kind, err)
	}

	return &rec, nil
}
