// internal/repository/postgres/role_repo.go
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

type RoleRepository struct {
	db    Querier
	query string
}

func NewRoleRepository(db Querier, tables Tables) *RoleRepository {
	t := tables.withDefaults()
	return &RoleRepository{
		db: db,
		query: fmt.Sprintf(`
			SELECT id, user_id, role
			FROM %s
			WHERE user_id = $1
			LIMIT 1
		`, pq.QuoteIdentifier(t.UserRoles)),
	}
}

// FindRole returns the role grant of an identity provider user
func (r *RoleRepository) FindRole(ctx context.Context, userID string) (*auth.RoleGrant, error) {
	var grant auth.RoleGrant
	err := r.db.QueryRow(ctx, r.query, userID).Scan(&grant.ID, &grant.UserID, &grant.Role)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find role: %w", err)
	}

	return &grant, nil
}
