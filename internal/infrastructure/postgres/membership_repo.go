package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/srivastavahk/TaskFlow/internal/domain"
)

type MembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(pool *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func (r *MembershipRepository) Get(ctx context.Context, userID, teamID string) (*domain.Membership, error) {
	var m domain.Membership
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, team_id, role, joined_at
		FROM team_members
		WHERE user_id = $1 AND team_id = $2`, userID, teamID,
	).Scan(&m.UserID, &m.TeamID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotTeamMember
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

func (r *MembershipRepository) Add(ctx context.Context, m *domain.Membership) (*domain.Membership, error) {
	return addMembership(ctx, r.pool, m.UserID, m.TeamID, m.Role)
}

func (r *MembershipRepository) ListMembers(ctx context.Context, teamID string) ([]*domain.Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name, u.email, m.role, m.joined_at
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.joined_at ASC, u.id ASC`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []*domain.Member{}
	for rows.Next() {
		var mem domain.Member
		if err := rows.Scan(&mem.UserID, &mem.Name, &mem.Email, &mem.Role, &mem.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, &mem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// addMembership inserts the pair unless it already exists. It runs on either
// the pool or an open transaction.
func addMembership(ctx context.Context, q querier, userID, teamID string, role domain.Role) (*domain.Membership, error) {
	var m domain.Membership
	err := q.QueryRow(ctx, `
		INSERT INTO team_members (user_id, team_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, team_id) DO NOTHING
		RETURNING user_id, team_id, role, joined_at`,
		userID, teamID, role,
	).Scan(&m.UserID, &m.TeamID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlreadyMember
		}
		return nil, fmt.Errorf("insert membership: %w", err)
	}
	return &m, nil
}
