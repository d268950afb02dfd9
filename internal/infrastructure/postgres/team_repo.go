package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/srivastavahk/TaskFlow/internal/domain"
)

const teamColumns = `id, name, description, created_by, created_at, updated_at`

type TeamRepository struct {
	pool *pgxpool.Pool
}

func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

// CreateWithAdmin inserts the team and makes its creator an admin. Both rows
// commit together or not at all.
func (r *TeamRepository) CreateWithAdmin(ctx context.Context, team *domain.Team) (*domain.Team, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(ctx, tx)

	created, err := scanTeam(tx.QueryRow(ctx, `
		INSERT INTO teams (name, description, created_by)
		VALUES ($1, $2, $3)
		RETURNING `+teamColumns,
		team.Name, team.Description, team.CreatedBy,
	))
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO team_members (user_id, team_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`,
		created.CreatedBy, created.ID, domain.RoleAdmin, created.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert admin membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return created, nil
}

// GetByID treats an id that is not a UUID as unknown.
func (r *TeamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrTeamNotFound
	}
	return scanTeam(r.pool.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
}

func (r *TeamRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Team, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.name, t.description, t.created_by, t.created_at, t.updated_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at ASC, t.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	teams := []*domain.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	return teams, nil
}

func scanTeam(row rowScanner) (*domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, fmt.Errorf("scan team: %w", err)
	}
	return &t, nil
}
