package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/srivastavahk/TaskFlow/internal/domain"
)

const invitationColumns = `id, email, team_id, invited_by, token_hash, expires_at, created_at`

type InvitationRepository struct {
	pool *pgxpool.Pool
}

func NewInvitationRepository(pool *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{pool: pool}
}

// Create inserts inv, first dropping an invitation for the same (email, team)
// that expired before now. A live one trips the unique index.
func (r *InvitationRepository) Create(ctx context.Context, inv *domain.Invitation, now time.Time) (*domain.Invitation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM invitations
		WHERE lower(email) = lower($1) AND team_id = $2 AND expires_at <= $3`,
		inv.Email, inv.TeamID, now,
	); err != nil {
		return nil, fmt.Errorf("drop expired invitation: %w", err)
	}

	created, err := scanInvitation(tx.QueryRow(ctx, `
		INSERT INTO invitations (email, team_id, invited_by, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+invitationColumns,
		inv.Email, inv.TeamID, inv.InvitedBy, inv.TokenHash, inv.ExpiresAt, inv.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrInvitationExists
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return created, nil
}

func (r *InvitationRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token_hash = $1`, tokenHash))
}

func (r *InvitationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

// Redeem consumes the invitation and adds the membership in one transaction.
// The DELETE ... RETURNING row lock serialises concurrent redeemers: only the
// first sees a row, the rest get ErrInvitationNotFound.
func (r *InvitationRepository) Redeem(ctx context.Context, invitationID, userID string, role domain.Role) (*domain.Membership, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(ctx, tx)

	var teamID string
	err = tx.QueryRow(ctx,
		`DELETE FROM invitations WHERE id = $1 RETURNING team_id`, invitationID,
	).Scan(&teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("consume invitation: %w", err)
	}

	m, addErr := addMembership(ctx, tx, userID, teamID, role)
	if addErr != nil && !errors.Is(addErr, domain.ErrAlreadyMember) {
		return nil, addErr
	}

	// An existing member still spends the invitation.
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	if addErr != nil {
		return nil, addErr
	}
	return m, nil
}

func (r *InvitationRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM invitations
		WHERE id IN (
			SELECT id FROM invitations
			WHERE  expires_at < $1
			ORDER BY expires_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)`, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired invitations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := row.Scan(
		&inv.ID, &inv.Email, &inv.TeamID, &inv.InvitedBy,
		&inv.TokenHash, &inv.ExpiresAt, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("scan invitation: %w", err)
	}
	return &inv, nil
}
