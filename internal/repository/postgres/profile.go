package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/assoc-server/internal/model"
)

var _ model.ProfileStore = (*ProfileRepository)(nil)

const profileColumns = `id, first_name, last_name, email, role, banned, created_at, updated_at`

type ProfileRepository struct {
	db *Connection
}

func NewProfileRepository(db *Connection) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func scanProfile(row pgx.Row) (model.Profile, error) {
	var p model.Profile
	var role string
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &role, &p.Banned, &p.CreatedAt, &p.UpdatedAt)
	p.Role = model.Role(role)
	return p, err
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to get profile by id: %w", err)
	}

	return p, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

func (r *ProfileRepository) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) (model.Profile, error) {
	query := `UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRow(ctx, query, id, string(role)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to update profile role: %w", err)
	}

	return p, nil
}

func (r *ProfileRepository) UpdateBanned(ctx context.Context, id uuid.UUID, banned bool) (model.Profile, error) {
	query := `UPDATE profiles SET banned = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRow(ctx, query, id, banned))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to update profile ban flag: %w", err)
	}

	return p, nil
}
