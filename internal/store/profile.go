package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/homecrew/internal/model"
)

type ProfileStore struct {
	db DBTX
}

func NewProfileStore(db DBTX) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(s scanner) (*model.Profile, error) {
	var p model.Profile
	var avatar sql.NullString
	var deletedAt sql.NullTime
	err := s.Scan(&p.ID, &p.Name, &avatar, &p.TotalPoints, &p.CreatedAt, &p.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	p.AvatarURL = stringPtr(avatar)
	p.DeletedAt = timePtr(deletedAt)
	return &p, nil
}

const profileCols = `id, name, avatar_url, total_points, created_at, updated_at, deleted_at`

// Create inserts a profile keyed by the identity's user id. An existing
// profile is left untouched.
func (s *ProfileStore) Create(ctx context.Context, userID, name string) (*model.Profile, error) {
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, created_at, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		userID, name, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetByID(ctx, userID)
}

func (s *ProfileStore) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Update writes only the non-nil fields.
func (s *ProfileStore) Update(ctx context.Context, id string, name, avatarURL *string) (*model.Profile, error) {
	var sets []string
	var args []any
	if name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *name)
	}
	if avatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, nullString(avatarURL))
	}
	if len(sets) == 0 {
		return s.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now(), id)

	_, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = ? AND deleted_at IS NULL`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByID(ctx, id)
}

// SetTotalPoints refreshes the cached total. A missing profile is not an
// error; the cache simply has nowhere to live.
func (s *ProfileStore) SetTotalPoints(ctx context.Context, id string, total int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET total_points = ? WHERE id = ?`,
		total, id,
	)
	if err != nil {
		return fmt.Errorf("set profile total points: %w", err)
	}
	return nil
}
