package pgboard

import (
	"context"
	"time"

	"github.com/BearBump/LoadBoard/internal/apperr"
	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

func (s *Storage) CreateProfile(ctx context.Context, in models.ProfileCreateInput) (*models.UserProfile, error) {
	now := time.Now().UTC()
	id := uuid.NewString()

	_, err := s.db.Exec(ctx, `
INSERT INTO profiles (id, full_name, email, phone, role, password_hash, verified, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,FALSE,$7,$7)
`, id, in.FullName, in.Email, in.Phone, in.Role, in.PasswordHash, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, errors.Wrapf(apperr.ErrValidation, "email %s already registered", in.Email)
		}
		return nil, errors.Wrap(err, "insert profile")
	}

	return &models.UserProfile{
		ID:        id,
		FullName:  in.FullName,
		Email:     in.Email,
		Phone:     in.Phone,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Storage) GetProfileByID(ctx context.Context, id string) (*models.UserProfile, error) {
	row := s.db.QueryRow(ctx, `
SELECT id, full_name, email, phone, role, verified, created_at, updated_at
FROM profiles WHERE id = $1
`, id)
	var p models.UserProfile
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.Role, &p.Verified, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(apperr.ErrNotFound, "profile %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select profile")
	}
	return &p, nil
}

func (s *Storage) GetCredentialsByEmail(ctx context.Context, email string) (*models.Credentials, error) {
	row := s.db.QueryRow(ctx, `
SELECT id, password_hash, role, verified FROM profiles WHERE email = $1
`, email)
	var c models.Credentials
	err := row.Scan(&c.UserID, &c.PasswordHash, &c.Role, &c.Verified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(apperr.ErrNotFound, "profile %s", email)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select credentials")
	}
	return &c, nil
}

func (s *Storage) UpdateProfile(ctx context.Context, id, fullName, phone string) error {
	_, err := s.db.Exec(ctx, `
UPDATE profiles SET full_name = $2, phone = $3, updated_at = now() WHERE id = $1
`, id, fullName, phone)
	return errors.Wrap(err, "update profile")
}

func (s *Storage) SetProfileVerified(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `
UPDATE profiles SET verified = TRUE, updated_at = now() WHERE id = $1
`, id)
	return errors.Wrap(err, "set profile verified")
}

// ListDriverIDs — получатели broadcast-уведомления о новом грузе.
func (s *Storage) ListDriverIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM profiles WHERE role = $1`, models.RoleDriver)
	if err != nil {
		return nil, errors.Wrap(err, "select driver ids")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan driver id")
		}
		out = append(out, id)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ListDrivers(ctx context.Context) ([]*models.UserProfile, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, full_name, email, phone, role, verified, created_at, updated_at
FROM profiles WHERE role = $1 ORDER BY created_at DESC
`, models.RoleDriver)
	if err != nil {
		return nil, errors.Wrap(err, "select drivers")
	}
	defer rows.Close()

	var out []*models.UserProfile
	for rows.Next() {
		var p models.UserProfile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.Role, &p.Verified, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan driver")
		}
		out = append(out, &p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) AdminStats(ctx context.Context) (models.AdminStats, error) {
	var st models.AdminStats
	err := s.db.QueryRow(ctx, `
SELECT
  (SELECT COUNT(*) FROM profiles),
  (SELECT COUNT(*) FROM profiles WHERE role = $1),
  (SELECT COUNT(*) FROM profiles WHERE role = $2),
  (SELECT COUNT(*) FROM loads WHERE status = $3),
  (SELECT COUNT(*) FROM loads WHERE status = $4)
`, models.RoleDriver, models.RoleShipper, models.LoadStatusInProgress, models.LoadStatusCompleted).
		Scan(&st.TotalUsers, &st.TotalDrivers, &st.TotalShippers, &st.ActiveLoads, &st.CompletedLoads)
	if err != nil {
		return models.AdminStats{}, errors.Wrap(err, "select admin stats")
	}
	return st, nil
}
