package pgboard

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS profiles (
  id UUID PRIMARY KEY,
  full_name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  verified BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE (email)
)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_role ON profiles(role)`,
		`
CREATE TABLE IF NOT EXISTS loads (
  id UUID PRIMARY KEY,
  owner_id UUID NOT NULL REFERENCES profiles(id),
  driver_id UUID NULL REFERENCES profiles(id),
  origin TEXT NOT NULL,
  destination TEXT NOT NULL,
  origin_lat DOUBLE PRECISION NULL,
  origin_lng DOUBLE PRECISION NULL,
  dest_lat DOUBLE PRECISION NULL,
  dest_lng DOUBLE PRECISION NULL,
  weight_kg DOUBLE PRECISION NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  package_type TEXT NULL,
  truck_type TEXT NULL,
  body_type TEXT NULL,
  pickup_date TIMESTAMPTZ NULL,
  receiver_name TEXT NULL,
  receiver_phone TEXT NULL,
  receiver_address TEXT NULL,
  status TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_loads_status_created_at ON loads(status, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_loads_owner_id ON loads(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loads_driver_id ON loads(driver_id)`,
		// Инвариант: driver_id заполнен ровно для in_progress/completed.
		`
DO $$ BEGIN
  ALTER TABLE loads ADD CONSTRAINT chk_loads_driver_status CHECK (
    (driver_id IS NOT NULL) = (status IN ('in_progress', 'completed'))
  );
EXCEPTION WHEN duplicate_object THEN NULL;
END $$
`,
		`
CREATE TABLE IF NOT EXISTS notifications (
  id UUID PRIMARY KEY,
  recipient_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  type TEXT NOT NULL,
  read BOOLEAN NOT NULL DEFAULT FALSE,
  dedupe_key TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created_at ON notifications(recipient_id, created_at DESC)`,
		// At-least-once из Kafka: повторная запись того же события должна
		// стать ноопом, а не вторым уведомлением.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_notifications_dedup ON notifications(dedupe_key) WHERE dedupe_key IS NOT NULL`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
