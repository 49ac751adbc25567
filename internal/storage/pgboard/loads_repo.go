package pgboard

import (
	"context"
	"time"

	"github.com/BearBump/LoadBoard/internal/apperr"
	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const loadColumns = `
  id, owner_id, driver_id,
  origin, destination, origin_lat, origin_lng, dest_lat, dest_lng,
  weight_kg, price, package_type, truck_type, body_type, pickup_date,
  receiver_name, receiver_phone, receiver_address,
  status, created_at, updated_at`

// "Открытый" груз: доступен к принятию. pending — легаси-синоним,
// в выборках и условных апдейтах трактуем одинаково с available.
const openStatuses = `('available', 'pending')`

func (s *Storage) CreateLoad(ctx context.Context, in models.LoadCreateInput, ownerID string) (*models.Load, error) {
	now := time.Now().UTC()
	id := uuid.NewString()

	row := s.db.QueryRow(ctx, `
INSERT INTO loads (
  id, owner_id, driver_id,
  origin, destination, origin_lat, origin_lng, dest_lat, dest_lng,
  weight_kg, price, package_type, truck_type, body_type, pickup_date,
  receiver_name, receiver_phone, receiver_address,
  status, created_at, updated_at
)
VALUES ($1,$2,NULL,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$19)
RETURNING`+loadColumns,
		id, ownerID,
		in.Origin, in.Destination, in.OriginLat, in.OriginLng, in.DestLat, in.DestLng,
		in.WeightKG, in.Price, in.PackageType, in.TruckType, in.BodyType, in.PickupDate,
		in.ReceiverName, in.ReceiverPhone, in.ReceiverAddress,
		models.LoadStatusAvailable, now)

	l, err := scanLoad(row)
	if err != nil {
		return nil, errors.Wrap(err, "insert load")
	}
	return l, nil
}

func (s *Storage) GetLoadByID(ctx context.Context, id string) (*models.Load, error) {
	row := s.db.QueryRow(ctx, `SELECT`+loadColumns+` FROM loads WHERE id = $1`, id)
	l, err := scanLoad(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(apperr.ErrNotFound, "load %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select load")
	}
	return l, nil
}

// AcceptLoad — условный апдейт "только если груз всё ещё открыт".
// Из двух гоняющихся водителей выигрывает ровно один, проигравший
// получает ErrConflictLost (или ErrInvalidTransition из терминального).
func (s *Storage) AcceptLoad(ctx context.Context, loadID, driverID string) (*models.Load, error) {
	row := s.db.QueryRow(ctx, `
UPDATE loads
SET status = $3, driver_id = $2, updated_at = now()
WHERE id = $1 AND status IN `+openStatuses+`
RETURNING`+loadColumns,
		loadID, driverID, models.LoadStatusInProgress)

	l, err := scanLoad(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.transitionFailure(ctx, loadID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "accept load")
	}
	return l, nil
}

func (s *Storage) CompleteLoad(ctx context.Context, loadID string) (*models.Load, error) {
	row := s.db.QueryRow(ctx, `
UPDATE loads
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING`+loadColumns,
		loadID, models.LoadStatusCompleted, models.LoadStatusInProgress)

	l, err := scanLoad(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.transitionFailure(ctx, loadID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "complete load")
	}
	return l, nil
}

// ReleaseLoad возвращает груз на рынок: in_progress -> available,
// driver_id очищается.
func (s *Storage) ReleaseLoad(ctx context.Context, loadID string) (*models.Load, error) {
	row := s.db.QueryRow(ctx, `
UPDATE loads
SET status = $2, driver_id = NULL, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING`+loadColumns,
		loadID, models.LoadStatusAvailable, models.LoadStatusInProgress)

	l, err := scanLoad(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.transitionFailure(ctx, loadID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "release load")
	}
	return l, nil
}

// ForceCancelLoad — админская отмена из любого нетерминального статуса.
// Транзакция с FOR UPDATE, чтобы вернуть прежний статус для события.
func (s *Storage) ForceCancelLoad(ctx context.Context, loadID string) (l *models.Load, prevStatus string, err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, "", errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `SELECT status FROM loads WHERE id = $1 FOR UPDATE`, loadID).Scan(&prevStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", errors.Wrapf(apperr.ErrNotFound, "load %s", loadID)
	}
	if err != nil {
		return nil, "", errors.Wrap(err, "select load status")
	}
	if models.LoadStatusTerminal(prevStatus) {
		return nil, "", errors.Wrapf(apperr.ErrInvalidTransition, "load %s is %s", loadID, prevStatus)
	}

	row := tx.QueryRow(ctx, `
UPDATE loads
SET status = $2, driver_id = NULL, updated_at = now()
WHERE id = $1
RETURNING`+loadColumns,
		loadID, models.LoadStatusCancelled)
	l, err = scanLoad(row)
	if err != nil {
		return nil, "", errors.Wrap(err, "force cancel load")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", errors.Wrap(err, "commit tx")
	}
	return l, models.NormalizeLoadStatus(prevStatus), nil
}

// transitionFailure различает "груза нет", "проиграна гонка" и
// "переход из текущего статуса не определён".
func (s *Storage) transitionFailure(ctx context.Context, loadID string) error {
	var status string
	err := s.db.QueryRow(ctx, `SELECT status FROM loads WHERE id = $1`, loadID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrapf(apperr.ErrNotFound, "load %s", loadID)
	}
	if err != nil {
		return errors.Wrap(err, "select load status")
	}
	if status == models.LoadStatusInProgress {
		return errors.Wrapf(apperr.ErrConflictLost, "load %s", loadID)
	}
	return errors.Wrapf(apperr.ErrInvalidTransition, "load %s is %s", loadID, status)
}

func (s *Storage) ListAvailableLoads(ctx context.Context) ([]*models.Load, error) {
	return s.listLoads(ctx, `WHERE l.status IN `+openStatuses)
}

func (s *Storage) ListUserLoads(ctx context.Context, userID string) ([]*models.Load, error) {
	return s.listLoads(ctx, `WHERE l.owner_id = $1 OR l.driver_id = $1`, userID)
}

func (s *Storage) ListAllLoads(ctx context.Context) ([]*models.Load, error) {
	return s.listLoads(ctx, ``)
}

func (s *Storage) listLoads(ctx context.Context, where string, args ...any) ([]*models.Load, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  l.id, l.owner_id, l.driver_id,
  l.origin, l.destination, l.origin_lat, l.origin_lng, l.dest_lat, l.dest_lng,
  l.weight_kg, l.price, l.package_type, l.truck_type, l.body_type, l.pickup_date,
  l.receiver_name, l.receiver_phone, l.receiver_address,
  l.status, l.created_at, l.updated_at,
  o.full_name, o.phone,
  d.full_name, d.phone
FROM loads l
JOIN profiles o ON o.id = l.owner_id
LEFT JOIN profiles d ON d.id = l.driver_id
`+where+`
ORDER BY l.created_at DESC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select loads")
	}
	defer rows.Close()

	var out []*models.Load
	for rows.Next() {
		l, err := scanLoadJoined(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan load")
		}
		out = append(out, l)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) UserStats(ctx context.Context, userID string) (models.UserStats, error) {
	var st models.UserStats
	err := s.db.QueryRow(ctx, `
SELECT
  COUNT(*) FILTER (WHERE status = $2),
  COUNT(*) FILTER (WHERE status = $3)
FROM loads
WHERE owner_id = $1 OR driver_id = $1
`, userID, models.LoadStatusInProgress, models.LoadStatusCompleted).Scan(&st.ActiveLoads, &st.CompletedLoads)
	if err != nil {
		return models.UserStats{}, errors.Wrap(err, "select user stats")
	}
	return st, nil
}

type loadScanner interface {
	Scan(dest ...any) error
}

func scanLoad(row loadScanner) (*models.Load, error) {
	var l models.Load
	if err := row.Scan(
		&l.ID, &l.OwnerID, &l.DriverID,
		&l.Origin, &l.Destination, &l.OriginLat, &l.OriginLng, &l.DestLat, &l.DestLng,
		&l.WeightKG, &l.Price, &l.PackageType, &l.TruckType, &l.BodyType, &l.PickupDate,
		&l.ReceiverName, &l.ReceiverPhone, &l.ReceiverAddress,
		&l.Status, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.Status = models.NormalizeLoadStatus(l.Status)
	return &l, nil
}

func scanLoadJoined(row loadScanner) (*models.Load, error) {
	var l models.Load
	var ownerName, ownerPhone string
	var driverName, driverPhone *string
	if err := row.Scan(
		&l.ID, &l.OwnerID, &l.DriverID,
		&l.Origin, &l.Destination, &l.OriginLat, &l.OriginLng, &l.DestLat, &l.DestLng,
		&l.WeightKG, &l.Price, &l.PackageType, &l.TruckType, &l.BodyType, &l.PickupDate,
		&l.ReceiverName, &l.ReceiverPhone, &l.ReceiverAddress,
		&l.Status, &l.CreatedAt, &l.UpdatedAt,
		&ownerName, &ownerPhone,
		&driverName, &driverPhone,
	); err != nil {
		return nil, err
	}
	l.Status = models.NormalizeLoadStatus(l.Status)
	l.Owner = &models.PartyInfo{FullName: ownerName, Phone: ownerPhone}
	if driverName != nil {
		phone := ""
		if driverPhone != nil {
			phone = *driverPhone
		}
		l.Driver = &models.PartyInfo{FullName: *driverName, Phone: phone}
	}
	return &l, nil
}
