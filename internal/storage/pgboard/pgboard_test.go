package pgboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/LoadBoard/internal/apperr"
	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "loadboard_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/loadboard_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func mustProfile(t *testing.T, st *Storage, name, email, role string) *models.UserProfile {
	t.Helper()
	p, err := st.CreateProfile(context.Background(), models.ProfileCreateInput{
		FullName:     name,
		Email:        email,
		Phone:        "+966500000000",
		Role:         role,
		PasswordHash: "x",
	})
	require.NoError(t, err)
	return p
}

func TestPGBoard_LoadLifecycle(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	shipper := mustProfile(t, st, "Shipper", "shipper@example.com", models.RoleShipper)
	driverA := mustProfile(t, st, "Driver A", "driver.a@example.com", models.RoleDriver)
	driverB := mustProfile(t, st, "Driver B", "driver.b@example.com", models.RoleDriver)

	created, err := st.CreateLoad(ctx, models.LoadCreateInput{
		Origin:      "Riyadh",
		Destination: "Jeddah",
		WeightKG:    1200,
		Price:       1000,
	}, shipper.ID)
	require.NoError(t, err)
	require.Equal(t, models.LoadStatusAvailable, created.Status)
	require.Nil(t, created.DriverID)
	require.Equal(t, shipper.ID, created.OwnerID)

	// Две гонящихся попытки accept: выигрывает ровно одна.
	var wg sync.WaitGroup
	results := make([]error, 2)
	winners := make([]*models.Load, 2)
	for i, d := range []string{driverA.ID, driverB.ID} {
		wg.Add(1)
		go func(i int, driverID string) {
			defer wg.Done()
			winners[i], results[i] = st.AcceptLoad(ctx, created.ID, driverID)
		}(i, d)
	}
	wg.Wait()

	var okCount, conflictCount int
	var won *models.Load
	for i := range results {
		if results[i] == nil {
			okCount++
			won = winners[i]
		} else if errors.Is(results[i], apperr.ErrConflictLost) {
			conflictCount++
		}
	}
	require.Equal(t, 1, okCount)
	require.Equal(t, 1, conflictCount)
	require.Equal(t, models.LoadStatusInProgress, won.Status)
	require.NotNil(t, won.DriverID)
	require.Contains(t, []string{driverA.ID, driverB.ID}, *won.DriverID)

	// Инвариант: driver_id непуст <=> in_progress/completed.
	got, err := st.GetLoadByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DriverID)

	// Отказ водителя возвращает груз на рынок и чистит driver_id.
	released, err := st.ReleaseLoad(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.LoadStatusAvailable, released.Status)
	require.Nil(t, released.DriverID)

	market, err := st.ListAvailableLoads(ctx)
	require.NoError(t, err)
	require.Len(t, market, 1)
	require.Equal(t, created.ID, market[0].ID)
	require.Equal(t, "Shipper", market[0].Owner.FullName)

	// Повторное принятие и завершение.
	_, err = st.AcceptLoad(ctx, created.ID, driverB.ID)
	require.NoError(t, err)
	done, err := st.CompleteLoad(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.LoadStatusCompleted, done.Status)
	require.NotNil(t, done.DriverID)

	// Повторный complete — явный отказ, не тихий успех.
	_, err = st.CompleteLoad(ctx, created.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	// Из терминального статуса переходов нет.
	_, err = st.AcceptLoad(ctx, created.ID, driverA.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, _, err = st.ForceCancelLoad(ctx, created.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	stats, err := st.UserStats(ctx, shipper.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.ActiveLoads)
	require.Equal(t, int64(1), stats.CompletedLoads)
}

func TestPGBoard_LegacyPendingAndForceCancel(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	shipper := mustProfile(t, st, "Shipper", "s@example.com", models.RoleShipper)
	driver := mustProfile(t, st, "Driver", "d@example.com", models.RoleDriver)

	created, err := st.CreateLoad(ctx, models.LoadCreateInput{
		Origin: "Dammam", Destination: "Riyadh", WeightKG: 500, Price: 700,
	}, shipper.ID)
	require.NoError(t, err)

	// Старые записи со статусом pending должны вести себя как available.
	_, err = st.db.Exec(ctx, `UPDATE loads SET status = 'pending' WHERE id = $1`, created.ID)
	require.NoError(t, err)

	got, err := st.GetLoadByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.LoadStatusAvailable, got.Status)

	cancelled, prev, err := st.ForceCancelLoad(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.LoadStatusCancelled, cancelled.Status)
	require.Equal(t, models.LoadStatusAvailable, prev)

	_, err = st.AcceptLoad(ctx, created.ID, driver.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = st.GetLoadByID(ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPGBoard_NotificationsDedup(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	d1 := mustProfile(t, st, "D1", "d1@example.com", models.RoleDriver)
	d2 := mustProfile(t, st, "D2", "d2@example.com", models.RoleDriver)

	ins := []models.NotificationCreateInput{
		{RecipientID: d1.ID, Title: "t", Message: "m", Type: models.NotificationTypeNewLoad, DedupeKey: "ev1:" + d1.ID},
		{RecipientID: d2.ID, Title: "t", Message: "m", Type: models.NotificationTypeNewLoad, DedupeKey: "ev1:" + d2.ID},
	}
	first, err := st.InsertNotificationsBatch(ctx, ins)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Повторная доставка того же события — ноль новых строк.
	second, err := st.InsertNotificationsBatch(ctx, ins)
	require.NoError(t, err)
	require.Empty(t, second)

	list, err := st.ListNotifications(ctx, d1.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.False(t, list[0].Read)

	require.NoError(t, st.MarkNotificationRead(ctx, list[0].ID, d1.ID))
	list, err = st.ListNotifications(ctx, d1.ID, 0)
	require.NoError(t, err)
	require.True(t, list[0].Read)

	require.NoError(t, st.ClearNotifications(ctx, d1.ID))
	list, err = st.ListNotifications(ctx, d1.ID, 0)
	require.NoError(t, err)
	require.Empty(t, list)

	// У второго получателя ничего не тронуто.
	list, err = st.ListNotifications(ctx, d2.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestPGBoard_ProfilesAndStats(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	shipper := mustProfile(t, st, "S", "s@example.com", models.RoleShipper)
	mustProfile(t, st, "D1", "d1@example.com", models.RoleDriver)
	mustProfile(t, st, "D2", "d2@example.com", models.RoleDriver)

	// Дубликат email отклоняется как ValidationError.
	_, err := st.CreateProfile(ctx, models.ProfileCreateInput{
		FullName: "S2", Email: "s@example.com", Role: models.RoleShipper, PasswordHash: "x",
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	ids, err := st.ListDriverIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	drivers, err := st.ListDrivers(ctx)
	require.NoError(t, err)
	require.Len(t, drivers, 2)

	creds, err := st.GetCredentialsByEmail(ctx, "s@example.com")
	require.NoError(t, err)
	require.Equal(t, shipper.ID, creds.UserID)
	require.False(t, creds.Verified)

	require.NoError(t, st.SetProfileVerified(ctx, shipper.ID))
	creds, err = st.GetCredentialsByEmail(ctx, "s@example.com")
	require.NoError(t, err)
	require.True(t, creds.Verified)

	require.NoError(t, st.UpdateProfile(ctx, shipper.ID, "S Renamed", "+966511111111"))
	p, err := st.GetProfileByID(ctx, shipper.ID)
	require.NoError(t, err)
	require.Equal(t, "S Renamed", p.FullName)

	stats, err := st.AdminStats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.TotalUsers)
	require.Equal(t, int64(2), stats.TotalDrivers)
	require.Equal(t, int64(1), stats.TotalShippers)
}
