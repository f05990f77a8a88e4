package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/database"
	"github.com/dukerupert/homecrew/internal/model"
	"github.com/dukerupert/homecrew/internal/store"
)

// Predefined catalog items seeded by the migrations.
const (
	makeBedID    = "6f1c2a4e-0b1d-4c3e-9a01-000000000001"
	washDishesID = "6f1c2a4e-0b1d-4c3e-9a01-000000000002"
	vacuumID     = "6f1c2a4e-0b1d-4c3e-9a01-000000000004"
)

type fixture struct {
	db  *store.DB
	svc *Services
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:  store.New(db),
		now: time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = New(f.db, Config{
		PINTTL:       time.Hour,
		CursorSecret: "test-cursor-secret",
		Now:          func() time.Time { return f.now },
	}, logger)
	return f
}

// household registers a new household with a fresh admin and returns
// the household id and the admin's user id.
func (f *fixture) household(t *testing.T) (string, string) {
	t.Helper()
	admin := uuid.NewString()
	reg, err := f.svc.Directory.RegisterHousehold(context.Background(), admin, RegisterHouseholdInput{
		Name:        "Crew",
		Timezone:    "UTC",
		ProfileName: "Admin",
	}, false)
	require.NoError(t, err)
	return reg.Household.ID, admin
}

// member adds a new user with role to householdID and returns the user id
// and membership.
func (f *fixture) member(t *testing.T, householdID string, role model.Role) (string, *model.HouseholdMember) {
	t.Helper()
	ctx := context.Background()
	userID := uuid.NewString()
	m, err := f.db.Households.AddMember(ctx, householdID, userID, role)
	require.NoError(t, err)
	_, err = f.db.Profiles.Create(ctx, userID, "Member")
	require.NoError(t, err)
	return userID, m
}

func (f *fixture) chore(t *testing.T, householdID, catalogID, date string, assignee *string) *model.DailyChore {
	t.Helper()
	c, err := f.svc.Ledger.CreateDailyChore(context.Background(), householdID, "", CreateDailyChoreInput{
		Date:           date,
		ChoreCatalogID: catalogID,
		AssigneeID:     assignee,
	})
	require.NoError(t, err)
	return c
}

func requireCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apperr.CodeOf(err), "error: %v", err)
}

func ptr[T any](v T) *T {
	return &v
}
