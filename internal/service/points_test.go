package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/model"
)

func (f *fixture) complete(t *testing.T, householdID, catalogID, date, userID string) *model.DailyChore {
	t.Helper()
	c := f.chore(t, householdID, catalogID, date, &userID)
	done := model.StatusDone
	c, err := f.svc.Ledger.UpdateDailyChore(context.Background(), householdID, c.ID, userID, UpdateDailyChoreInput{Status: &done})
	require.NoError(t, err)
	return c
}

func TestCalculateTotalPointsSoftDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hhID, admin := f.household(t)

	f.complete(t, hhID, washDishesID, "2024-01-15", admin)
	vacuum := f.complete(t, hhID, vacuumID, "2024-01-15", admin)
	// Todo chores do not count.
	f.chore(t, hhID, makeBedID, "2024-01-15", &admin)

	total, err := f.svc.Points.CalculateTotalPoints(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 30, total)

	require.NoError(t, f.svc.Ledger.DeleteDailyChore(ctx, hhID, vacuum.ID, admin))
	total, err = f.svc.Points.CalculateTotalPoints(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 10, total)

	total, err = f.svc.Points.CalculateTotalPoints(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestGetUserPointsDateRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hhID, admin := f.household(t)

	r, err := f.svc.Points.GetUserPointsDateRange(ctx, admin)
	require.NoError(t, err)
	assert.Nil(t, r.FirstDate)
	assert.Nil(t, r.LastDate)

	f.complete(t, hhID, washDishesID, "2024-03-02", admin)
	f.complete(t, hhID, washDishesID, "2024-01-15", admin)
	f.chore(t, hhID, washDishesID, "2024-05-01", &admin)

	r, err = f.svc.Points.GetUserPointsDateRange(ctx, admin)
	require.NoError(t, err)
	require.NotNil(t, r.FirstDate)
	require.NotNil(t, r.LastDate)
	assert.Equal(t, "2024-01-15", *r.FirstDate)
	assert.Equal(t, "2024-03-02", *r.LastDate)
}

func TestDailyPointsSummaryIsDense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hhID, admin := f.household(t)

	f.complete(t, hhID, washDishesID, "2025-03-08", admin)
	f.complete(t, hhID, makeBedID, "2025-03-10", admin)
	f.complete(t, hhID, vacuumID, "2025-03-10", admin)
	f.complete(t, hhID, vacuumID, "2025-03-01", admin)

	summary, err := f.svc.Points.GetUserDailyPointsSummary(ctx, admin, 0)
	require.NoError(t, err)
	require.Len(t, summary, 7)

	want := []model.DailyPoints{
		{Date: "2025-03-04"}, {Date: "2025-03-05"}, {Date: "2025-03-06"}, {Date: "2025-03-07"},
		{Date: "2025-03-08", Points: 10}, {Date: "2025-03-09"}, {Date: "2025-03-10", Points: 25},
	}
	assert.Equal(t, want, summary)
}

func TestDailyPointsSummaryWithoutChores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Users outside any household fall back to UTC.
	summary, err := f.svc.Points.GetUserDailyPointsSummary(ctx, uuid.NewString(), 30)
	require.NoError(t, err)
	require.Len(t, summary, 30)
	assert.Equal(t, "2025-03-10", summary[29].Date)

	prev, err := time.Parse(model.DateLayout, summary[0].Date)
	require.NoError(t, err)
	assert.Equal(t, 0, summary[0].Points)
	for _, d := range summary[1:] {
		cur, err := time.Parse(model.DateLayout, d.Date)
		require.NoError(t, err)
		assert.Equal(t, prev.AddDate(0, 0, 1), cur)
		assert.Equal(t, 0, d.Points)
		prev = cur
	}
}

func TestDailyPointsSummaryAcrossDST(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hhID, admin := f.household(t)
	_, err := f.svc.Directory.UpdateHousehold(ctx, hhID, admin, UpdateHouseholdInput{Timezone: ptr("America/New_York")})
	require.NoError(t, err)

	// US clocks moved forward on 2025-03-09.
	summary, err := f.svc.Points.GetUserDailyPointsSummary(ctx, admin, 3)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "2025-03-08", summary[0].Date)
	assert.Equal(t, "2025-03-09", summary[1].Date)
	assert.Equal(t, "2025-03-10", summary[2].Date)
}

func TestDailyPointsSummaryDaysBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.NewString()

	for _, days := range []int{-1, 367} {
		_, err := f.svc.Points.GetUserDailyPointsSummary(ctx, user, days)
		requireCode(t, err, apperr.ValidationFailed)
	}
	summary, err := f.svc.Points.GetUserDailyPointsSummary(ctx, user, 366)
	require.NoError(t, err)
	assert.Len(t, summary, 366)
}

func TestGetUserPointsEventsPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hhID, admin := f.household(t)

	c := f.chore(t, hhID, washDishesID, "2024-01-15", &admin)
	done, todo := model.StatusDone, model.StatusTodo
	for i := 0; i < 5; i++ {
		status := &done
		if i%2 == 1 {
			status = &todo
		}
		_, err := f.svc.Ledger.UpdateDailyChore(ctx, hhID, c.ID, admin, UpdateDailyChoreInput{Status: status})
		require.NoError(t, err)
	}

	var seen []model.PointsEvent
	query := PointsEventsQuery{Limit: 2}
	pages := 0
	for {
		page, err := f.svc.Points.GetUserPointsEvents(ctx, admin, query)
		require.NoError(t, err)
		pages++
		seen = append(seen, page.Events...)
		if !page.HasMore {
			assert.Empty(t, page.NextCursor)
			break
		}
		require.NotEmpty(t, page.NextCursor)
		query.Cursor = page.NextCursor
	}
	assert.Equal(t, 3, pages)
	require.Len(t, seen, 5)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i-1].ID, seen[i].ID, "descending by id")
	}
	assert.Equal(t, model.EventAdd, seen[0].EventType)

	adds := model.EventAdd
	page, err := f.svc.Points.GetUserPointsEvents(ctx, admin, PointsEventsQuery{EventType: &adds})
	require.NoError(t, err)
	assert.Len(t, page.Events, 3)
	assert.False(t, page.HasMore)
}

func TestGetUserPointsEventsDateFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hhID, admin := f.household(t)
	f.complete(t, hhID, washDishesID, "2024-01-15", admin)

	// Events are stamped with the wall clock.
	today := time.Now().UTC().Format(model.DateLayout)

	page, err := f.svc.Points.GetUserPointsEvents(ctx, admin, PointsEventsQuery{FromDate: today, ToDate: today})
	require.NoError(t, err)
	assert.Len(t, page.Events, 1)

	page, err = f.svc.Points.GetUserPointsEvents(ctx, admin, PointsEventsQuery{ToDate: "2000-01-01"})
	require.NoError(t, err)
	assert.Empty(t, page.Events)
	assert.NotNil(t, page.Events)
}

func TestGetUserPointsEventsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.NewString()
	bogus := model.PointsEventType("bonus")

	tests := []struct {
		name  string
		query PointsEventsQuery
		field string
	}{
		{"limit too large", PointsEventsQuery{Limit: 101}, "limit"},
		{"negative limit", PointsEventsQuery{Limit: -1}, "limit"},
		{"event type", PointsEventsQuery{EventType: &bogus}, "event_type"},
		{"tampered cursor", PointsEventsQuery{Cursor: "not-a-cursor"}, "cursor"},
		{"from date", PointsEventsQuery{FromDate: "yesterday"}, "from_date"},
		{"to date", PointsEventsQuery{ToDate: "2024-13-01"}, "to_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Points.GetUserPointsEvents(ctx, user, tt.query)
			requireCode(t, err, apperr.ValidationFailed)
			var e *apperr.Error
			require.ErrorAs(t, err, &e)
			require.Len(t, e.Details, 1)
			assert.Equal(t, tt.field, e.Details[0].Field)
		})
	}
}

func TestProfileTotalIsDerived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hhID, admin := f.household(t)
	f.complete(t, hhID, washDishesID, "2024-01-15", admin)

	// A stale cache must not leak into the response.
	require.NoError(t, f.db.Profiles.SetTotalPoints(ctx, admin, 999))

	prof, err := f.svc.Points.GetProfile(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 10, prof.TotalPoints)
	assert.Equal(t, "Admin", prof.Name)

	updated, err := f.svc.Points.UpdateProfile(ctx, admin, UpdateProfileInput{
		Name:      ptr(" Arthur "),
		AvatarURL: ptr("https://example.com/a.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Arthur", updated.Name)
	require.NotNil(t, updated.AvatarURL)
	assert.Equal(t, 10, updated.TotalPoints)

	_, err = f.svc.Points.UpdateProfile(ctx, admin, UpdateProfileInput{AvatarURL: ptr("not a url")})
	requireCode(t, err, apperr.ValidationFailed)

	_, err = f.svc.Points.GetProfile(ctx, uuid.NewString())
	requireCode(t, err, apperr.NotFound)
}
