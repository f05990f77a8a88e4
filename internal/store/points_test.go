package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/homecrew/internal/model"
)

func TestPointsAggregates(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	h := createHousehold(t, s, "Home")
	item := createCatalogItem(t, s, h.ID, "Dishes", 10)
	done := model.StatusDone

	total, err := s.Points.TotalForUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	rng, err := s.Points.DateRangeForUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if rng.FirstDate != nil || rng.LastDate != nil {
		t.Errorf("range = %+v, want both nil", rng)
	}

	a := createDailyChore(t, s, h.ID, item.ID, "2024-01-15", model.TimeMorning, strPtr("user-a"), 10)
	b := createDailyChore(t, s, h.ID, item.ID, "2024-01-17", model.TimeMorning, strPtr("user-a"), 20)
	createDailyChore(t, s, h.ID, item.ID, "2024-01-16", model.TimeMorning, strPtr("user-a"), 40) // todo
	c := createDailyChore(t, s, h.ID, item.ID, "2024-01-17", model.TimeEvening, strPtr("user-a"), 5)
	for _, id := range []string{a.ID, b.ID, c.ID} {
		if _, err := s.Chores.Update(ctx, h.ID, id, DailyChoreUpdate{Status: &done}); err != nil {
			t.Fatalf("mark done: %v", err)
		}
	}

	total, _ = s.Points.TotalForUser(ctx, "user-a")
	if total != 35 {
		t.Errorf("total = %d, want 35", total)
	}

	rng, _ = s.Points.DateRangeForUser(ctx, "user-a")
	if rng.FirstDate == nil || *rng.FirstDate != "2024-01-15" {
		t.Errorf("first = %v, want 2024-01-15", rng.FirstDate)
	}
	if rng.LastDate == nil || *rng.LastDate != "2024-01-17" {
		t.Errorf("last = %v, want 2024-01-17", rng.LastDate)
	}

	daily, err := s.Points.DailyTotalsForUser(ctx, "user-a", "2024-01-15", "2024-01-17")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if daily["2024-01-15"] != 10 || daily["2024-01-17"] != 25 {
		t.Errorf("daily = %v", daily)
	}
	if _, ok := daily["2024-01-16"]; ok {
		t.Error("day with only todo chores should be absent")
	}

	if err := s.Chores.SoftDelete(ctx, h.ID, b.ID, time.Now()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	total, _ = s.Points.TotalForUser(ctx, "user-a")
	if total != 15 {
		t.Errorf("total after delete = %d, want 15", total)
	}
}

func TestPointsEventsPaging(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Points.AppendEvent(ctx, "user-a", 10, model.EventAdd, nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := s.Points.AppendEvent(ctx, "user-a", 10, model.EventSubtract, nil); err != nil {
		t.Fatalf("append subtract: %v", err)
	}
	if _, err := s.Points.AppendEvent(ctx, "user-b", 5, model.EventAdd, nil); err != nil {
		t.Fatalf("append other user: %v", err)
	}

	page, err := s.Points.ListEvents(ctx, model.PointsEventFilter{UserID: "user-a", Limit: 4})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 4 {
		t.Fatalf("expected 4 events, got %d", len(page))
	}
	for i := 1; i < len(page); i++ {
		if page[i].ID >= page[i-1].ID {
			t.Errorf("events not in descending id order: %d then %d", page[i-1].ID, page[i].ID)
		}
	}

	rest, _ := s.Points.ListEvents(ctx, model.PointsEventFilter{UserID: "user-a", Limit: 10, BeforeID: page[3].ID})
	if len(rest) != 2 {
		t.Errorf("expected 2 remaining events, got %d", len(rest))
	}

	sub := model.EventSubtract
	subs, _ := s.Points.ListEvents(ctx, model.PointsEventFilter{UserID: "user-a", Limit: 10, EventType: &sub})
	if len(subs) != 1 {
		t.Errorf("expected 1 subtract event, got %d", len(subs))
	}

	future := time.Now().Add(time.Hour)
	none, _ := s.Points.ListEvents(ctx, model.PointsEventFilter{UserID: "user-a", Limit: 10, From: &future})
	if len(none) != 0 {
		t.Errorf("expected no events after %v, got %d", future, len(none))
	}
}
