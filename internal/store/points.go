package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/homecrew/internal/model"
)

// PointsStore reads points aggregates straight from daily_chores and keeps
// the points_events audit feed.
type PointsStore struct {
	db DBTX
}

func NewPointsStore(db DBTX) *PointsStore {
	return &PointsStore{db: db}
}

// earnedWhere is the filter every points aggregate applies.
const earnedWhere = `assignee_id = ? AND status = 'done' AND deleted_at IS NULL`

func (s *PointsStore) TotalForUser(ctx context.Context, userID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points), 0) FROM daily_chores WHERE `+earnedWhere,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return total, nil
}

func (s *PointsStore) DateRangeForUser(ctx context.Context, userID string) (model.PointsDateRange, error) {
	var first, last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(date), MAX(date) FROM daily_chores WHERE `+earnedWhere,
		userID,
	).Scan(&first, &last)
	if err != nil {
		return model.PointsDateRange{}, fmt.Errorf("points date range: %w", err)
	}
	return model.PointsDateRange{FirstDate: stringPtr(first), LastDate: stringPtr(last)}, nil
}

// DailyTotalsForUser sums earned points per date for dates in [from, to].
// Dates without points are absent from the map.
func (s *PointsStore) DailyTotalsForUser(ctx context.Context, userID, from, to string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, SUM(points) FROM daily_chores
		 WHERE `+earnedWhere+` AND date >= ? AND date <= ?
		 GROUP BY date`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("daily points: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var date string
		var points int
		if err := rows.Scan(&date, &points); err != nil {
			return nil, fmt.Errorf("scan daily points: %w", err)
		}
		totals[date] = points
	}
	return totals, rows.Err()
}

func scanPointsEvent(s scanner) (*model.PointsEvent, error) {
	var e model.PointsEvent
	var choreID sql.NullString
	err := s.Scan(&e.ID, &e.UserID, &e.Points, &e.EventType, &choreID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.DailyChoreID = stringPtr(choreID)
	return &e, nil
}

const pointsEventCols = `id, user_id, points, event_type, daily_chore_id, created_at`

func (s *PointsStore) AppendEvent(ctx context.Context, userID string, points int, eventType model.PointsEventType, dailyChoreID *string) (*model.PointsEvent, error) {
	ts := now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO points_events (user_id, points, event_type, daily_chore_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, points, eventType, nullString(dailyChoreID), ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert points event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.PointsEvent{
		ID:           id,
		UserID:       userID,
		Points:       points,
		EventType:    eventType,
		DailyChoreID: dailyChoreID,
		CreatedAt:    ts,
	}, nil
}

// ListEvents returns up to f.Limit events for f.UserID, newest id first,
// strictly below f.BeforeID when it is set.
func (s *PointsStore) ListEvents(ctx context.Context, f model.PointsEventFilter) ([]model.PointsEvent, error) {
	where := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.BeforeID > 0 {
		where = append(where, "id < ?")
		args = append(args, f.BeforeID)
	}
	if f.EventType != nil {
		where = append(where, "event_type = ?")
		args = append(args, *f.EventType)
	}
	if f.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "created_at < ?")
		args = append(args, f.To.UTC())
	}
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pointsEventCols+` FROM points_events WHERE `+strings.Join(where, " AND ")+
			` ORDER BY id DESC LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list points events: %w", err)
	}
	defer rows.Close()

	var events []model.PointsEvent
	for rows.Next() {
		e, err := scanPointsEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan points event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
