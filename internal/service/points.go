package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/cursor"
	"github.com/dukerupert/homecrew/internal/model"
	"github.com/dukerupert/homecrew/internal/store"
)

// Points answers points questions for a user. Every total is derived from
// the ledger; the cached profile column is never read.
type Points struct {
	db      *store.DB
	now     func() time.Time
	cursors *cursor.Codec
	logger  *slog.Logger
}

func (p *Points) CalculateTotalPoints(ctx context.Context, userID string) (int, error) {
	return p.db.Points.TotalForUser(ctx, userID)
}

func (p *Points) GetUserPointsDateRange(ctx context.Context, userID string) (model.PointsDateRange, error) {
	return p.db.Points.DateRangeForUser(ctx, userID)
}

// GetUserDailyPointsSummary returns one entry per day for the last days
// days ending today, oldest first, zero-filled.
func (p *Points) GetUserDailyPointsSummary(ctx context.Context, userID string, days int) ([]model.DailyPoints, error) {
	if days == 0 {
		days = DefaultSummaryDays
	}
	if days < 1 || days > MaxSummaryDays {
		return nil, apperr.Field("days", "must be between 1 and "+strconv.Itoa(MaxSummaryDays))
	}

	loc, err := p.userLocation(ctx, userID)
	if err != nil {
		return nil, err
	}
	y, m, d := p.now().In(loc).Date()
	// Noon UTC keeps AddDate on calendar days regardless of DST.
	today := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(days - 1))

	from := start.Format(model.DateLayout)
	to := today.Format(model.DateLayout)
	totals, err := p.db.Points.DailyTotalsForUser(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	summary := make([]model.DailyPoints, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(model.DateLayout)
		summary = append(summary, model.DailyPoints{Date: date, Points: totals[date]})
	}
	return summary, nil
}

func (p *Points) userLocation(ctx context.Context, userID string) (*time.Location, error) {
	m, err := p.db.Households.GetMemberByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return time.UTC, nil
	}
	h, err := p.db.Households.GetByID(ctx, m.HouseholdID)
	if err != nil {
		return nil, err
	}
	return h.Location(), nil
}

type PointsEventsQuery struct {
	Cursor    string
	Limit     int
	EventType *model.PointsEventType
	FromDate  string
	ToDate    string
}

// GetUserPointsEvents pages through the audit feed, newest first.
func (p *Points) GetUserPointsEvents(ctx context.Context, userID string, q PointsEventsQuery) (*model.PointsEventPage, error) {
	var details []apperr.FieldError
	if q.Limit == 0 {
		q.Limit = DefaultEventLimit
	}
	if q.Limit < 1 || q.Limit > MaxEventLimit {
		details = append(details, apperr.FieldError{Field: "limit", Message: "must be between 1 and " + strconv.Itoa(MaxEventLimit)})
	}
	if q.EventType != nil && !q.EventType.Valid() {
		details = append(details, apperr.FieldError{Field: "event_type", Message: "must be one of: add, subtract"})
	}

	f := model.PointsEventFilter{UserID: userID, Limit: q.Limit + 1, EventType: q.EventType}
	if q.Cursor != "" {
		id, err := p.cursors.Decode(q.Cursor)
		if err != nil {
			p.logger.Debug("rejected points cursor", "user_id", userID, "error", err)
			details = append(details, apperr.FieldError{Field: "cursor", Message: "is invalid"})
		}
		f.BeforeID = id
	}
	if q.FromDate != "" {
		from, err := time.Parse(model.DateLayout, q.FromDate)
		if err != nil {
			details = append(details, apperr.FieldError{Field: "from_date", Message: "must be a date in YYYY-MM-DD format"})
		} else {
			f.From = &from
		}
	}
	if q.ToDate != "" {
		to, err := time.Parse(model.DateLayout, q.ToDate)
		if err != nil {
			details = append(details, apperr.FieldError{Field: "to_date", Message: "must be a date in YYYY-MM-DD format"})
		} else {
			// toDate is inclusive.
			end := to.AddDate(0, 0, 1)
			f.To = &end
		}
	}
	if len(details) > 0 {
		return nil, apperr.Validation(details...)
	}

	events, err := p.db.Points.ListEvents(ctx, f)
	if err != nil {
		return nil, err
	}

	page := &model.PointsEventPage{Events: events}
	if len(events) > q.Limit {
		page.Events = events[:q.Limit]
		page.HasMore = true
		page.NextCursor = p.cursors.Encode(page.Events[q.Limit-1].ID)
	}
	if page.Events == nil {
		page.Events = []model.PointsEvent{}
	}
	return page, nil
}

// GetProfile returns the user's profile with a freshly derived total.
func (p *Points) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	prof, err := p.db.Profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return nil, apperr.New(apperr.NotFound)
	}
	total, err := p.db.Points.TotalForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	prof.TotalPoints = total
	return prof, nil
}

type UpdateProfileInput struct {
	Name      *string `json:"name" validate:"omitnil,min=1,max=80"`
	AvatarURL *string `json:"avatar_url" validate:"omitnil,url"`
}

func (p *Points) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*model.Profile, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	prof, err := p.db.Profiles.Update(ctx, userID, in.Name, in.AvatarURL)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return nil, apperr.New(apperr.NotFound)
	}
	total, err := p.db.Points.TotalForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	prof.TotalPoints = total
	return prof, nil
}
