package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/auth"
	"github.com/dukerupert/homecrew/internal/database"
	"github.com/dukerupert/homecrew/internal/model"
	"github.com/dukerupert/homecrew/internal/service"
)

const testSecret = "server-test-secret-0123456789"

type testAPI struct {
	t      *testing.T
	router http.Handler
	tokens *auth.Tokens
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := database.Open(database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, Config{
		JWTSecret:     testSecret,
		CursorSecret:  "cursor-secret",
		PINTTL:        time.Hour,
		JoinRateLimit: 3,
	}, logger)
	return &testAPI{t: t, router: srv.Router(), tokens: auth.NewTokens(testSecret)}
}

// user mints a token for a fresh user id.
func (a *testAPI) user() (string, string) {
	a.t.Helper()
	id := uuid.NewString()
	token, err := a.tokens.Mint(id, time.Hour)
	require.NoError(a.t, err)
	return id, token
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Code    apperr.Code         `json:"code"`
	Details []apperr.FieldError `json:"details"`
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code apperr.Code) errorBody {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	e := decode[errorBody](t, rec)
	assert.Equal(t, code, e.Code)
	return e
}

func (a *testAPI) register(token, name string) service.Registration {
	a.t.Helper()
	rec := a.do("POST", "/households", token, map[string]string{"name": name, "profile_name": "Admin"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[service.Registration](a.t, rec)
}

// predefinedID looks up a seeded global catalog item by title.
func (a *testAPI) predefinedID(token, title string) string {
	a.t.Helper()
	rec := a.do("GET", "/catalog?type=predefined", token, nil)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	for _, it := range decode[[]model.CatalogItem](a.t, rec) {
		if it.Title == title {
			return it.ID
		}
	}
	a.t.Fatalf("no predefined catalog item %q", title)
	return ""
}

func (a *testAPI) join(adminToken, token string) service.Registration {
	a.t.Helper()
	rec := a.do("POST", "/households/current/pin", adminToken, nil)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	pin := decode[service.InvitePIN](a.t, rec)

	hh := decode[model.Household](a.t, a.do("GET", "/households/current", adminToken, nil))
	rec = a.do("POST", "/households/join", token, map[string]string{"household_id": hh.ID, "pin": pin.PIN})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[service.Registration](a.t, rec)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do("GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthentication(t *testing.T) {
	api := newTestAPI(t)

	requireError(t, api.do("GET", "/catalog", "", nil), http.StatusUnauthorized, apperr.Unauthenticated)
	requireError(t, api.do("GET", "/points/total", "garbage", nil), http.StatusUnauthorized, apperr.Unauthenticated)

	other, err := auth.NewTokens("some-other-secret-abcdef").Mint(uuid.NewString(), time.Hour)
	require.NoError(t, err)
	requireError(t, api.do("GET", "/catalog", other, nil), http.StatusUnauthorized, apperr.Unauthenticated)

	// Authenticated users outside a household reach user routes only.
	_, token := api.user()
	requireError(t, api.do("GET", "/catalog", token, nil), http.StatusNotFound, apperr.UserNotInHousehold)
	rec := api.do("GET", "/points/total", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_points":0}`, rec.Body.String())
}

func TestChoreLifecycle(t *testing.T) {
	api := newTestAPI(t)
	_, adminToken := api.user()
	api.register(adminToken, "The Burrow")
	memberID, memberToken := api.user()
	api.join(adminToken, memberToken)

	washDishesID := api.predefinedID(memberToken, "Wash dishes")
	rec := api.do("POST", "/daily-chores", memberToken, map[string]any{
		"date":             "2024-01-15",
		"chore_catalog_id": washDishesID,
		"assignee_id":      memberID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	chore := decode[model.DailyChore](t, rec)
	assert.Equal(t, 10, chore.Points)
	assert.Equal(t, model.StatusTodo, chore.Status)

	rec = api.do("PATCH", "/daily-chores/"+chore.ID, memberToken, map[string]string{"status": "done"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do("GET", "/points/total", memberToken, nil)
	assert.JSONEq(t, `{"total_points":10}`, rec.Body.String())

	prof := decode[model.Profile](t, api.do("GET", "/profiles/me", memberToken, nil))
	assert.Equal(t, 10, prof.TotalPoints)

	chores := decode[[]model.DailyChore](t, api.do("GET", "/daily-chores?date=2024-01-15&status=done", adminToken, nil))
	require.Len(t, chores, 1)

	// Only admins clear a whole day.
	requireError(t, api.do("DELETE", "/daily-chores?date=2024-01-15", memberToken, nil), http.StatusForbidden, apperr.NotHouseholdAdmin)
	rec = api.do("DELETE", "/daily-chores?date=2024-01-15", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())

	rec = api.do("GET", "/points/total", memberToken, nil)
	assert.JSONEq(t, `{"total_points":0}`, rec.Body.String())

	page := decode[model.PointsEventPage](t, api.do("GET", "/points/events?limit=1", memberToken, nil))
	require.Len(t, page.Events, 1)
	assert.Equal(t, model.EventSubtract, page.Events[0].EventType)
	assert.True(t, page.HasMore)

	page = decode[model.PointsEventPage](t, api.do("GET", "/points/events?cursor="+page.NextCursor, memberToken, nil))
	require.Len(t, page.Events, 1)
	assert.Equal(t, model.EventAdd, page.Events[0].EventType)
	assert.False(t, page.HasMore)
}

func TestAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	_, adminToken := api.user()
	api.register(adminToken, "Grimmauld")
	_, memberToken := api.user()
	reg := api.join(adminToken, memberToken)

	requireError(t, api.do("POST", "/households/current/pin", memberToken, nil), http.StatusForbidden, apperr.NotHouseholdAdmin)
	requireError(t, api.do("PATCH", "/households/current", memberToken, map[string]string{"name": "Mine"}), http.StatusForbidden, apperr.NotHouseholdAdmin)

	members := decode[[]model.HouseholdMember](t, api.do("GET", "/members", memberToken, nil))
	assert.Len(t, members, 2)

	rec := api.do("PATCH", "/members/"+reg.Member.ID, adminToken, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.RoleAdmin, decode[model.HouseholdMember](t, rec).Role)

	rec = api.do("DELETE", "/members/"+reg.Member.ID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	requireError(t, api.do("GET", "/members", memberToken, nil), http.StatusNotFound, apperr.UserNotInHousehold)
}

func TestCatalogRoutes(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.user()
	api.register(token, "Shell Cottage")

	rec := api.do("POST", "/catalog", token, map[string]any{"title": "Feed owl", "points": 15})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[model.CatalogItem](t, rec)

	requireError(t, api.do("POST", "/catalog", token, map[string]any{"title": "FEED OWL", "points": 5}), http.StatusConflict, apperr.DuplicateTitle)

	custom := decode[[]model.CatalogItem](t, api.do("GET", "/catalog?type=custom", token, nil))
	require.Len(t, custom, 1)
	assert.Equal(t, item.ID, custom[0].ID)

	rec = api.do("PATCH", "/catalog/"+item.ID, token, map[string]any{"points": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 20, decode[model.CatalogItem](t, rec).Points)

	require.Equal(t, http.StatusNoContent, api.do("DELETE", "/catalog/"+item.ID, token, nil).Code)
	requireError(t, api.do("DELETE", "/catalog/"+item.ID, token, nil), http.StatusNotFound, apperr.NotFound)
}

func TestPredefinedCatalogIsSeeded(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.user()
	api.register(token, "Little Whinging")

	items := decode[[]model.CatalogItem](t, api.do("GET", "/catalog?type=predefined", token, nil))
	assert.Len(t, items, 12)
	id := api.predefinedID(token, "Wash dishes")
	assert.NoError(t, uuid.Validate(id))
}

func TestRequestErrors(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.user()
	api.register(token, "Privet Drive")

	e := requireError(t, api.do("PATCH", "/catalog/not-a-uuid", token, map[string]any{}), http.StatusUnprocessableEntity, apperr.ValidationFailed)
	require.Len(t, e.Details, 1)
	assert.Equal(t, "id", e.Details[0].Field)

	req := httptest.NewRequest("POST", "/api/v1/catalog", bytes.NewBufferString(`{"title":`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	requireError(t, rec, http.StatusBadRequest, apperr.BadRequest)

	requireError(t, api.do("GET", "/points/daily?days=abc", token, nil), http.StatusBadRequest, apperr.BadRequest)
	requireError(t, api.do("GET", "/points/daily?days=400", token, nil), http.StatusUnprocessableEntity, apperr.ValidationFailed)

	days := decode[[]model.DailyPoints](t, api.do("GET", "/points/daily?days=3", token, nil))
	assert.Len(t, days, 3)
}

func TestJoinIsRateLimited(t *testing.T) {
	api := newTestAPI(t)
	_, adminToken := api.user()
	reg := api.register(adminToken, "Hogwarts")
	_, token := api.user()

	body := map[string]string{"household_id": reg.Household.ID, "pin": "000000"}
	for i := 0; i < 3; i++ {
		requireError(t, api.do("POST", "/households/join", token, body), http.StatusForbidden, apperr.InvalidPIN)
	}
	rec := api.do("POST", "/households/join", token, body)
	requireError(t, rec, http.StatusTooManyRequests, apperr.TooManyRequests)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
