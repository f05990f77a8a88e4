package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/homecrew/internal/auth"
	"github.com/dukerupert/homecrew/internal/handler"
	"github.com/dukerupert/homecrew/internal/middleware"
	"github.com/dukerupert/homecrew/internal/service"
	"github.com/dukerupert/homecrew/internal/store"
)

const apiPrefix = "/api/v1"

type Config struct {
	JWTSecret     string
	CursorSecret  string
	PINTTL        time.Duration
	JoinRateLimit int
}

type Server struct {
	db          *sql.DB
	tokens      *auth.Tokens
	directory   *service.Directory
	householdH  *handler.HouseholdHandler
	catalogH    *handler.CatalogHandler
	dailyChoreH *handler.DailyChoreHandler
	pointsH     *handler.PointsHandler
	joinLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	svc := service.New(store.New(db), service.Config{
		PINTTL:       cfg.PINTTL,
		CursorSecret: cfg.CursorSecret,
	}, logger)

	return &Server{
		db:          db,
		tokens:      auth.NewTokens(cfg.JWTSecret),
		directory:   svc.Directory,
		householdH:  handler.NewHouseholdHandler(svc.Directory, logger),
		catalogH:    handler.NewCatalogHandler(svc.Catalog, logger),
		dailyChoreH: handler.NewDailyChoreHandler(svc.Ledger, logger),
		pointsH:     handler.NewPointsHandler(svc.Points, logger),
		joinLimiter: middleware.NewRateLimiter(cfg.JoinRateLimit, time.Minute),
		logger:      logger,
	}
}

// RateLimiter returns the join rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.joinLimiter
}

func (s *Server) Router() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /health", s.healthHandler)

	// Authenticated but not yet (necessarily) in a household.
	requireAuth := middleware.RequireAuth(s.tokens, s.logger.With("component", "auth"))
	userMux := http.NewServeMux()
	s.registerUserRoutes(userMux)

	// Authenticated household members.
	requireMember := middleware.RequireMember(s.directory, s.logger.With("component", "auth"))
	memberMux := http.NewServeMux()
	s.registerMemberRoutes(memberMux)

	api.Handle("/households", requireAuth(userMux))
	api.Handle("/households/join", requireAuth(userMux))
	api.Handle("/points/", requireAuth(userMux))
	api.Handle("/profiles/", requireAuth(userMux))
	api.Handle("/", requireAuth(requireMember(memberMux)))

	outer := http.NewServeMux()
	outer.Handle(apiPrefix+"/", http.StripPrefix(apiPrefix, api))

	var h http.Handler = outer
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.RequestID(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}` + "\n"))
		return
	}
	w.Write([]byte(`{"status":"ok"}` + "\n"))
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.joinLimiter, middleware.RealIP)(h)
}

func (s *Server) registerUserRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /households", s.householdH.Register)
	mux.Handle("POST /households/join", s.rateLimitedHandler(s.householdH.Join))

	mux.HandleFunc("GET /points/total", s.pointsH.Total)
	mux.HandleFunc("GET /points/range", s.pointsH.Range)
	mux.HandleFunc("GET /points/daily", s.pointsH.Daily)
	mux.HandleFunc("GET /points/events", s.pointsH.Events)

	mux.HandleFunc("GET /profiles/me", s.pointsH.Profile)
	mux.HandleFunc("PATCH /profiles/me", s.pointsH.UpdateProfile)
}

func (s *Server) registerMemberRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /households/current", s.householdH.Current)
	mux.HandleFunc("PATCH /households/current", s.householdH.Update)
	mux.Handle("POST /households/current/pin", middleware.RequireAdmin(http.HandlerFunc(s.householdH.RotatePIN)))

	mux.HandleFunc("GET /members", s.householdH.ListMembers)
	mux.HandleFunc("PATCH /members/{id}", s.householdH.UpdateMember)
	mux.HandleFunc("DELETE /members/{id}", s.householdH.RemoveMember)

	mux.HandleFunc("GET /catalog", s.catalogH.List)
	mux.HandleFunc("POST /catalog", s.catalogH.Create)
	mux.HandleFunc("PATCH /catalog/{id}", s.catalogH.Update)
	mux.HandleFunc("DELETE /catalog/{id}", s.catalogH.Delete)

	mux.HandleFunc("GET /daily-chores", s.dailyChoreH.List)
	mux.HandleFunc("POST /daily-chores", s.dailyChoreH.Create)
	mux.HandleFunc("DELETE /daily-chores", s.dailyChoreH.DeleteByDate)
	mux.HandleFunc("PATCH /daily-chores/{id}", s.dailyChoreH.Update)
	mux.HandleFunc("DELETE /daily-chores/{id}", s.dailyChoreH.Delete)
}
