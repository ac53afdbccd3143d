package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/homematch/homematch/internal/backup"
	"github.com/homematch/homematch/internal/couples"
	"github.com/homematch/homematch/internal/email"
	"github.com/homematch/homematch/internal/handler"
	"github.com/homematch/homematch/internal/middleware"
	"github.com/homematch/homematch/internal/push"
	"github.com/homematch/homematch/internal/store"
	ws "github.com/homematch/homematch/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	householdH     *handler.HouseholdHandler
	propertyH      *handler.PropertyHandler
	interactionH   *handler.InteractionHandler
	couplesH       *handler.CouplesHandler
	pushH          *handler.PushHandler
	sessionStore   *store.SessionStore
	householdStore *store.HouseholdStore
	inviteStore    *store.InviteStore
	rateLimiter    *middleware.RateLimiter
	backupManager  *backup.Manager
	couplesSvc     *couples.Service
	logger         *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, backupCfg backup.Config, pushCfg push.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	inviteStore := store.NewInviteStore(db)
	propertyStore := store.NewPropertyStore(db)
	neighborhoodStore := store.NewNeighborhoodStore(db)
	interactionStore := store.NewInteractionStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	var pushSvc *push.Service
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
	}

	couplesSvc := couples.NewService(
		interactionStore, householdStore, pushStore, pushSvc, hub,
		logger.With("component", "couples"),
	)

	backupLogger := logger.With("component", "backup")
	backupMgr := backup.NewManager(backupCfg, db, backupStore, func(s backup.Status) {
		backupLogger.Info("backup status", "state", s.State, "in_progress", s.InProgress)
		extra := map[string]any{"state": string(s.State)}
		if s.Error != "" {
			extra["error"] = s.Error
		}
		hub.BroadcastAll(ws.NewMessage("backup", "status", 0, extra))
	}, backupLogger)

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, householdStore, sessionStore, emailClient, logger.With("component", "auth")),
		householdH:     handler.NewHouseholdHandler(householdStore, userStore, inviteStore, sessionStore, couplesSvc, emailClient, logger.With("component", "household")),
		propertyH:      handler.NewPropertyHandler(propertyStore, neighborhoodStore, interactionStore, logger.With("component", "property")),
		interactionH:   handler.NewInteractionHandler(interactionStore, propertyStore, couplesSvc, hub, logger.With("component", "interaction")),
		couplesH:       handler.NewCouplesHandler(couplesSvc, interactionStore, logger.With("component", "couples_handler")),
		pushH:          handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		sessionStore:   sessionStore,
		householdStore: householdStore,
		inviteStore:    inviteStore,
		rateLimiter:    middleware.NewRateLimiter(),
		backupManager:  backupMgr,
		couplesSvc:     couplesSvc,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// InviteStore returns the invite store for cleanup tasks.
func (s *Server) InviteStore() *store.InviteStore {
	return s.inviteStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/invites/accept", s.rateLimitedHandler(s.householdH.Accept))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.householdStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session + account
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)
	mux.HandleFunc("GET /api/households", s.authH.Households)
	mux.HandleFunc("POST /api/households/switch", s.authH.SwitchHousehold)

	// Household membership
	mux.HandleFunc("GET /api/households/members", s.householdH.Members)
	mux.HandleFunc("POST /api/invites", s.householdH.Invite)
	mux.HandleFunc("DELETE /api/households/members/{user_id}", s.householdH.RemoveMember)

	// Property browsing
	mux.HandleFunc("GET /api/properties", s.propertyH.List)
	mux.HandleFunc("GET /api/properties/{id}", s.propertyH.Get)
	mux.HandleFunc("GET /api/properties/{id}/story", s.propertyH.Story)
	mux.HandleFunc("GET /api/neighborhoods", s.propertyH.Neighborhoods)

	// Swipes
	mux.HandleFunc("POST /api/interactions", s.interactionH.Create)
	mux.HandleFunc("GET /api/interactions", s.interactionH.List)
	mux.HandleFunc("DELETE /api/interactions/{property_id}", s.interactionH.Delete)

	// Couples
	mux.HandleFunc("GET /api/couples/mutual-likes", s.couplesH.MutualLikes)
	mux.HandleFunc("GET /api/couples/summary", s.couplesH.Summary)
	mux.HandleFunc("POST /api/couples/notify", s.couplesH.Notify)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.Subscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/preferences", s.pushH.Preferences)
	mux.HandleFunc("PUT /api/push/preferences", s.pushH.UpdatePreferences)
	mux.HandleFunc("POST /api/push/test", s.pushH.Test)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
