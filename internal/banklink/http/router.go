package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/banklink/internal/banklink/service"
	"github.com/aussiebroadwan/banklink/internal/banklink/store"
	"github.com/aussiebroadwan/banklink/pkg/httpx"
	"github.com/aussiebroadwan/banklink/pkg/slogx"
)

// Router holds shared dependencies for the loopback control API handlers.
// The API is consumed by the local UI process only; it is never exposed
// beyond the loopback interface.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	TokenService   *service.TokenService
	ConnectService *service.ConnectService
	DataService    *service.DataService
	SyncService    *service.SyncService
	Scheduler      *service.Scheduler
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerConnect()
	r.registerData()
	r.registerSync()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerConnect() {
	h := &ConnectHandler{
		Connect: r.ConnectService,
		Tokens:  r.TokenService,
	}

	r.Mux.HandleFunc("POST /v1/connect", h.HandleStart)
	r.Mux.HandleFunc("GET /v1/connect/callback", h.HandleCallback)
	r.Mux.HandleFunc("POST /v1/disconnect", h.HandleDisconnect)
}

func (r *Router) registerData() {
	h := &DataHandler{Data: r.DataService}

	r.Mux.HandleFunc("GET /v1/accounts", h.HandleAccounts)
	r.Mux.HandleFunc("GET /v1/balances", h.HandleBalances)
	r.Mux.HandleFunc("GET /v1/accounts/{id}/transactions", h.HandleTransactions)
	r.Mux.HandleFunc("POST /v1/connection/test", h.HandleTestConnection)
}

func (r *Router) registerSync() {
	h := &SyncHandler{
		Sync:      r.SyncService,
		Scheduler: r.Scheduler,
		Tokens:    r.TokenService,
	}

	r.Mux.HandleFunc("POST /v1/sync", h.HandleSync)
	r.Mux.HandleFunc("POST /v1/lifecycle/foreground", h.HandleForeground)
	r.Mux.HandleFunc("GET /v1/status", h.HandleStatus)
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.HandleFunc("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
