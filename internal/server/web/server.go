package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskboard/internal/logging"
	"github.com/dmitrijs2005/taskboard/internal/server/auth"
)

// Server is the HTTP front of the auth service.
type Server struct {
	address             string
	logger              logging.Logger
	sessions            SessionManager
	principals          PrincipalStore
	issuer              *auth.TokenIssuer
	revoked             RevocationChecker
	refreshCookieMaxAge int
}

func NewServer(address string, logger logging.Logger, sessions SessionManager,
	principals PrincipalStore, issuer *auth.TokenIssuer, revoked RevocationChecker,
	refreshTokenValidity time.Duration) *Server {
	return &Server{
		address:             address,
		logger:              logger,
		sessions:            sessions,
		principals:          principals,
		issuer:              issuer,
		revoked:             revoked,
		refreshCookieMaxAge: int(refreshTokenValidity.Seconds()),
	}
}

// Handler assembles the route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("PUT /auth/change-password", s.handleChangePassword)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	deps := GatewayDeps{
		Issuer:     s.issuer,
		Principals: s.principals,
		Revoked:    s.revoked,
		Logger:     s.logger,
	}
	return RequestLogging(s.logger, Authenticate(deps, mux))
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "starting http server", "address", s.address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
