package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/limbo/habitsync/internal/service"
	"github.com/limbo/habitsync/pkg/datekey"
)

type Server struct {
	mx            *chi.Mux
	userService   service.UserServiceI
	habitsService service.HabitsServiceI
	jwtService    JWTServiceI
	keys          *datekey.Normalizer
	now           func() time.Time
}

type ServicesList struct {
	UserService   service.UserServiceI
	HabitsService service.HabitsServiceI
	JwtService    JWTServiceI
	// Keys parses dates in paths and queries, UTC when nil
	Keys *datekey.Normalizer
	// Now is the clock behind a missing date parameter
	Now func() time.Time
}

func New(servicesOptions *ServicesList) *Server {
	s := &Server{
		mx:            chi.NewMux(),
		userService:   servicesOptions.UserService,
		habitsService: servicesOptions.HabitsService,
		jwtService:    servicesOptions.JwtService,
		keys:          servicesOptions.Keys,
		now:           servicesOptions.Now,
	}
	if s.keys == nil {
		s.keys = datekey.UTC()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mx.Use(middleware.Recoverer)
	s.mx.Use(s.RequestIDMiddleware)
	s.mx.Use(s.SettingUpLoggerMiddleware)

	s.mx.Get("/health", s.Health)
	s.mx.Post("/auth/register", s.Register)
	s.mx.Post("/auth/login", s.Login)

	s.mx.Route("/api/v1", func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		r.Use(s.LoggerExtensionMiddleware)

		r.Get("/snapshot", s.GetSnapshot)
		r.Post("/habits", s.AddHabit)
		r.Delete("/habits/{id}", s.DeleteHabit)
		r.Post("/habits/{id}/toggle", s.ToggleHabit)
		r.Put("/metrics/{date}/mood", s.SetMood)
		r.Put("/metrics/{date}/sleep", s.SetSleep)
		r.Post("/metrics/{date}/sleep/step", s.StepSleep)
		r.Get("/stats/overview", s.GetOverview)
		r.Get("/stats/today", s.GetToday)
		r.Get("/export", s.Export)
		r.Post("/signout", s.SignOut)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mx.ServeHTTP(w, r)
}

// Run serves on address until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.mx,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("api server started", slog.String("address", address))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New("shutting down api server error: " + err.Error())
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
