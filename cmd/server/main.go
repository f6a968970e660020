package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/minicrm/backend/internal/config"
	"github.com/minicrm/backend/internal/handler"
	"github.com/minicrm/backend/internal/logging"
	"github.com/minicrm/backend/internal/notify"
	"github.com/minicrm/backend/internal/policy"
	"github.com/minicrm/backend/internal/repository"
	"github.com/minicrm/backend/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info")
		logging.Fatal("invalid configuration", "error", err)
	}
	logging.Setup(cfg.LogLevel)

	ctx := context.Background()
	store, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("failed to open database", "error", err)
	}
	defer store.Close()
	slog.Info("database ready", "driver", store.Driver)

	sender, err := notify.New(notify.Config{
		Driver: cfg.Mail.Driver,
		From:   cfg.Mail.From,
		SMTP: notify.SMTPConfig{
			Addr:     cfg.Mail.SMTPAddr,
			Username: cfg.Mail.SMTPUsername,
			Password: cfg.Mail.SMTPPassword,
			Timeout:  cfg.Mail.SMTPTimeout,
		},
		ResendAPIKey: cfg.Mail.ResendAPIKey,
	})
	if err != nil {
		logging.Fatal("failed to configure mail", "error", err)
	}

	authService := service.NewAuthService(store.Users)
	sessionService := service.NewSessionService(store.Sessions, cfg.SessionTTL)
	contactService := service.NewContactService(store.Contacts)
	messageService := service.NewEmailMessageService(store.Contacts, store.Messages, sender)
	adminUserService := service.NewAdminUserService(store.Users, policy.UserListingGate{
		Development: cfg.IsDevelopment(),
		AllowAnyEnv: cfg.Admin.ListingAnyEnv,
	})

	if cfg.Admin.Email != "" {
		u, err := adminUserService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			logging.Fatal("failed to seed admin", "email", cfg.Admin.Email, "error", err)
		}
		slog.Info("admin account ready", "user_id", u.ID, "email", u.Email)
	}

	errs := handler.Errors{MaskForbidden: cfg.NotFoundMasksForbidden}
	routes := handler.Routes{
		Base: handler.New(store, cfg.FrontendURL),
		Auth: handler.NewAuthHandler(authService, sessionService, handler.AuthConfig{
			GoogleClientID:     cfg.OAuth.GoogleClientID,
			GoogleClientSecret: cfg.OAuth.GoogleClientSecret,
			GitHubClientID:     cfg.OAuth.GitHubClientID,
			GitHubClientSecret: cfg.OAuth.GitHubClientSecret,
			BackendURL:         cfg.BackendURL,
			FrontendURL:        cfg.FrontendURL,
			SecureCookies:      cfg.SecureCookies(),
			Errors:             errs,
		}),
		Providers: handler.NewProvidersHandler(handler.ProvidersConfig{
			GoogleClientID: cfg.OAuth.GoogleClientID,
			GitHubClientID: cfg.OAuth.GitHubClientID,
		}),
		Me:                handler.NewMeHandler(store.Users, errs),
		Contacts:          handler.NewContactHandler(contactService, errs),
		Messages:          handler.NewMessageHandler(messageService, errs),
		Admin:             handler.NewAdminUserHandler(adminUserService, errs),
		Sessions:          sessionService,
		Principals:        authService,
		LoginLimiter:      handler.NewIPRateLimiter(cfg.LoginRatePerSecond, cfg.LoginRateBurst, cfg.TrustedProxies),
		PrometheusEnabled: cfg.PrometheusEnabled,
	}
	if cfg.CSRFAuthKey != "" {
		routes.CSRF = &handler.CSRFConfig{
			AuthKey:        []byte(cfg.CSRFAuthKey),
			Secure:         cfg.SecureCookies(),
			TrustedOrigins: append([]string{cfg.FrontendURL}, cfg.TrustedOrigins...),
		}
	} else {
		slog.Warn("CSRF protection disabled: CSRF_AUTH_KEY not set")
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.NewRouter(routes),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
