package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/authkit/migrations"
	authmod "github.com/dmitrymomot/authkit/modules/auth"
	"github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/auth/postgres"
	"github.com/dmitrymomot/authkit/pkg/config"
	"github.com/dmitrymomot/authkit/pkg/cookie"
	"github.com/dmitrymomot/authkit/pkg/email"
	"github.com/dmitrymomot/authkit/pkg/httpserver"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/pg"
	"github.com/dmitrymomot/authkit/pkg/redis"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/pkg/token"
	"github.com/dmitrymomot/authkit/pkg/token/redisstore"
)

type appConfig struct {
	AppURL    string        `env:"APP_URL" envDefault:"http://localhost:8080"`
	LogFormat logger.Format `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel  slog.Level    `env:"LOG_LEVEL" envDefault:"info"`

	HTTP   httpserver.Config
	PG     pg.Config
	Redis  redis.Config
	Cookie cookie.Config
	Email  email.Config
	Google auth.GoogleConfig
	Github auth.GithubConfig
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithFormat(cfg.LogFormat),
		logger.WithLevel(cfg.LogLevel),
		logger.WithService("authkit"),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("service stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, migrations.FS, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	storage := postgres.NewStorage(pool)
	tokens := token.NewService(redisstore.New(redisClient), token.WithLogger(log))

	var sender email.EmailSender
	if cfg.Email.PostmarkServerToken != "" {
		sender, err = email.NewPostmarkClient(cfg.Email)
		if err != nil {
			return err
		}
	} else {
		log.Warn("postmark is not configured, writing outbound email to ./tmp/emails")
		sender = email.NewDevSender("./tmp/emails")
	}
	mailer := auth.NewMailer(sender, cfg.AppURL)

	verification := auth.NewVerificationService(storage, tokens, mailer,
		auth.WithVerificationLogger(log))
	twoFactor := auth.NewTwoFactorService(tokens, mailer,
		auth.WithTwoFactorLogger(log))
	registration := auth.NewRegistrationService(storage, verification,
		auth.WithRegistrationLogger(log))
	login := auth.NewLoginService(storage, auth.NewBcryptVerifier(storage), verification, twoFactor,
		auth.WithLoginLogger(log))
	recovery := auth.NewRecoveryService(storage, tokens, mailer,
		auth.WithRecoveryLogger(log))
	profile := auth.NewProfileService(storage)

	oauthOpts := []auth.OAuthOption{auth.WithOAuthLogger(log)}
	if cfg.Google.Enabled() {
		oauthOpts = append(oauthOpts, auth.WithProvider(auth.NewGoogleProvider(cfg.Google)))
	}
	if cfg.Github.Enabled() {
		oauthOpts = append(oauthOpts, auth.WithProvider(auth.NewGithubProvider(cfg.Github)))
	}
	oauth := auth.NewOAuthService(storage, storage, oauthOpts...)

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return err
	}
	sessions := session.NewManager(cookies)

	module := authmod.NewModule(registration, verification, login, recovery, oauth, profile, sessions, cookies,
		authmod.WithLogger(log))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(sessions.Middleware())
	r.Mount("/auth", module.Router())
	r.Get("/healthz", healthHandler(pg.Healthcheck(pool), redis.Healthcheck(redisClient)))

	return httpserver.New(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, r)
}
