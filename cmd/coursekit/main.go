// Command coursekit connects to MongoDB, prepares the course and user
// collections and serves health probes until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/coursekit/modules/course"
	"github.com/dmitrymomot/coursekit/modules/user"
	"github.com/dmitrymomot/coursekit/pkg/config"
	"github.com/dmitrymomot/coursekit/pkg/environment"
	"github.com/dmitrymomot/coursekit/pkg/httpserver"
	"github.com/dmitrymomot/coursekit/pkg/logger"
	"github.com/dmitrymomot/coursekit/pkg/mongo"
	"github.com/dmitrymomot/coursekit/pkg/requestid"
)

type appConfig struct {
	Env     string `env:"APP_ENV" envDefault:"production"`
	Service string `env:"APP_SERVICE" envDefault:"coursekit"`
}

func main() {
	var (
		app     appConfig
		dbCfg   mongo.Config
		httpCfg httpserver.Config
	)
	config.MustLoad(&app)
	config.MustLoad(&dbCfg)
	config.MustLoad(&httpCfg)

	env := environment.Parse(app.Env)
	log := logger.New(
		logger.WithEnvironment(env, app.Service),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)
	ctx := environment.WithContext(context.Background(), env)

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	db := mongo.NewManager(dbCfg,
		mongo.WithLogger(log),
		mongo.WithDebug(env.IsDevelopment()),
		mongo.WithBeforeClose(func(ctx context.Context) {
			if err := srv.Shutdown(ctx); err != nil {
				log.ErrorContext(ctx, "failed to stop http server", logger.Error(err))
			}
		}),
	)
	stop := db.ListenForSignals(ctx)
	defer stop()

	serve(ctx, log, env, srv, db)
}

// serve runs the health server, connects and prepares the collections, then
// blocks until the manager's exit path has run.
func serve(ctx context.Context, log *slog.Logger, env environment.Environment, srv *httpserver.Server, db *mongo.Manager) {
	// Probes are served while the first connection is still being retried.
	go func() {
		if err := srv.Run(ctx, routes(log, env, db)); err != nil {
			log.ErrorContext(ctx, "http server failed", logger.Error(err))
			_ = db.HandleTermination(ctx)
		}
	}()

	if err := db.Connect(ctx); err == nil {
		if err := ensureIndexes(ctx, db); err != nil {
			log.ErrorContext(ctx, "failed to prepare collections", logger.Error(err))
		}
	}

	<-db.Done()
}

func ensureIndexes(ctx context.Context, db *mongo.Manager) error {
	database := db.Database()
	if database == nil {
		return mongo.ErrNotConnected
	}
	if err := course.NewStore(database).EnsureIndexes(ctx); err != nil {
		return err
	}
	return user.NewStore(database).EnsureIndexes(ctx)
}

func routes(log *slog.Logger, env environment.Environment, db *mongo.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, environment.Middleware(env))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", httpserver.Liveness)
		r.Get("/ready", httpserver.Readiness(log, mongo.Healthcheck(db)))
		r.Get("/db", httpserver.StatusJSON(db.Status))
	})
	return r
}
