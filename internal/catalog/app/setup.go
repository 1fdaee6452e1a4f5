// Package app contains the application setup for the catalog service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/fleximart/internal/catalog/config"
	"github.com/abgdnv/fleximart/internal/catalog/service"
	"github.com/abgdnv/fleximart/internal/catalog/store"
	"github.com/abgdnv/fleximart/internal/catalog/transport/rest"
	"github.com/abgdnv/fleximart/pkg/messaging"
	"github.com/abgdnv/fleximart/pkg/server"
	"github.com/abgdnv/fleximart/pkg/telemetry"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

const httpOperation = "catalog-http"

type Dependencies struct {
	CatalogService service.CatalogService
	Logger         *slog.Logger
	Tracing        bool
	// MetricsHandler is mounted on MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string
}

// SetupDependencies builds the catalog service over collection of db.
// publisher may be nil, in which case no events are emitted.
func SetupDependencies(db *mongo.Database, collection string, publisher messaging.Publisher, logger *slog.Logger, tracing bool) *Dependencies {
	var opts []service.Option
	if publisher != nil {
		opts = append(opts, service.WithPublisher(publisher))
	}
	cService := service.NewService(store.NewMongoStore(db, collection), opts...)

	return &Dependencies{
		CatalogService: cService,
		Logger:         logger,
		Tracing:        tracing,
	}
}

// SetupHttpHandler builds the router with middleware and catalog routes.
// Used by tests to exercise the full HTTP stack without a listener.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	if deps.Tracing {
		return telemetry.WrapHandler(mux, httpOperation)
	}
	return mux
}

// wireRoutes sets up the HTTP routes for the catalog service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	catalogHandler := rest.NewHandler(deps.CatalogService, deps.Logger)
	catalogHandler.RegisterRoutes(mux)
	if deps.MetricsHandler != nil {
		mux.Method(http.MethodGet, deps.MetricsPath, deps.MetricsHandler)
	}
}

// SetupHttpServer creates and configures an HTTP server for the catalog service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	handler := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, handler)
}
