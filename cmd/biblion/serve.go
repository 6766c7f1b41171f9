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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/biblion/client"
	"github.com/totegamma/biblion/internal/infra/database"
	"github.com/totegamma/biblion/internal/infra/gateway"
	"github.com/totegamma/biblion/internal/infra/repository"
	"github.com/totegamma/biblion/internal/present/rest"
	authmw "github.com/totegamma/biblion/internal/present/rest/middleware"
	"github.com/totegamma/biblion/internal/service"
	"github.com/totegamma/biblion/internal/usecase"
	"github.com/totegamma/biblion/policy"
)

func newServeCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if conf.Server.EnableTrace {
				shutdown, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint, "biblion", conf.NodeInfo.FQDN)
				if err != nil {
					return err
				}
				defer shutdown(context.Background())
			}

			db, err := database.NewPostgres(conf.Server.PostgresDsn)
			if err != nil {
				return err
			}
			err = database.MigratePostgres(db)
			if err != nil {
				return err
			}

			rdb, err := database.NewRedis(ctx, conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
			if err != nil {
				return err
			}
			defer rdb.Close()

			mc := database.NewMemcached(conf.Server.MemcachedAddr)

			nodeConfig := conf.Domain()

			signalService := service.NewSignalService(rdb)
			cacheService := service.NewCacheService(mc, nodeConfig.FQDN)
			authService := service.NewAuthService(nodeConfig)

			publicationRepo := repository.NewPublicationRepository(db)
			timelineRepo := repository.NewTimelineRepository(db, nodeConfig.FQDN)
			timelineGateway := gateway.NewTimelineGateway(client.New("biblion/" + nodeConfig.FQDN))

			publicationUC := usecase.NewPublicationUsecase(publicationRepo, cacheService, signalService, policy.Publication())
			timelineUC := usecase.NewTimelineUsecase(timelineRepo, timelineGateway)

			collection, err := publicationUC.Init(ctx, nodeConfig)
			if err != nil {
				return err
			}
			slog.Info(
				"collection ready",
				slog.String("name", collection.Name),
				slog.String("admin", collection.Admin),
				slog.String("mintPolicy", string(collection.MintPolicy)),
				slog.String("module", "main"),
			)

			e := echo.New()
			e.HideBanner = true
			e.Use(middleware.Logger())
			e.Use(middleware.Recover())
			e.Use(middleware.CORS())
			if conf.Server.EnableTrace {
				e.Use(otelecho.Middleware("biblion"))
			}

			handler := rest.NewHandler(nodeConfig, publicationUC, timelineUC, signalService)
			handler.RegisterRoutes(e, authmw.NewAuthMiddleware(authService))

			go func() {
				err := e.Start(conf.Server.ListenAddr)
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("server stopped", slog.String("error", err.Error()), slog.String("module", "main"))
					stop()
				}
			}()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}
