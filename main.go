package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-client/internal/api"
	"chat-client/internal/config"
	"chat-client/internal/db"
	grpcclient "chat-client/internal/grpc"
	"chat-client/internal/handlers"
	"chat-client/internal/logging"
	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/rabbitmq"
	"chat-client/internal/repositories"
	"chat-client/internal/session"
	"chat-client/internal/telemetry"
	"chat-client/internal/ws"
)

const serviceName = "chat-client"

func main() {
	configPath := flag.String("config", os.Getenv("CHAT_CLIENT_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// The logger is not built yet.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		logger.Fatal("failed to set up tracing", zap.Error(err))
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()
	logger.Info("event publisher ready",
		zap.String("mode", rabbitmq.PublisherMode(publisher)),
		zap.String("noop_reason", rabbitmq.PublisherNoopReason(publisher)),
	)
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, "client_audit.session", serviceName, cfg.Environment, logger)

	database, err := db.Connect(cfg.IdentityDB, logger)
	if err != nil {
		logger.Fatal("failed to open identity store", zap.Error(err))
	}
	defer database.Close()
	identities := repositories.NewIdentityRepo(database)

	apiClient := api.NewClient(cfg.APIURL, "", api.WithLogger(logger))
	conn := ws.NewClient(cfg.SocketURL, ws.WithLogger(logger))

	sess := session.New(session.Deps{
		NewAPI:      func(token string) session.API { return apiClient.WithToken(token) },
		Conn:        conn,
		Logger:      logger,
		Audit:       audit,
		TypingQuiet: cfg.TypingQuiet(),
	})

	identity, err := resolveIdentity(ctx, cfg, identities, logger)
	switch {
	case err == nil:
		if err := sess.SetIdentity(ctx, &identity); err != nil {
			logger.Error("failed to start session", zap.Error(err))
		}
	case errors.Is(err, repositories.ErrIdentityNotFound):
		logger.Info("no identity available, waiting signed out")
	default:
		logger.Error("failed to resolve identity", zap.Error(err))
	}

	if cfg.Environment != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(sess, handlers.RouterConfig{
		Service:     serviceName,
		Logger:      logger,
		Audit:       audit,
		DebugRoutes: cfg.DebugRoutes,
	})
	server := &http.Server{
		Addr:              cfg.ViewAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("view listening", zap.String("addr", cfg.ViewAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("view server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("view shutdown failed", zap.Error(err))
	}
	sess.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", zap.Error(err))
	}
}

// resolveIdentity prefers a configured token, checked against the auth
// service and then stored, over the identity saved by an earlier run.
func resolveIdentity(ctx context.Context, cfg config.Config, identities repositories.IdentityRepository, logger *zap.Logger) (models.Identity, error) {
	if cfg.Token == "" {
		return identities.Load(ctx)
	}

	conn, err := grpcclient.Dial(cfg.AuthGRPCAddr)
	if err != nil {
		return models.Identity{}, err
	}
	defer conn.Close()

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	identity, err := grpcclient.NewAuthClient(conn).ResolveIdentity(callCtx, cfg.Token)
	if err != nil {
		if errors.Is(err, grpcclient.ErrInvalidToken) {
			if clearErr := identities.Clear(ctx); clearErr != nil {
				logger.Warn("failed to clear stored identity", zap.Error(clearErr))
			}
		}
		return models.Identity{}, err
	}
	if err := identities.Save(ctx, identity); err != nil {
		logger.Warn("failed to store identity", zap.Error(err))
	}
	return identity, nil
}
