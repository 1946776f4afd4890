package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cardroom/api"
	"cardroom/auth"
	"cardroom/config"
	"cardroom/database"
	"cardroom/domain/interfaces"
	"cardroom/domain/services"
	"cardroom/domain/utils"
	"cardroom/gateway"
	"cardroom/infrastructure"
	"cardroom/repository"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting cardroom backend...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Initialize event publishing. Without a broker configured events are
	// dropped; everything else works the same.
	var publisher interfaces.EventPublisher = infrastructure.NewNoopEventPublisher()
	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		log.Info("Connecting to NATS...")
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()
		if err := natsClient.EnsureEventStream(); err != nil {
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		publisher = infrastructure.NewNATSEventPublisher(natsClient)
	}

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, publisher)

	fees := services.Fees{
		Registration: cfg.RegistrationFee,
		Game:         cfg.GameFee,
		Tournament:   cfg.TournamentFee,
	}

	// Initialize gateway client and payout service
	gatewayClient := gateway.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey)
	payoutService := services.NewPayoutService(uowFactory, gatewayClient, cfg.GatewaySendTimeout)

	// Start reconciliation jobs
	reconciler := gateway.NewReconciler(payoutService, uowFactory, cfg.ReconcileInterval, cfg.ReconcileMinAge)
	if err := reconciler.Start(); err != nil {
		return fmt.Errorf("failed to start reconciler: %w", err)
	}
	defer func() {
		if err := reconciler.Stop(); err != nil {
			log.WithError(err).Error("Failed to stop reconciler")
		}
	}()

	// Initialize HTTP API
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	handler := api.NewHandler(
		uowFactory,
		payoutService,
		gatewayClient,
		auth.NewBcryptHasher(),
		tokens,
		utils.SystemRand{},
		fees,
	)
	server := api.NewServer(cfg.Port, api.NewRouter(handler, tokens))

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Infof("API listening in %s mode", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	log.Info("Shutdown completed")
	return nil
}
