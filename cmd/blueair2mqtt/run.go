package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/blueair2mqtt/internal/adapter/actor"
	"github.com/berfenger/blueair2mqtt/internal/config"
	"github.com/berfenger/blueair2mqtt/internal/core/actor"
	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/berfenger/blueair2mqtt/internal/entry"
	"github.com/berfenger/blueair2mqtt/internal/metrics"
	"github.com/berfenger/blueair2mqtt/internal/server"
	"github.com/berfenger/blueair2mqtt/internal/util/actorutil"
	"github.com/berfenger/blueair2mqtt/pkg/blueair"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge (default)",
	RunE:  runBridge,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func runBridge(cmd *cobra.Command, args []string) error {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		return fmt.Errorf("config errors: %w", err)
	}
	safePrintConfig(*cfg)

	logger := newLogger(cfg)
	defer logger.Sync()

	store, err := entry.NewStore(cfg.Entry)
	if err != nil {
		return err
	}
	data, err := entry.LoadCurrent(cmd.Context(), store)
	if err != nil {
		return fmt.Errorf("load config entry (run setup first): %w", err)
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	m := metrics.New()
	client := newBlueairClient(cfg, logger)

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, *data, blueairActorProvider(cfg, client, logger),
			mqttActorProvider(cfg, logger), m, logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return err
	}

	server := server.NewServer(*cfg, ctx, pid, m)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	if err := ctx.StopFuture(pid).Wait(); err != nil {
		logger.Warn("master stop", zap.Error(err))
	}
	as.Shutdown()
	return nil
}

func blueairActorProvider(cfg *config.Config, client blueair.Client, logger *zap.Logger) actor.BlueairActorProvider {
	return func() *pactor.Props {
		return adactor.NewBlueairPoolProps(client, cfg.Blueair.Workers, cfg.Blueair.UpdateTimeout(), logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(eventStream *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, eventStream, logger)
	}
}
