package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ahinestrog/cartengine/internal/broker"
	"github.com/ahinestrog/cartengine/internal/catalog"
	"github.com/ahinestrog/cartengine/internal/config"
	"github.com/ahinestrog/cartengine/internal/httpapi"
	"github.com/ahinestrog/cartengine/internal/notify"
	"github.com/ahinestrog/cartengine/internal/order"
	"github.com/ahinestrog/cartengine/internal/persistence"
	"github.com/ahinestrog/cartengine/internal/storage"
)

const serviceName = "cartengine.Cart"

func main() {
	// Logger
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := config.LoadConfig()
	zerolog.SetGlobalLevel(cfg.LogLevel)
	log.Info().
		Str("http", cfg.HTTPAddr).
		Str("grpc", cfg.GRPCAddr).
		Str("storage", cfg.Storage.Backend).
		Str("key", cfg.StorageKey).
		Msg("starting cart daemon")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage + rehydrate
	slot, err := storage.Open(ctx, cfg.Storage)
	must(err)
	defer slot.Close()
	store, writer := persistence.Open(ctx, slot, cfg.StorageKey, cfg.WriteQueue, log.Logger)

	// Catalog
	products, catalogDB, err := catalog.Open(ctx, cfg.Storage.SQLiteDriver, cfg.CatalogDBPath, cfg.CatalogCacheSize, log.Logger)
	must(err)
	defer catalogDB.Close()

	// Effects
	toaster := notify.NewToaster(log.Logger, nil)
	toaster.Attach(store)

	var dispatchers order.Multi
	if cfg.OrderPhone != "" {
		dispatchers = append(dispatchers, order.LinkDispatcher{Open: func(_ context.Context, link string) error {
			log.Info().Str("link", link).Msg("order link ready")
			return nil
		}})
	}
	var publisher *notify.Publisher
	if cfg.RabbitURL != "" {
		rabbit, err := broker.Dial(cfg.RabbitURL, cfg.CartExchange, log.Logger)
		must(err)
		defer rabbit.Close()
		publisher = notify.NewPublisher(rabbit, cfg.WriteQueue, log.Logger)
		publisher.Attach(store)
		dispatchers = append(dispatchers, order.NewBrokerDispatcher(rabbit))
		log.Info().Str("exchange", cfg.CartExchange).Msg("publishing cart events")
	}
	if len(dispatchers) == 0 {
		log.Warn().Msg("neither ORDER_PHONE nor RABBITMQ_URL set; checkout only logs the order")
		dispatchers = append(dispatchers, order.LinkDispatcher{Open: func(context.Context, string) error { return nil }})
	}
	checkout := order.NewCheckout(store, dispatchers, cfg.OrderPhone, log.Logger,
		order.WithToasts(toaster.Show))

	// HTTP
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.New(store, products, checkout, log.Logger).Handler(cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// gRPC health
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	must(err)
	grpcSrv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, hs)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error().Err(err).Msg("grpc serve")
		}
	}()

	// Signals for a clean shutdown
	idle := make(chan struct{})
	go func() {
		defer close(idle)
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		log.Warn().Msg("shutting down...")
		hs.Shutdown()

		sctx, scancel := context.WithTimeout(context.Background(), config.ShutdownGrace)
		defer scancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
		grpcSrv.GracefulStop()
	}()

	log.Info().Msg("HTTP listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http serve")
	}
	<-idle

	// Drain pending writes and events before the slot closes.
	sctx, scancel := context.WithTimeout(context.Background(), config.ShutdownGrace)
	defer scancel()
	if publisher != nil {
		if err := publisher.Close(sctx); err != nil {
			log.Error().Err(err).Msg("publisher drain")
		}
	}
	if err := writer.Close(sctx); err != nil {
		log.Error().Err(err).Msg("writer drain")
	}
	st := writer.Stats()
	log.Info().Int64("written", st.Written).Int64("dropped", st.Dropped).Int64("failed", st.Failed).Msg("bye")
}

func must(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
