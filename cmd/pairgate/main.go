package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/pairgate/pairgate/adapters/credstore"
	"github.com/pairgate/pairgate/adapters/events"
	"github.com/pairgate/pairgate/adapters/qr"
	"github.com/pairgate/pairgate/adapters/tokenizer"
	"github.com/pairgate/pairgate/adapters/transport"
	"github.com/pairgate/pairgate/config"
	"github.com/pairgate/pairgate/logger"
	"github.com/pairgate/pairgate/ports"
	"github.com/pairgate/pairgate/service"
	pghttp "github.com/pairgate/pairgate/transport/http"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Download tokens are signed with a per-process key; archives are only
	// reachable through tokens minted by this instance.
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatal().Err(err).Msg("generating signing key")
	}
	tokens := tokenizer.NewJWTTokenizer(signKey)

	store, err := credstore.NewFileStore(cfg.SessionsDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("opening credential store")
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("creating event publisher")
	}
	eventPub := events.NewWatermillPublisher(publisher)

	profile := ports.DefaultDialProfile()
	profile.ConnectTimeout = cfg.ConnectTimeout
	profile.KeepAliveInterval = cfg.KeepAliveInterval

	// The wire-protocol client is linked in by the deployment; the
	// loopback transport keeps the service runnable without one.
	wire := transport.NewLoopback(profile, nil)
	log.Warn().Msg("no wire-protocol client configured, using loopback transport")

	registry := service.NewRegistry(log)
	svc := service.NewPairingService(wire, store, eventPub, qr.NewGenerator(0), tokens, registry, service.Options{
		WaitBudget:       cfg.WaitBudget,
		CodeAttempts:     cfg.CodeAttempts,
		CodeRetryBase:    cfg.CodeRetryBase,
		CodeRequestDelay: cfg.CodeRequestDelay,
		QRPolicy:         service.QRPolicy(cfg.QRPolicy),
		DeleteOnFailure:  cfg.DeleteOnFailure,
		DownloadTokenTTL: cfg.DownloadTokenTTL,
	}, log)

	sweeper := service.NewSweeper(registry, cfg.SweepInterval, cfg.StaleAfter, log)
	go sweeper.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := pghttp.SetupRouter(svc, tokens, cfg.PublicDir, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("pairgate listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Every live connection is closed before exit.
	svc.Shutdown()
	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("closing event publisher")
	}
	log.Info().Msg("stopped")
}

// newPublisher picks the redis-stream publisher when REDIS_URL is set and an
// in-process one otherwise.
func newPublisher(cfg config.Config) (message.Publisher, error) {
	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.RedisURL == "" {
		return gochannel.NewGoChannel(gochannel.Config{}, wmLogger), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	return redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: redis.NewClient(opts),
	}, wmLogger)
}
