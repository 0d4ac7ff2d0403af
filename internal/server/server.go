package server

import (
	"context"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/docstore/internal/api/http"
	"github.com/Zereker/docstore/internal/ingest"
	"github.com/Zereker/docstore/pkg/docstore"
	"github.com/Zereker/docstore/pkg/log"
	"github.com/Zereker/docstore/pkg/mq"
	"github.com/Zereker/docstore/pkg/redis"
	"github.com/Zereker/docstore/pkg/search"
)

// Server represents the docstore server
type Server struct {
	config   Config
	logger   *slog.Logger
	registry *docstore.Registry
	consumer *ingest.Consumer
}

// NewServer creates a new server with the given configuration
func NewServer(conf Config) (*Server, error) {
	server := &Server{
		config: conf,
	}

	if err := server.initDepend(); err != nil {
		return nil, errors.WithMessage(err, "init server dependency failed")
	}

	if err := server.initConsumer(); err != nil {
		return nil, errors.WithMessage(err, "init consumer failed")
	}

	return server, nil
}

// initDepend initializes all dependencies
func (s *Server) initDepend() error {
	// Initialize log first
	if err := log.Init(s.config.Log); err != nil {
		return errors.WithMessage(err, "failed to init log")
	}

	// Create logger for this module
	s.logger = log.Logger("server")
	s.logger.Info("initializing dependencies")

	// Initialize the search engine singleton
	s.logger.Info("initializing search engine")
	if err := search.Init(s.config.Search); err != nil {
		return errors.WithMessage(err, "failed to init search engine")
	}
	s.registry = docstore.NewRegistry(search.NewEngine(), s.config.Store)

	// Initialize Kafka message queue
	s.logger.Info("initializing message queue")
	if err := mq.Init(s.config.Kafka); err != nil {
		return errors.WithMessage(err, "failed to init message queue")
	}

	// Initialize Redis
	s.logger.Info("initializing redis")
	if err := redis.Init(s.config.Redis); err != nil {
		return errors.WithMessage(err, "failed to init redis")
	}

	return nil
}

// initConsumer initializes the async ingest consumer
func (s *Server) initConsumer() error {
	if !s.config.Kafka.Enabled {
		s.logger.Info("kafka disabled, skipping ingest pipeline")
		return nil
	}

	s.logger.Info("initializing ingest pipeline")

	store, err := s.registry.Open(context.Background(), s.config.Ingest.Index)
	if err != nil {
		return errors.WithMessage(err, "failed to open ingest store")
	}

	var dedup *redis.Dedup
	if s.config.Ingest.DedupField != "" && redis.Client() != nil {
		dedup = redis.NewDedup(redis.Client(), "docstore:dedup:", s.config.Ingest.DedupTTLDuration())
	}

	ingester := ingest.New(store, dedup, s.config.Ingest)

	consumer, err := ingest.NewConsumer(ingester, s.config.Kafka)
	if err != nil {
		return errors.WithMessage(err, "failed to create consumer")
	}

	s.consumer = consumer
	return nil
}

// Start runs the HTTP server and the ingest consumer until a shutdown
// signal arrives.
func (s *Server) Start() error {
	s.logger.Info("starting", "port", s.config.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		s.logger.Info("received shutdown signal")
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)

	if s.consumer != nil {
		g.Go(func() error {
			return s.runConsumer(ctx)
		})
	}

	g.Go(func() error {
		return s.runHTTPServer(ctx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down")

	if s.consumer != nil {
		if err := s.consumer.Stop(); err != nil {
			s.logger.Error("failed to stop consumer", "error", err)
		}
	}

	if queue := mq.NewQueue(); queue != nil {
		if err := queue.Close(); err != nil {
			s.logger.Error("failed to close message queue", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		s.logger.Error("failed to close redis", "error", err)
	}

	if err := search.Close(); err != nil {
		s.logger.Error("failed to close search engine", "error", err)
	}

	return nil
}

func (s *Server) runHTTPServer(ctx context.Context) error {
	serverCfg := http.DefaultServerConfig()
	serverCfg.Port = s.config.Server.Port

	var queue mq.MessageQueue
	if producer := mq.NewQueue(); producer != nil {
		queue = producer
	}

	handler := http.NewHandler(s.registry, queue, s.config.Ingest.Topic)
	srv := http.NewServer(handler, serverCfg)

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return errors.WithMessage(err, "http server error")
	}
	return nil
}

func (s *Server) runConsumer(ctx context.Context) error {
	if err := s.consumer.Start(ctx); err != nil {
		return errors.WithMessage(err, "consumer start error")
	}

	// Wait for context cancellation
	<-ctx.Done()

	return s.consumer.Stop()
}
