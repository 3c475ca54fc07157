package embeddednats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"satellite-catalog/pkg/shared"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

type Config struct {
	Host            string
	Port            int // server.RANDOM_PORT picks a free port
	DataDir         string
	MaxMemory       int64
	MaxFileStore    int64
	JetStreamDomain string
	Logger          *slog.Logger
}

type EmbeddedNATS struct {
	server  *server.Server
	nc      *nats.Conn
	js      nats.JetStreamContext
	config  *Config
	log     *slog.Logger
	streams map[string]*StreamConfig
}

type StreamConfig struct {
	Name            string
	Subjects        []string
	Retention       nats.RetentionPolicy
	MaxMsgs         int64
	MaxBytes        int64
	MaxAge          time.Duration
	MaxMsgSize      int32
	Replicas        int
	DuplicateWindow time.Duration
	AllowDirect     bool
	DiscardPolicy   nats.DiscardPolicy
}

func DefaultConfig() *Config {
	return &Config{
		Host:            "127.0.0.1",
		Port:            4222,
		DataDir:         "./data/nats",
		MaxMemory:       64 * 1024 * 1024,  // 64MB
		MaxFileStore:    512 * 1024 * 1024, // 512MB
		JetStreamDomain: "catalog",
	}
}

func New(cfg *Config) (*EmbeddedNATS, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("NATS data directory is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &EmbeddedNATS{
		config:  cfg,
		log:     log.With("component", "nats"),
		streams: make(map[string]*StreamConfig),
	}, nil
}

func (en *EmbeddedNATS) Start() error {
	opts := &server.Options{
		Host:               en.config.Host,
		Port:               en.config.Port,
		JetStream:          true,
		StoreDir:           en.config.DataDir,
		JetStreamMaxMemory: en.config.MaxMemory,
		JetStreamMaxStore:  en.config.MaxFileStore,
		JetStreamDomain:    en.config.JetStreamDomain,
		NoSigs:             true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return fmt.Errorf("NATS server not ready for connections")
	}

	en.server = ns

	if err := en.connect(); err != nil {
		ns.Shutdown()
		return fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	en.log.Info("embedded NATS server started", "url", ns.ClientURL())
	return nil
}

func (en *EmbeddedNATS) connect() error {
	nc, err := nats.Connect(en.server.ClientURL(),
		nats.Name("satellite-catalog"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			en.log.Error("NATS error", "error", err)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				en.log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			en.log.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	en.nc = nc
	en.js = js
	return nil
}

// AddStream creates the stream, or updates it when it already exists.
func (en *EmbeddedNATS) AddStream(streamConfig *StreamConfig) error {
	if en.js == nil {
		return fmt.Errorf("JetStream not initialized")
	}

	config := &nats.StreamConfig{
		Name:        streamConfig.Name,
		Subjects:    streamConfig.Subjects,
		Retention:   streamConfig.Retention,
		MaxMsgs:     streamConfig.MaxMsgs,
		MaxBytes:    streamConfig.MaxBytes,
		MaxAge:      streamConfig.MaxAge,
		MaxMsgSize:  streamConfig.MaxMsgSize,
		Replicas:    streamConfig.Replicas,
		Duplicates:  streamConfig.DuplicateWindow,
		AllowDirect: streamConfig.AllowDirect,
		Discard:     streamConfig.DiscardPolicy,
	}

	if _, err := en.js.StreamInfo(streamConfig.Name); err == nil {
		if _, err := en.js.UpdateStream(config); err != nil {
			return fmt.Errorf("failed to update stream %s: %w", streamConfig.Name, err)
		}
		en.log.Info("updated stream", "stream", streamConfig.Name, "subjects", streamConfig.Subjects)
	} else {
		if _, err := en.js.AddStream(config); err != nil {
			return fmt.Errorf("failed to add stream %s: %w", streamConfig.Name, err)
		}
		en.log.Info("created stream", "stream", streamConfig.Name, "subjects", streamConfig.Subjects)
	}

	en.streams[streamConfig.Name] = streamConfig
	return nil
}

// CreateCatalogStreams declares the ingest stream. Each message is consumed
// once by the worker bound to its subject.
func (en *EmbeddedNATS) CreateCatalogStreams() error {
	return en.AddStream(&StreamConfig{
		Name:            shared.StreamIngest,
		Subjects:        []string{shared.SubjectIngestAll},
		Retention:       nats.WorkQueuePolicy,
		MaxMsgs:         100000,
		MaxBytes:        256 * 1024 * 1024, // 256MB
		MaxAge:          7 * 24 * time.Hour,
		MaxMsgSize:      8 * 1024 * 1024, // 8MB, object batches carry encoded chips
		Replicas:        1,
		DuplicateWindow: 2 * time.Minute,
		AllowDirect:     true,
		DiscardPolicy:   nats.DiscardNew,
	})
}

// PublishWithDedup publishes data with a Nats-Msg-Id header so the stream
// drops repeats inside its duplicate window.
func (en *EmbeddedNATS) PublishWithDedup(subject string, data []byte, msgID string) error {
	if en == nil || en.js == nil {
		return fmt.Errorf("JetStream not initialized")
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, msgID)

	if _, err := en.js.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (en *EmbeddedNATS) CreateDurableConsumer(streamName, consumerName, filterSubject string) error {
	if en.js == nil {
		return fmt.Errorf("JetStream not initialized")
	}

	config := &nats.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: filterSubject,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		MaxAckPending: 1000,
		DeliverPolicy: nats.DeliverAllPolicy,
		ReplayPolicy:  nats.ReplayInstantPolicy,
	}

	if _, err := en.js.ConsumerInfo(streamName, consumerName); err == nil {
		en.log.Debug("durable consumer already exists", "consumer", consumerName, "stream", streamName)
		return nil
	}

	if _, err := en.js.AddConsumer(streamName, config); err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", consumerName, err)
	}

	en.log.Info("created durable consumer", "consumer", consumerName, "stream", streamName)
	return nil
}

func (en *EmbeddedNATS) Connection() *nats.Conn {
	return en.nc
}

func (en *EmbeddedNATS) JetStream() nats.JetStreamContext {
	return en.js
}

// Shutdown closes the client connection and stops the server, waiting at
// most until ctx is done.
func (en *EmbeddedNATS) Shutdown(ctx context.Context) error {
	if en.nc != nil {
		en.nc.Close()
	}
	if en.server == nil {
		return nil
	}

	en.server.Shutdown()
	done := make(chan struct{})
	go func() {
		en.server.WaitForShutdown()
		close(done)
	}()

	select {
	case <-done:
		en.log.Info("embedded NATS server stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("NATS shutdown: %w", ctx.Err())
	}
}

func (en *EmbeddedNATS) HealthCheck() error {
	if en == nil || en.nc == nil {
		return fmt.Errorf("NATS connection not initialized")
	}

	if !en.nc.IsConnected() {
		return fmt.Errorf("NATS not connected")
	}

	if en.server != nil && !en.server.Running() {
		return fmt.Errorf("NATS server not running")
	}

	return nil
}
