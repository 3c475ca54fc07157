package embeddednats

import (
	"context"
	"testing"
	"time"

	"satellite-catalog/pkg/shared"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func startTestNATS(t *testing.T) *EmbeddedNATS {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Port = server.RANDOM_PORT
	cfg.DataDir = t.TempDir()
	en, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, en.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = en.Shutdown(ctx)
	})
	return en
}

func TestEmbeddedNATS_HealthCheck(t *testing.T) {
	var nilNATS *EmbeddedNATS
	require.Error(t, nilNATS.HealthCheck())

	en := startTestNATS(t)
	require.NoError(t, en.HealthCheck())
}

func TestEmbeddedNATS_StreamIsIdempotent(t *testing.T) {
	en := startTestNATS(t)

	require.NoError(t, en.CreateCatalogStreams())
	require.NoError(t, en.CreateCatalogStreams())

	info, err := en.JetStream().StreamInfo(shared.StreamIngest)
	require.NoError(t, err)
	require.Equal(t, nats.WorkQueuePolicy, info.Config.Retention)
	require.Equal(t, []string{shared.SubjectIngestAll}, info.Config.Subjects)
}

func TestEmbeddedNATS_PublishWithDedup(t *testing.T) {
	en := startTestNATS(t)
	require.NoError(t, en.CreateCatalogStreams())
	require.NoError(t, en.CreateDurableConsumer(shared.StreamIngest, shared.ConsumerImageIngest, shared.SubjectIngestImages))
	require.NoError(t, en.CreateDurableConsumer(shared.StreamIngest, shared.ConsumerImageIngest, shared.SubjectIngestImages))

	payload := []byte(`{"id":"IMG1"}`)
	require.NoError(t, en.PublishWithDedup(shared.SubjectIngestImages, payload, "img-1"))
	require.NoError(t, en.PublishWithDedup(shared.SubjectIngestImages, payload, "img-1"))
	require.NoError(t, en.PublishWithDedup(shared.SubjectIngestImages, payload, "img-2"))

	info, err := en.JetStream().StreamInfo(shared.StreamIngest)
	require.NoError(t, err)
	require.Equal(t, uint64(2), info.State.Msgs)
}
