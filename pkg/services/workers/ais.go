package workers

import (
	"context"
	"log/slog"

	"satellite-catalog/pkg/catalog"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/shared"

	"github.com/nats-io/nats.go"
)

type AISWorker struct {
	*BaseWorker
	catalog *catalog.Handler
}

func NewAISWorker(js nats.JetStreamContext, cat *catalog.Handler, log *slog.Logger) *AISWorker {
	return &AISWorker{
		BaseWorker: NewBaseWorker(
			"AISWorker",
			js,
			shared.StreamIngest,
			shared.ConsumerAISIngest,
			shared.SubjectIngestAIS,
			log,
		),
		catalog: cat,
	}
}

func (w *AISWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

func (w *AISWorker) handle(data []byte) error {
	var batch ontology.AISBatch
	if err := decode(data, &batch); err != nil {
		return err
	}
	n, err := w.catalog.AIS.InsertAISRecords(batch.ImageID, batch.Records)
	if err != nil {
		return err
	}
	w.log.Debug("ais batch ingested", "image_id", batch.ImageID, "records", n)
	return nil
}
