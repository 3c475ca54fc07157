package workers

import (
	"context"
	"log/slog"

	"satellite-catalog/pkg/catalog"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/shared"

	"github.com/nats-io/nats.go"
)

type ObjectWorker struct {
	*BaseWorker
	catalog *catalog.Handler
}

func NewObjectWorker(js nats.JetStreamContext, cat *catalog.Handler, log *slog.Logger) *ObjectWorker {
	return &ObjectWorker{
		BaseWorker: NewBaseWorker(
			"ObjectWorker",
			js,
			shared.StreamIngest,
			shared.ConsumerObjectIngest,
			shared.SubjectIngestObjects,
			log,
		),
		catalog: cat,
	}
}

func (w *ObjectWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

func (w *ObjectWorker) handle(data []byte) error {
	var batch ontology.ObjectBatch
	if err := decode(data, &batch); err != nil {
		return err
	}
	n, err := w.catalog.Objects.RecordObjects(batch.ImageID, batch.Objects)
	if err != nil {
		return err
	}
	w.log.Debug("object batch ingested", "image_id", batch.ImageID, "objects", n)
	return nil
}
