package workers

import (
	"context"
	"log/slog"

	"satellite-catalog/pkg/catalog"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/shared"

	"github.com/nats-io/nats.go"
)

type ImageWorker struct {
	*BaseWorker
	catalog *catalog.Handler
}

func NewImageWorker(js nats.JetStreamContext, cat *catalog.Handler, log *slog.Logger) *ImageWorker {
	return &ImageWorker{
		BaseWorker: NewBaseWorker(
			"ImageWorker",
			js,
			shared.StreamIngest,
			shared.ConsumerImageIngest,
			shared.SubjectIngestImages,
			log,
		),
		catalog: cat,
	}
}

func (w *ImageWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

func (w *ImageWorker) handle(data []byte) error {
	var img ontology.Image
	if err := decode(data, &img); err != nil {
		return err
	}
	created, err := w.catalog.Images.RegisterImage(&img)
	if err != nil {
		return err
	}
	w.log.Debug("image ingested", "image_id", img.ID, "created", created)
	return nil
}
