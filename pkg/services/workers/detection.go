package workers

import (
	"context"
	"log/slog"

	"satellite-catalog/pkg/catalog"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/shared"

	"github.com/nats-io/nats.go"
)

type DetectionWorker struct {
	*BaseWorker
	catalog *catalog.Handler
}

func NewDetectionWorker(js nats.JetStreamContext, cat *catalog.Handler, log *slog.Logger) *DetectionWorker {
	return &DetectionWorker{
		BaseWorker: NewBaseWorker(
			"DetectionWorker",
			js,
			shared.StreamIngest,
			shared.ConsumerDetectionIngest,
			shared.SubjectIngestDetections,
			log,
		),
		catalog: cat,
	}
}

func (w *DetectionWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

func (w *DetectionWorker) handle(data []byte) error {
	var d ontology.Detection
	if err := decode(data, &d); err != nil {
		return err
	}
	id, err := w.catalog.Detections.RecordDetection(&d)
	if err != nil {
		return err
	}
	w.log.Debug("detection ingested", "detection_id", id, "image_id", d.ImageID)
	return nil
}
