package workers

import (
	"context"
	"log/slog"

	"satellite-catalog/pkg/catalog"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/shared"

	"github.com/nats-io/nats.go"
)

type DownloadWorker struct {
	*BaseWorker
	catalog *catalog.Handler
}

func NewDownloadWorker(js nats.JetStreamContext, cat *catalog.Handler, log *slog.Logger) *DownloadWorker {
	return &DownloadWorker{
		BaseWorker: NewBaseWorker(
			"DownloadWorker",
			js,
			shared.StreamIngest,
			shared.ConsumerDownloadIngest,
			shared.SubjectIngestDownloads,
			log,
		),
		catalog: cat,
	}
}

func (w *DownloadWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, w.handle)
}

// handle records the download with the status carried in the payload.
func (w *DownloadWorker) handle(data []byte) error {
	var d ontology.Download
	if err := decode(data, &d); err != nil {
		return err
	}
	if err := w.catalog.Downloads.RecordDownload(&d, ""); err != nil {
		return err
	}
	w.log.Debug("download ingested", "product_id", d.ProductID)
	return nil
}
