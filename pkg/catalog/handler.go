// Package catalog is the entry point for callers of the catalog. It owns the
// storage lifecycle and runs initialization in order: schema, constellation
// rows, derived views.
package catalog

import (
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"satellite-catalog/db"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/registry"
	"satellite-catalog/pkg/services/managers"
	"satellite-catalog/pkg/services/views"
	"satellite-catalog/pkg/settings"

	"github.com/jonboulle/clockwork"
)

// Options configures a Handler. Zero values fall back to defaults.
type Options struct {
	// DBPath overrides Settings.DBPath.
	DBPath   string
	Settings *settings.Settings
	Registry *registry.Registry
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Managers groups one record manager per table, all sharing a Transactor.
type Managers struct {
	Images         *managers.ImageManager
	Detections     *managers.DetectionManager
	Downloads      *managers.DownloadManager
	Constellations *managers.ConstellationManager
	Queries        *managers.QueryManager
	AIS            *managers.AISManager
	Objects        *managers.ObjectManager
}

func newManagers(t managers.Transactor, clock clockwork.Clock, log *slog.Logger) Managers {
	return Managers{
		Images:         managers.NewImageManager(t, clock, log),
		Detections:     managers.NewDetectionManager(t, clock, log),
		Downloads:      managers.NewDownloadManager(t, clock, log),
		Constellations: managers.NewConstellationManager(t, clock, log),
		Queries:        managers.NewQueryManager(t, clock, log),
		AIS:            managers.NewAISManager(t, clock, log),
		Objects:        managers.NewObjectManager(t, clock, log),
	}
}

// Scope is the working session handed to TransactionalScope. Its managers
// run on Tx, so everything done through the scope commits or rolls back
// together.
type Scope struct {
	Managers
	Tx *sql.Tx
}

type Handler struct {
	Managers

	store    *db.Service
	registry *registry.Registry
	views    *views.Generator
	clock    clockwork.Clock
	log      *slog.Logger

	current []views.View
}

// New opens (or creates) the catalog database and brings it to a usable
// state. Any failure along the way is fatal and the database is closed.
func New(opts Options) (*Handler, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	reg := opts.Registry
	if reg == nil {
		reg = registry.Default()
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		s := opts.Settings
		if s == nil {
			s = settings.Default()
		}
		dbPath = s.DBPath
	}

	cfg := db.DefaultConfig()
	cfg.DBPath = dbPath
	cfg.Logger = log
	store, err := db.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if err := store.VerifySchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}

	h := &Handler{
		Managers: newManagers(store, clock, log),
		store:    store,
		registry: reg,
		views:    views.NewGenerator(reg, log),
		clock:    clock,
		log:      log,
	}

	if err := h.Constellations.Populate(reg); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to populate constellations: %w", err)
	}

	if _, err := h.RegenerateViews(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to generate views: %w", err)
	}

	log.Info("catalog ready", "path", dbPath, "constellations", reg.Len(), "views", len(h.current))
	return h, nil
}

// TransactionalScope runs fn in a single transaction. It commits when fn
// returns nil, rolls back and returns the error otherwise, and rolls back
// before re-raising a panic.
//
// The store has a single connection: inside fn use the scope's managers, not
// the Handler's, which would wait for the connection fn is holding.
func (h *Handler) TransactionalScope(fn func(*Scope) error) error {
	return h.store.Transaction(func(tx *sql.Tx) error {
		return fn(h.WithTx(tx))
	})
}

// WithTx returns managers that run on tx instead of opening their own
// transactions.
func (h *Handler) WithTx(tx *sql.Tx) *Scope {
	return &Scope{
		Managers: newManagers(managers.BoundTx{Tx: tx}, h.clock, h.log),
		Tx:       tx,
	}
}

// DownloadHistory returns downloads recorded within the last days days,
// newest first.
func (h *Handler) DownloadHistory(days int) ([]ontology.Download, error) {
	if days < 0 {
		return nil, fmt.Errorf("days must not be negative, got %d", days)
	}
	now := h.clock.Now().UTC()
	return h.Downloads.History(now.Add(-time.Duration(days)*24*time.Hour), now)
}

// IsDownloaded reports whether productID has a download row, whatever its status.
func (h *Handler) IsDownloaded(productID string) (bool, error) {
	return h.Downloads.Exists(productID)
}

// RegenerateViews drops and recreates every derived view. Call it after the
// base tables change shape or when fresh views are needed.
func (h *Handler) RegenerateViews() ([]views.View, error) {
	vs, err := h.views.Rebuild(h.store)
	if err != nil {
		return nil, err
	}
	h.current = vs
	return slices.Clone(vs), nil
}

// Views returns the views created by the last rebuild.
func (h *Handler) Views() []views.View {
	return slices.Clone(h.current)
}

func (h *Handler) Registry() *registry.Registry {
	return h.registry
}

// Storage exposes the underlying database service.
func (h *Handler) Storage() *db.Service {
	return h.store
}

func (h *Handler) Health() error {
	return h.store.Health()
}

func (h *Handler) Close() error {
	return h.store.Close()
}
