package catalog

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/registry"
	"satellite-catalog/pkg/services/managers"
	"satellite-catalog/pkg/settings"
	"satellite-catalog/pkg/shared"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func setupTestCatalog(t *testing.T) (*Handler, *clockwork.FakeClock) {
	t.Helper()

	clk := clockwork.NewFakeClockAt(testNow)
	h, err := New(Options{
		DBPath: filepath.Join(t.TempDir(), "catalog", "downloads.db"),
		Clock:  clk,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h, clk
}

func ptr[T any](v T) *T { return &v }

func TestNew_UsesSettingsDBPath(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	s, err := settings.FromLookup(func(k string) (string, bool) {
		if k == settings.EnvDownloadDir {
			return base, true
		}
		return "", false
	})
	require.NoError(t, err)

	h, err := New(Options{Settings: s})
	require.NoError(t, err)
	defer h.Close()

	require.Equal(t, filepath.Join(base, "downloads.db"), h.Storage().DBPath)
	require.NoError(t, h.Health())
}

func TestNew_ConstellationsExistExactlyOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "downloads.db")
	for i := 0; i < 2; i++ {
		h, err := New(Options{DBPath: path})
		require.NoError(t, err)
		require.NoError(t, h.Close())
	}

	h, err := New(Options{DBPath: path})
	require.NoError(t, err)
	defer h.Close()

	for _, name := range registry.Default().Names() {
		var n int
		require.NoError(t, h.Storage().DB.QueryRow(`SELECT COUNT(*) FROM constellations WHERE name = ?`, name).Scan(&n))
		require.Equal(t, 1, n, name)

		c, err := h.Constellations.Get(name)
		require.NoError(t, err)
		require.Equal(t, name, c.Name)
	}
}

func TestNew_ReturnsGeneratedViews(t *testing.T) {
	t.Parallel()

	h, _ := setupTestCatalog(t)
	vs := h.Views()
	require.Len(t, vs, 4*h.Registry().Len()+7)

	var names []string
	for _, v := range vs {
		names = append(names, v.Name)
	}
	require.Contains(t, names, "sentinel_2_detections")
	require.Contains(t, names, "download_summary_by_status")

	again, err := h.RegenerateViews()
	require.NoError(t, err)
	require.Equal(t, vs, again)
}

func TestNew_InvalidRegistryFailsStartup(t *testing.T) {
	t.Parallel()

	reg, err := registry.New(registry.Entry{Name: "A-1"}, registry.Entry{Name: "A_1"})
	require.NoError(t, err)

	_, err = New(Options{DBPath: filepath.Join(t.TempDir(), "downloads.db"), Registry: reg})
	require.Error(t, err)
}

func TestHandler_IsDownloaded(t *testing.T) {
	t.Parallel()

	h, _ := setupTestCatalog(t)

	ok, err := h.IsDownloaded("S2A_MSIL2A_0001")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, h.Downloads.RecordDownload(&ontology.Download{ProductID: "S2A_MSIL2A_0001", Constellation: "SENTINEL-2"}, shared.StatusDownloaded))

	ok, err = h.IsDownloaded("S2A_MSIL2A_0001")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHandler_DownloadHistoryWindow(t *testing.T) {
	t.Parallel()

	h, clk := setupTestCatalog(t)

	require.NoError(t, h.Downloads.RecordDownload(&ontology.Download{ProductID: "eight-days", DownloadTime: testNow.Add(-8 * 24 * time.Hour)}, ""))
	require.NoError(t, h.Downloads.RecordDownload(&ontology.Download{ProductID: "one-hour", DownloadTime: testNow.Add(-time.Hour)}, ""))

	history, err := h.DownloadHistory(7)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "one-hour", history[0].ProductID)

	history, err = h.DownloadHistory(30)
	require.NoError(t, err)
	require.Len(t, history, 2)

	clk.Advance(2 * time.Hour)
	history, err = h.DownloadHistory(0)
	require.NoError(t, err)
	require.Empty(t, history)

	_, err = h.DownloadHistory(-1)
	require.Error(t, err)
}

func TestHandler_QueryDownloadScenario(t *testing.T) {
	t.Parallel()

	h, _ := setupTestCatalog(t)

	qid, err := h.Queries.RecordQuery(&ontology.QueryHistory{Constellation: "SENTINEL-1", GeometryWKT: "POINT(10 55)"})
	require.NoError(t, err)
	require.NoError(t, h.Downloads.RecordDownload(&ontology.Download{ProductID: "P1", QueryID: &qid, Constellation: "SENTINEL-1"}, shared.StatusDownloaded))

	var resolved string
	err = h.Storage().DB.QueryRow(
		`SELECT q.id FROM downloads d JOIN query_history q ON d.query_id = q.id WHERE d.product_id = 'P1'`,
	).Scan(&resolved)
	require.NoError(t, err)
	require.Equal(t, qid, resolved)
}

func TestHandler_DetectionSummaryScenario(t *testing.T) {
	t.Parallel()

	h, _ := setupTestCatalog(t)

	_, err := h.Images.RegisterImage(&ontology.Image{ID: "IMG1", Constellation: "SENTINEL-1", FilePath: "/data/IMG1.tif"})
	require.NoError(t, err)
	_, err = h.Detections.RecordDetection(&ontology.Detection{
		Constellation:     "SENTINEL-1",
		ImageID:           "IMG1",
		DetectionFile:     "/data/IMG1.json",
		NumShipDetections: ptr(42.0),
	})
	require.NoError(t, err)

	var num int
	var avg float64
	require.NoError(t, h.Storage().DB.QueryRow(
		`SELECT num_detections, avg_detections_per_image FROM detection_summary_sentinel_1`,
	).Scan(&num, &avg))
	require.GreaterOrEqual(t, num, 1)
	require.InDelta(t, 42.0, avg, 0.001)
}

func TestHandler_UnregisteredConstellationIsStoredWithoutView(t *testing.T) {
	t.Parallel()

	h, _ := setupTestCatalog(t)
	require.False(t, h.Registry().Supported("SPOT-7"))

	_, err := h.Images.RegisterImage(&ontology.Image{ID: "SPOT", Constellation: "SPOT-7", FilePath: "/spot.tif"})
	require.NoError(t, err)

	var n int
	require.NoError(t, h.Storage().DB.QueryRow(`SELECT num_images FROM image_counts_by_constellation WHERE constellation = 'SPOT-7'`).Scan(&n))
	require.Equal(t, 1, n)

	require.NoError(t, h.Storage().DB.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'spot_7_images'`).Scan(&n))
	require.Zero(t, n)
}

func TestHandler_TransactionalScope(t *testing.T) {
	t.Parallel()

	h, _ := setupTestCatalog(t)
	insert := func(tx *sql.Tx, id string) error {
		_, err := tx.Exec(`INSERT INTO query_history (id, timestamp, constellation) VALUES (?, '2026-01-01T00:00:00.000000Z', 'RCM')`, id)
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, h.Storage().DB.QueryRow(`SELECT COUNT(*) FROM query_history`).Scan(&n))
		return n
	}

	require.NoError(t, h.TransactionalScope(func(s *Scope) error { return insert(s.Tx, "q1") }))
	require.Equal(t, 1, count())

	failure := errors.New("failure")
	err := h.TransactionalScope(func(s *Scope) error {
		require.NoError(t, insert(s.Tx, "q2"))
		return failure
	})
	require.ErrorIs(t, err, failure)
	require.Equal(t, 1, count())

	require.PanicsWithValue(t, "boom", func() {
		_ = h.TransactionalScope(func(s *Scope) error {
			require.NoError(t, insert(s.Tx, "q3"))
			panic("boom")
		})
	})
	require.Equal(t, 1, count())

	// The single connection was released on every path.
	require.NoError(t, h.TransactionalScope(func(s *Scope) error { return insert(s.Tx, "q4") }))
	require.Equal(t, 2, count())
}

func TestHandler_TransactionalScopeManagersShareTransaction(t *testing.T) {
	t.Parallel()

	h, _ := setupTestCatalog(t)
	record := func(s *Scope, id string) error {
		if _, err := s.Images.RegisterImage(&ontology.Image{ID: id, Constellation: "SENTINEL-1", FilePath: "/data/" + id + ".tif"}); err != nil {
			return err
		}
		_, err := s.Detections.RecordDetection(&ontology.Detection{
			Constellation: "SENTINEL-1",
			ImageID:       id,
			DetectionFile: "/data/" + id + ".json",
		})
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- h.TransactionalScope(func(s *Scope) error { return record(s, "IMG1") })
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager call inside a transactional scope did not return")
	}

	img, err := h.Images.GetImage("IMG1")
	require.NoError(t, err)
	require.Equal(t, "SENTINEL-1", img.Constellation)
	dets, err := h.Detections.DetectionsForImage("IMG1")
	require.NoError(t, err)
	require.Len(t, dets, 1)

	failure := errors.New("failure")
	err = h.TransactionalScope(func(s *Scope) error {
		require.NoError(t, record(s, "IMG2"))
		return failure
	})
	require.ErrorIs(t, err, failure)
	_, err = h.Images.GetImage("IMG2")
	require.ErrorIs(t, err, managers.ErrNotFound)
}
