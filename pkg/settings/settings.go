package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variables recognised by Load.
const (
	EnvDownloadDir   = "DOWNLOAD_DIR"
	EnvInProgressDir = "IN_PROGRESS_DIR"
	EnvCompletedDir  = "COMPLETED_DIR"
	EnvDetectionsDir = "DETECTIONS_DIR"
	EnvAISDir        = "AIS_DIR"
	EnvDBPath        = "CATALOG_DB_PATH"
)

const (
	defaultDownloadDir   = "data"
	defaultInProgressDir = "in_progress"
	defaultCompletedDir  = "completed"
	defaultDetectionsDir = "detections"
	defaultAISDir        = "ais"
	defaultDBFile        = "downloads.db"
)

// Settings holds resolved storage locations. Every path other than BaseDir is
// either absolute as configured or joined onto BaseDir.
type Settings struct {
	BaseDir       string
	InProgressDir string
	CompletedDir  string
	DetectionsDir string
	AISDir        string
	DBPath        string
}

// Default returns settings with every option at its default value.
func Default() *Settings {
	s, _ := FromLookup(func(string) (string, bool) { return "", false })
	return s
}

// Load reads optional .env files and then resolves settings from the process
// environment. Missing env files are not an error; values already present in
// the environment take precedence over file values.
func Load(envFiles ...string) (*Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup resolves settings using lookup for each recognised variable.
func FromLookup(lookup func(string) (string, bool)) (*Settings, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	base := filepath.Clean(get(EnvDownloadDir, defaultDownloadDir))
	s := &Settings{
		BaseDir:       base,
		InProgressDir: resolve(base, get(EnvInProgressDir, defaultInProgressDir)),
		CompletedDir:  resolve(base, get(EnvCompletedDir, defaultCompletedDir)),
		DetectionsDir: resolve(base, get(EnvDetectionsDir, defaultDetectionsDir)),
		AISDir:        resolve(base, get(EnvAISDir, defaultAISDir)),
		DBPath:        resolve(base, get(EnvDBPath, defaultDBFile)),
	}
	return s, nil
}

// EnsureDirectories creates the base directory and every subdirectory.
func (s *Settings) EnsureDirectories() error {
	for _, dir := range []string{s.BaseDir, s.InProgressDir, s.CompletedDir, s.DetectionsDir, s.AISDir, filepath.Dir(s.DBPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
