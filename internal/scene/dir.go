package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/raster"
)

// ManifestName is the catalogue file of a DirArchive.
const ManifestName = "manifest.json"

// Manifest lists the scenes stored in an archive directory.
type Manifest struct {
	Scenes []ManifestScene `json:"scenes"`
}

// ManifestScene describes one scene and the files holding its bands.
type ManifestScene struct {
	ID         string      `json:"id"`
	Collection string      `json:"collection"`
	Acquired   time.Time   `json:"acquired"`
	CloudCover float64     `json:"cloud_cover"`
	Grid       raster.Grid `json:"grid"`

	// Bands maps band names to TIFF files relative to the archive root.
	Bands map[string]string `json:"bands"`

	// NoData is the fill digital number of the reflectance bands.
	NoData *uint16 `json:"nodata,omitempty"`
}

func (m ManifestScene) info() Info {
	return Info{
		ID:         m.ID,
		Collection: m.Collection,
		Acquired:   m.Acquired,
		CloudCover: m.CloudCover,
		Grid:       m.Grid,
	}
}

// DirArchive is an Archive backed by a directory of single-band TIFF files.
//
// The manifest and decoded scenes are cached. After Watch is started, any
// change to the manifest drops the whole cache and any change to a band file
// evicts the scenes using it.
//
// DirArchive is safe for concurrent use.
type DirArchive struct {
	root string
	log  zerolog.Logger

	mu       sync.RWMutex
	manifest *Manifest
	scenes   map[string]*Scene
}

// NewDirArchive opens the archive rooted at dir.
func NewDirArchive(dir string, log zerolog.Logger) (*DirArchive, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive path %s is not a directory", dir)
	}
	return &DirArchive{
		root:   dir,
		log:    log.With().Str("component", "archive").Str("root", dir).Logger(),
		scenes: make(map[string]*Scene),
	}, nil
}

func (a *DirArchive) List(ctx context.Context, q Query) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := a.loadManifest()
	if err != nil {
		return nil, err
	}

	var out []Info
	for _, s := range m.Scenes {
		if q.Matches(s.info()) {
			out = append(out, s.info())
		}
	}
	sortInfos(out)
	return out, nil
}

func (a *DirArchive) Load(ctx context.Context, id string) (*Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	if s, ok := a.scenes[id]; ok {
		a.mu.RUnlock()
		return s, nil
	}
	a.mu.RUnlock()

	m, err := a.loadManifest()
	if err != nil {
		return nil, err
	}
	var entry *ManifestScene
	for i := range m.Scenes {
		if m.Scenes[i].ID == id {
			entry = &m.Scenes[i]
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}

	s, err := a.readScene(*entry)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.scenes[id] = s
	a.mu.Unlock()
	a.log.Debug().Str("scene", id).Msg("scene loaded")
	return s, nil
}

// readScene decodes every band file of entry. Bands are read as raw digital
// numbers; the quality band ignores the fill value.
func (a *DirArchive) readScene(entry ManifestScene) (*Scene, error) {
	names := make([]string, 0, len(entry.Bands))
	for name := range entry.Bands {
		names = append(names, name)
	}
	sort.Strings(names)

	bands := make([]*raster.Band, 0, len(names))
	for _, name := range names {
		opts := raster.TIFFOptions{NoData: entry.NoData}
		if name == BandQA {
			opts.NoData = nil
		}
		b, err := a.readBand(entry.Bands[name], name, entry.Grid, opts)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", entry.ID, err)
		}
		bands = append(bands, b)
	}

	img, err := raster.NewImage(entry.Grid, bands...)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", entry.ID, err)
	}
	return &Scene{Info: entry.info(), Image: img}, nil
}

func (a *DirArchive) readBand(file, name string, grid raster.Grid, opts raster.TIFFOptions) (*raster.Band, error) {
	f, err := os.Open(filepath.Join(a.root, file))
	if err != nil {
		return nil, fmt.Errorf("failed to open band %s: %w", name, err)
	}
	defer f.Close()
	return raster.ReadTIFFBand(f, name, grid, opts)
}

func (a *DirArchive) loadManifest() (*Manifest, error) {
	a.mu.RLock()
	m := a.manifest
	a.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	data, err := os.ReadFile(filepath.Join(a.root, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m = &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	for _, s := range m.Scenes {
		if s.ID == "" {
			return nil, errors.New("manifest scene without id")
		}
		if err := s.Grid.Validate(); err != nil {
			return nil, fmt.Errorf("manifest scene %s: %w", s.ID, err)
		}
	}

	a.mu.Lock()
	a.manifest = m
	a.mu.Unlock()
	return m, nil
}

// Invalidate drops cached data depending on path. The manifest itself clears
// everything.
func (a *DirArchive) Invalidate(path string) {
	rel, err := filepath.Rel(a.root, path)
	if err != nil {
		rel = path
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if rel == ManifestName {
		a.manifest = nil
		a.scenes = make(map[string]*Scene)
		a.log.Info().Msg("manifest changed, cache cleared")
		return
	}
	if a.manifest == nil {
		return
	}
	for _, s := range a.manifest.Scenes {
		for _, file := range s.Bands {
			if filepath.Clean(file) == filepath.Clean(rel) {
				delete(a.scenes, s.ID)
				a.log.Debug().Str("scene", s.ID).Str("file", rel).Msg("scene evicted")
			}
		}
	}
}

// Watch invalidates the cache on file changes until ctx is cancelled.
func (a *DirArchive) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(a.root); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", a.root, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				a.Invalidate(event.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				a.log.Warn().Err(err).Msg("watcher error")
			}
		}
	}()
	return nil
}
