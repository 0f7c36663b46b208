package scene

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Archive is a catalogue of acquisitions.
type Archive interface {
	// List returns the catalogue entries matching q, oldest first.
	List(ctx context.Context, q Query) ([]Info, error)

	// Load returns the full scene with the given ID.
	Load(ctx context.Context, id string) (*Scene, error)
}

// MemoryArchive is an Archive over scenes held in memory.
//
// MemoryArchive is safe for concurrent use.
type MemoryArchive struct {
	mu     sync.RWMutex
	scenes map[string]*Scene
}

// NewMemoryArchive creates an archive holding scenes.
func NewMemoryArchive(scenes ...*Scene) *MemoryArchive {
	a := &MemoryArchive{scenes: make(map[string]*Scene)}
	for _, s := range scenes {
		a.Add(s)
	}
	return a
}

// Add stores s, replacing any scene with the same ID.
func (a *MemoryArchive) Add(s *Scene) {
	a.mu.Lock()
	a.scenes[s.ID] = s
	a.mu.Unlock()
}

func (a *MemoryArchive) List(ctx context.Context, q Query) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []Info
	for _, s := range a.scenes {
		if q.Matches(s.Info) {
			out = append(out, s.Info)
		}
	}
	sortInfos(out)
	return out, nil
}

func (a *MemoryArchive) Load(ctx context.Context, id string) (*Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.scenes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	return s, nil
}

// sortInfos orders entries by acquisition time, then ID.
func sortInfos(infos []Info) {
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].Acquired.Equal(infos[j].Acquired) {
			return infos[i].Acquired.Before(infos[j].Acquired)
		}
		return infos[i].ID < infos[j].ID
	})
}
