package classify

import "sync"

// TypeID is a stable per-session identifier for a voxel type name.
type TypeID uint32

// Registry assigns TypeIDs in first-seen order. IDs are never reused.
type Registry struct {
	mu    sync.RWMutex
	ids   map[string]TypeID
	names []string
}

func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]TypeID)}
}

// ID returns the id for name, registering it on first use.
func (r *Registry) ID(name string) TypeID {
	r.mu.RLock()
	id, ok := r.ids[name]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[name]; ok {
		return id
	}
	id = TypeID(len(r.names))
	r.ids[name] = id
	r.names = append(r.names, name)
	return id
}

// Name returns the type name for id.
func (r *Registry) Name(id TypeID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.names) {
		return "", false
	}
	return r.names[id], true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
