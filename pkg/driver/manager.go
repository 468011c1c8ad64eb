package driver

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// FilterFn selects drivers from the registry.
type FilterFn func(Driver) bool

// FilterVideoInput selects physical cameras, the only kind the
// controller considers a usable video input.
func FilterVideoInput() FilterFn {
	return FilterDeviceType(Camera)
}

// FilterDeviceType selects drivers of the given device type.
func FilterDeviceType(t DeviceType) FilterFn {
	return func(d Driver) bool {
		return d.Info().DeviceType == t
	}
}

// FilterID selects the driver with the given ID.
func FilterID(id string) FilterFn {
	return func(d Driver) bool {
		return d.ID() == id
	}
}

// FilterAnd returns a filter that matches when all of filters match.
func FilterAnd(filters ...FilterFn) FilterFn {
	return func(d Driver) bool {
		for _, f := range filters {
			if !f(d) {
				return false
			}
		}
		return true
	}
}

// FilterNot inverts a filter.
func FilterNot(f FilterFn) FilterFn {
	return func(d Driver) bool {
		return !f(d)
	}
}

// Manager is a process-wide driver registry. Backends register
// themselves from init; queries return a point-in-time snapshot.
type Manager struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

var defaultManager = NewManager()

// NewManager returns an empty private registry. Most callers want
// GetManager; private registries are for tests and embedding.
func NewManager() *Manager {
	return &Manager{drivers: make(map[string]Driver)}
}

// GetManager returns the process-wide registry.
func GetManager() *Manager {
	return defaultManager
}

// Register wraps a with ID assignment and lifecycle enforcement and adds
// it to the registry.
func (m *Manager) Register(a Adapter, info Info) error {
	d := &adapterWrapper{
		Adapter: a,
		id:      uuid.NewString(),
		info:    info,
		state:   StateClosed,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[d.id] = d
	return nil
}

// Query returns all registered drivers matching f, ordered by label so
// enumeration is deterministic.
func (m *Manager) Query(f FilterFn) []Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Driver, 0)
	for _, d := range m.drivers {
		if f(d) {
			results = append(results, d)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Info().Label != results[j].Info().Label {
			return results[i].Info().Label < results[j].Info().Label
		}
		return results[i].ID() < results[j].ID()
	})
	return results
}
