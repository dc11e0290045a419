// Package registry tracks source to destination identifier mappings for every
// migrated entity kind. Lookups during later migration phases resolve
// ownership references through these mappings.
package registry

import "sync"

// EntityKind names a category of migrated entities.
type EntityKind string

// Entity kinds tracked by the registry.
const (
	KindUser       EntityKind = "user"
	KindGroup      EntityKind = "group"
	KindProject    EntityKind = "project"
	KindRepository EntityKind = "repository"
)

// Registry stores source to destination identifier mappings per entity kind.
// All methods are safe for concurrent use.
type Registry struct {
	mutex    sync.RWMutex
	mappings map[EntityKind]map[int64]int64
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{mappings: map[EntityKind]map[int64]int64{}}
}

// Put records a mapping from a source identifier to a destination identifier.
// Recording the same source identifier again overwrites the prior mapping.
func (registryInstance *Registry) Put(kind EntityKind, sourceID int64, destinationID int64) {
	registryInstance.mutex.Lock()
	defer registryInstance.mutex.Unlock()

	kindMappings, kindExists := registryInstance.mappings[kind]
	if !kindExists {
		kindMappings = map[int64]int64{}
		registryInstance.mappings[kind] = kindMappings
	}
	kindMappings[sourceID] = destinationID
}

// Lookup resolves a source identifier to the destination identifier recorded
// for it. The second return value reports whether a mapping exists.
func (registryInstance *Registry) Lookup(kind EntityKind, sourceID int64) (int64, bool) {
	registryInstance.mutex.RLock()
	defer registryInstance.mutex.RUnlock()

	kindMappings, kindExists := registryInstance.mappings[kind]
	if !kindExists {
		return 0, false
	}
	destinationID, mappingExists := kindMappings[sourceID]
	return destinationID, mappingExists
}

// Count returns the number of mappings recorded for a kind.
func (registryInstance *Registry) Count(kind EntityKind) int {
	registryInstance.mutex.RLock()
	defer registryInstance.mutex.RUnlock()

	return len(registryInstance.mappings[kind])
}

// Snapshot returns a copy of the mappings recorded for a kind.
func (registryInstance *Registry) Snapshot(kind EntityKind) map[int64]int64 {
	registryInstance.mutex.RLock()
	defer registryInstance.mutex.RUnlock()

	snapshotMappings := make(map[int64]int64, len(registryInstance.mappings[kind]))
	for sourceID, destinationID := range registryInstance.mappings[kind] {
		snapshotMappings[sourceID] = destinationID
	}
	return snapshotMappings
}
