package datahandler

import "fmt"

// InMemory never persists (spec §4.6): a value exists only for the
// life of the process. The engine's own in-memory TaskInstance cache
// already provides that for the current process, so this handler's
// Save/Load are no-ops — it exists so tasks whose return type maps to
// "no persistence" still have a Handler to satisfy the engine's
// uniform Value algorithm.
type InMemory struct{}

func (InMemory) Exists(path string) (bool, error) { return false, nil }

func (InMemory) Load(path string) (interface{}, error) {
	return nil, fmt.Errorf("in-memory handler has no persisted data at %s", path)
}

func (InMemory) Save(path string, value interface{}) error { return nil }

func (InMemory) IsFinished(path string) (bool, error) { return false, nil }

func (InMemory) MarkFinished(path string) error { return nil }

func (InMemory) Ext() string { return "" }
