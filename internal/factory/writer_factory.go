package factory

import (
	"fmt"
	"sort"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/logging"
	"HttpSpectra/internal/model"
)

// WriterFactory builds a writer from its config entry.
type WriterFactory func(def config.WriterDef, interval time.Duration) (model.Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered returns the registered writer types, sorted.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateWriters builds every enabled writer of cfg. An unknown type is a
// configuration error; a writer whose backend cannot be reached is skipped
// with a warning so the capture can still run.
func CreateWriters(cfg *config.Config) ([]model.Writer, error) {
	var writers []model.Writer

	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}
		factory, ok := registry[def.Type]
		if !ok {
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
		}
		interval, err := def.Interval()
		if err != nil {
			return nil, fmt.Errorf("writer '%s': %w", def.Type, err)
		}

		logging.Infof("Creating writer '%s' with interval %s", def.Type, interval)
		writer, err := factory(def, interval)
		if err != nil {
			logging.Warnf("Failed to create writer type '%s': %v, skipping.", def.Type, err)
			continue
		}
		writers = append(writers, writer)
	}

	return writers, nil
}
