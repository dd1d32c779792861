// Package registry caches loaded configuration sources by logical identity.
//
// A Registry loads each (displayName, fileIdentifier) pair at most once and
// hands every caller the same source instance until ClearCache is called.
// Concurrent first requests for the same key share a single load.
package registry

import (
	"errors"
	"sync"

	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/logging"
	"github.com/systmms/envvault/internal/metrics"
	"github.com/systmms/envvault/internal/source"
	"golang.org/x/sync/singleflight"
)

// Key identifies one configuration instance.
type Key struct {
	DisplayName    string
	FileIdentifier string
}

// String returns the "displayName:fileIdentifier" form used in logs and errors.
func (k Key) String() string {
	return k.DisplayName + ":" + k.FileIdentifier
}

// flightKey is unambiguous even when either part contains ':'.
func (k Key) flightKey() string {
	return k.DisplayName + "\x00" + k.FileIdentifier
}

// Opener loads the source for a key. It is only called on a cache miss.
type Opener func(key Key) (source.Source, error)

// Registry is a concurrency-safe cache of configuration sources.
type Registry struct {
	name   string
	open   Opener
	logger *logging.Logger

	mu         sync.RWMutex
	entries    map[Key]source.Source
	generation uint64

	group singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithName labels the registry in logs and metrics.
func WithName(name string) Option {
	return func(r *Registry) { r.name = name }
}

// New creates an empty registry that loads sources with open.
func New(open Opener, opts ...Option) *Registry {
	r := &Registry{
		name:    "configuration",
		open:    open,
		entries: make(map[Key]source.Source),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewEnvironmentRegistry caches dotenv sources read from dir.
func NewEnvironmentRegistry(dir string, logger *logging.Logger, opts ...source.Option) *Registry {
	return New(func(key Key) (source.Source, error) {
		return source.OpenEnvironment(key.DisplayName, key.FileIdentifier, dir, logger, opts...)
	}, WithName("environment"), WithLogger(logger))
}

// NewPropertiesRegistry caches .properties sources read from dir.
func NewPropertiesRegistry(dir string, logger *logging.Logger, opts ...source.Option) *Registry {
	return New(func(key Key) (source.Source, error) {
		return source.OpenProperties(key.DisplayName, key.FileIdentifier, dir, logger, opts...)
	}, WithName("properties"), WithLogger(logger))
}

// GetConfiguration returns the cached source for the pair, loading it on first use.
// Load failures are returned as *errors.ConfigurationError and are not cached.
func (r *Registry) GetConfiguration(displayName, fileIdentifier string) (source.Source, error) {
	if displayName == "" {
		return nil, dserrors.Report(r.logger, "getConfiguration", fileIdentifier,
			dserrors.InvalidArgument("displayName", "must not be empty"))
	}
	if fileIdentifier == "" {
		return nil, dserrors.Report(r.logger, "getConfiguration", displayName,
			dserrors.InvalidArgument("fileIdentifier", "must not be empty"))
	}

	key := Key{DisplayName: displayName, FileIdentifier: fileIdentifier}
	if src, ok := r.cached(key); ok {
		metrics.RecordRegistryLookup(r.name, metrics.ResultHit)
		r.logger.Debug("Using cached configuration for %s", key)
		return src, nil
	}

	v, err, shared := r.group.Do(key.flightKey(), func() (interface{}, error) {
		// A flight that finished between our cache check and Do may already have stored it.
		r.mu.RLock()
		src, ok := r.entries[key]
		generation := r.generation
		r.mu.RUnlock()
		if ok {
			return src, nil
		}

		r.logger.Info("Loading %s configuration %s", r.name, key)
		src, err := r.open(key)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		// Skip the insert if ClearCache ran while we were loading.
		if r.generation == generation {
			r.entries[key] = src
		}
		r.mu.Unlock()
		return src, nil
	})
	if err != nil {
		metrics.RecordRegistryLookup(r.name, metrics.ResultError)
		var cfgErr *dserrors.ConfigurationError
		if !errors.As(err, &cfgErr) {
			err = &dserrors.ConfigurationError{Op: "load", Key: key.String(), Err: err}
		}
		return nil, dserrors.Report(r.logger, "getConfiguration", key.String(), err)
	}

	if shared {
		r.logger.Debug("Shared in-flight load for %s", key)
	}
	metrics.RecordRegistryLookup(r.name, metrics.ResultLoad)
	return v.(source.Source), nil
}

func (r *Registry) cached(key Key) (source.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.entries[key]
	return src, ok
}

// ClearCache drops every cached source. Sources already handed out keep working.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	r.entries = make(map[Key]source.Source)
	r.generation++
	r.mu.Unlock()
	r.logger.Info("Configuration cache cleared")
}

// Len returns the number of cached sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
