// Package source loads named configuration files and answers key lookups
// with a fixed precedence: the process environment first, then any
// configured overrides, then the file itself.
package source

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/systmms/envvault/internal/convert"
	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/logging"
	"github.com/systmms/envvault/internal/metrics"
)

// Source is a loaded, queryable configuration file.
type Source interface {
	DisplayName() string
	FileIdentifier() string
	Path() string
	Keys() []string

	// Get returns the value for key or an ErrMissingKey error.
	Get(key string) (string, error)
	// GetOrDefault returns defaultValue when no resolver knows key.
	GetOrDefault(key, defaultValue string) string
	// Lookup converts the value for key to kind. It never returns an error:
	// absence and conversion failures both yield ok == false.
	Lookup(key string, kind convert.Kind) (any, bool)
	LookupInt(key string) (int, bool)
	LookupBool(key string) (bool, bool)
	LookupFloat(key string) (float64, bool)
	LookupDuration(key string) (time.Duration, bool)

	// Reload re-reads the backing file. On failure the previous values stay in place.
	Reload() error
	// Update writes set and removes unset in the backing file, then reloads.
	Update(set map[string]string, unset []string) error
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithDirectory sets the directory the file identifier is resolved against.
func WithDirectory(dir string) Option {
	return func(s *FileSource) { s.directory = dir }
}

// WithFormat selects the file syntax. Defaults to Dotenv.
func WithFormat(f Format) Option {
	return func(s *FileSource) { s.format = f }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *logging.Logger) Option {
	return func(s *FileSource) { s.logger = l }
}

// WithEnvLookup replaces os.LookupEnv for the process environment resolver.
func WithEnvLookup(fn LookupFunc) Option {
	return func(s *FileSource) { s.envLookup = fn }
}

// WithOverrides inserts resolvers between the process environment and the file.
func WithOverrides(rs ...Resolver) Option {
	return func(s *FileSource) { s.overrides = append(s.overrides, rs...) }
}

// FileSource is a Source backed by one file on disk.
type FileSource struct {
	displayName    string
	fileIdentifier string
	directory      string
	path           string
	format         Format
	logger         *logging.Logger
	envLookup      LookupFunc
	overrides      []Resolver
	resolvers      []Resolver

	mu     sync.RWMutex
	values map[string]string

	// writeMu serializes Update so read-modify-write cycles in this process do not interleave.
	writeMu sync.Mutex
}

// Open loads fileIdentifier from the configured directory. A load failure
// is returned as a *ConfigurationError; no partially loaded source is returned.
func Open(displayName, fileIdentifier string, opts ...Option) (*FileSource, error) {
	s := &FileSource{
		displayName:    displayName,
		fileIdentifier: fileIdentifier,
		format:         Dotenv,
	}
	for _, opt := range opts {
		opt(s)
	}

	if displayName == "" {
		return nil, dserrors.Report(s.logger, "load", fileIdentifier,
			dserrors.InvalidArgument("displayName", "must not be empty"))
	}
	if fileIdentifier == "" {
		return nil, dserrors.Report(s.logger, "load", displayName,
			dserrors.InvalidArgument("fileIdentifier", "must not be empty"))
	}

	s.path = filepath.Join(s.directory, fileIdentifier)
	s.resolvers = append([]Resolver{ProcessEnv(s.envLookup)}, s.overrides...)
	s.resolvers = append(s.resolvers, fileResolver{src: s})

	values, err := s.read()
	if err != nil {
		s.logger.Error("Failed to load %s file '%s' for configuration '%s'", s.format.Name(), s.path, displayName)
		return nil, dserrors.Report(s.logger, "load", s.key(), &dserrors.ConfigurationError{Op: "load", Key: s.key(), Err: err})
	}
	s.values = values
	s.logger.Debug("Loaded %d variables from %s", len(values), s.path)
	return s, nil
}

// OpenEnvironment opens a dotenv file from dir.
func OpenEnvironment(displayName, fileIdentifier, dir string, logger *logging.Logger, opts ...Option) (*FileSource, error) {
	base := []Option{WithDirectory(dir), WithFormat(Dotenv), WithLogger(logger)}
	return Open(displayName, fileIdentifier, append(base, opts...)...)
}

// OpenProperties opens a .properties file from dir.
func OpenProperties(displayName, fileIdentifier, dir string, logger *logging.Logger, opts ...Option) (*FileSource, error) {
	base := []Option{WithDirectory(dir), WithFormat(Properties), WithLogger(logger)}
	return Open(displayName, fileIdentifier, append(base, opts...)...)
}

// DisplayName, FileIdentifier and Path describe where the source was loaded from.
func (s *FileSource) DisplayName() string    { return s.displayName }
func (s *FileSource) FileIdentifier() string { return s.fileIdentifier }
func (s *FileSource) Path() string           { return s.path }

func (s *FileSource) key() string {
	return s.displayName + ":" + s.fileIdentifier
}

// Keys returns the keys present in the file, sorted.
func (s *FileSource) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *FileSource) read() (map[string]string, error) {
	start := time.Now()
	values, err := s.format.Read(s.path)
	metrics.RecordSourceLoad(s.format.Name(), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

// resolve walks the resolver chain and reports which resolver answered.
func (s *FileSource) resolve(key string) (string, string, bool) {
	for _, r := range s.resolvers {
		if v, ok := r.Resolve(key); ok {
			return v, r.Name(), true
		}
	}
	return "", "", false
}

// Get returns the first non-empty value for key along the resolver chain.
func (s *FileSource) Get(key string) (string, error) {
	value, origin, ok := s.resolve(key)
	if !ok {
		return "", dserrors.Report(s.logger, "getProperty", s.key(), dserrors.MissingKey(s.displayName, key))
	}
	s.logger.Debug("Resolved '%s' from %s: %s", key, origin, logging.Secret(value))
	return value, nil
}

// GetOrDefault returns defaultValue, with a warning, when key is not set anywhere.
func (s *FileSource) GetOrDefault(key, defaultValue string) string {
	value, origin, ok := s.resolve(key)
	if !ok {
		s.logger.Warn("Variable '%s' not found, using default '%s' in configuration '%s'", key, defaultValue, s.displayName)
		return defaultValue
	}
	s.logger.Info("Retrieved variable '%s' from %s in configuration '%s'", key, origin, s.displayName)
	return value
}

// Lookup converts the value for key to kind; ok is false if it is missing or does not convert.
func (s *FileSource) Lookup(key string, kind convert.Kind) (any, bool) {
	raw, _, ok := s.resolve(key)
	if !ok {
		s.logger.Warn("Variable '%s' not found in configuration '%s'", key, s.displayName)
		return nil, false
	}
	v, err := convert.Convert(raw, kind)
	if err != nil {
		// err quotes the raw value, which may be sensitive.
		s.logger.Warn("Variable '%s' in configuration '%s' is not a valid %s", key, s.displayName, kind)
		return nil, false
	}
	s.logger.Debug("Retrieved and converted variable '%s' to %s", key, kind)
	return v, true
}

// LookupInt is Lookup for convert.Int.
func (s *FileSource) LookupInt(key string) (int, bool) {
	v, ok := s.Lookup(key, convert.Int)
	if !ok {
		return 0, false
	}
	return v.(int), true
}

// LookupBool is Lookup for convert.Bool.
func (s *FileSource) LookupBool(key string) (bool, bool) {
	v, ok := s.Lookup(key, convert.Bool)
	if !ok {
		return false, false
	}
	return v.(bool), true
}

// LookupFloat is Lookup for convert.Float.
func (s *FileSource) LookupFloat(key string) (float64, bool) {
	v, ok := s.Lookup(key, convert.Float)
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

// LookupDuration is Lookup for convert.Duration.
func (s *FileSource) LookupDuration(key string) (time.Duration, bool) {
	v, ok := s.Lookup(key, convert.Duration)
	if !ok {
		return 0, false
	}
	return v.(time.Duration), true
}

// Reload re-reads the file and swaps in its values only if the read succeeds.
func (s *FileSource) Reload() error {
	values, err := s.read()
	if err != nil {
		return dserrors.Report(s.logger, "reload", s.key(), &dserrors.ConfigurationError{Op: "reload", Key: s.key(), Err: err})
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()

	s.logger.Info("Configuration '%s' reloaded successfully", s.displayName)
	return nil
}

// Update rewrites the file with set applied and unset removed, then reloads it.
func (s *FileSource) Update(set map[string]string, unset []string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.format.Update(s.path, set, unset); err != nil {
		return dserrors.Report(s.logger, "update", s.key(),
			&dserrors.ConfigurationError{Op: "update", Key: s.key(), Err: fmt.Errorf("failed to write %s: %w", s.path, err)})
	}
	return s.Reload()
}
