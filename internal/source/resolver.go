package source

import "os"

// Resolver answers a configuration key from one place. Sources consult their
// resolvers in order and the first answer wins.
type Resolver interface {
	Name() string
	Resolve(key string) (string, bool)
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type processEnvResolver struct {
	lookup LookupFunc
}

// ProcessEnv resolves keys from the real process environment. Variables that
// are set but empty do not count as an answer.
func ProcessEnv(lookup LookupFunc) Resolver {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return processEnvResolver{lookup: lookup}
}

func (r processEnvResolver) Name() string { return "system environment variable" }

func (r processEnvResolver) Resolve(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// MapResolver resolves keys from a fixed map. Mostly useful for overrides in tests.
type MapResolver struct {
	Label  string
	Values map[string]string
}

func (r MapResolver) Name() string { return r.Label }

func (r MapResolver) Resolve(key string) (string, bool) {
	v, ok := r.Values[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// fileResolver reads the source's current in-memory mapping.
type fileResolver struct {
	src *FileSource
}

func (r fileResolver) Name() string { return "file " + r.src.path }

func (r fileResolver) Resolve(key string) (string, bool) {
	r.src.mu.RLock()
	v, ok := r.src.values[key]
	r.src.mu.RUnlock()
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
