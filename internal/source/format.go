package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-envparse"
	"github.com/magiconair/properties"

	dserrors "github.com/systmms/envvault/internal/errors"
)

// Format reads and rewrites one on-disk configuration syntax.
type Format interface {
	Name() string
	Read(path string) (map[string]string, error)
	// Update rewrites path with the keys in set added or replaced and the
	// keys in unset removed. Keys not mentioned are preserved.
	Update(path string, set map[string]string, unset []string) error
}

var (
	// Dotenv is the KEY=value format used for environment files.
	Dotenv Format = dotenvFormat{}
	// Properties is the Java .properties format.
	Properties Format = propertiesFormat{}
)

type dotenvFormat struct{}

func (dotenvFormat) Name() string { return "dotenv" }

// Read parses path without variable expansion, so a '$' in a value is kept
// as written.
func (dotenvFormat) Read(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values, err := envparse.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return values, nil
}

// Update edits path line by line. Lines for keys not in set or unset are
// written back unchanged, comments included. Replaced keys keep their
// position and new keys are appended in sorted order.
func (f dotenvFormat) Update(path string, set map[string]string, unset []string) error {
	for key := range set {
		if !validDotenvKey(key) {
			return dserrors.InvalidArgument("key", "%q is not a valid dotenv variable name", key)
		}
	}
	// Refuse to rewrite a file that does not parse.
	if _, err := f.Read(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(unset))
	for _, key := range unset {
		drop[key] = true
	}
	written := make(map[string]bool, len(set))

	var b strings.Builder
	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	for _, line := range strings.SplitAfter(content, "\n") {
		if line == "" {
			continue
		}
		key, ok := dotenvLineKey(line)
		if ok {
			if value, found := set[key]; found {
				if !written[key] {
					b.WriteString(formatDotenvEntry(key, value))
					written[key] = true
				}
				continue
			}
			if drop[key] {
				continue
			}
		}
		b.WriteString(line)
	}

	added := make([]string, 0, len(set))
	for key := range set {
		if !written[key] {
			added = append(added, key)
		}
	}
	sort.Strings(added)
	for _, key := range added {
		b.WriteString(formatDotenvEntry(key, set[key]))
	}

	return writeFileAtomic(path, []byte(b.String()))
}

// dotenvLineKey returns the key assigned on line, if any.
func dotenvLineKey(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "#") {
		return "", false
	}
	if rest := strings.TrimPrefix(s, "export"); rest != s && (strings.HasPrefix(rest, " ") || strings.HasPrefix(rest, "\t")) {
		s = strings.TrimSpace(rest)
	}
	i := strings.IndexByte(s, '=')
	if i <= 0 {
		return "", false
	}
	return strings.TrimSpace(s[:i]), true
}

func validDotenvKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

var dotenvEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// formatDotenvEntry renders one KEY=value line. Values made only of
// characters that need no quoting are written bare; anything else is
// double quoted with JSON-style escapes.
func formatDotenvEntry(key, value string) string {
	if value != "" && strings.IndexFunc(value, needsQuoting) < 0 {
		return key + "=" + value + "\n"
	}
	return key + `="` + dotenvEscaper.Replace(value) + "\"\n"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("_-+=/.:@,%", r)
}

type propertiesFormat struct{}

func (propertiesFormat) Name() string { return "properties" }

func (propertiesFormat) load(path string) (*properties.Properties, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	return loader.LoadFile(path)
}

func (f propertiesFormat) Read(path string) (map[string]string, error) {
	p, err := f.load(path)
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}

func (f propertiesFormat) Update(path string, set map[string]string, unset []string) error {
	p, err := f.load(path)
	if err != nil {
		return err
	}
	for _, key := range unset {
		p.Delete(key)
	}

	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, _, err := p.Set(key, set[key]); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".envvault-*")
	if err != nil {
		return err
	}
	if _, err := p.Write(tmp, properties.UTF8); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	return commitTemp(tmp, path)
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory, keeping the original file mode.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".envvault-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	return commitTemp(tmp, path)
}

func commitTemp(tmp *os.File, path string) error {
	mode := os.FileMode(0600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
