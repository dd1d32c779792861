// Package convert turns raw configuration strings into typed values.
//
// The set of supported kinds is closed: each Kind has exactly one parse
// function in the dispatch table, and anything outside the table is rejected
// with ErrUnsupportedConversion.
package convert

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	dserrors "github.com/systmms/envvault/internal/errors"
)

// Kind identifies a conversion target.
type Kind int

const (
	String Kind = iota + 1
	Int
	Int64
	Float
	Bool
	Duration
)

var kindNames = map[Kind]string{
	String:   "string",
	Int:      "int",
	Int64:    "int64",
	Float:    "float",
	Bool:     "bool",
	Duration: "duration",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type parseFunc func(raw string) (any, error)

var parsers = map[Kind]parseFunc{
	String:   func(raw string) (any, error) { return raw, nil },
	Int:      parseInt,
	Int64:    parseInt64,
	Float:    parseFloat,
	Bool:     parseBool,
	Duration: parseDuration,
}

// Convert parses raw as kind. The returned value has the Go type matching
// the kind: string, int, int64, float64, bool or time.Duration.
func Convert(raw string, kind Kind) (any, error) {
	parse, ok := parsers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dserrors.ErrUnsupportedConversion, kind)
	}
	v, err := parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot convert %q to %s: %v", dserrors.ErrMalformedValue, raw, kind, err)
	}
	return v, nil
}

// ParseKind maps a user-facing type name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "str":
		return String, nil
	case "int", "integer":
		return Int, nil
	case "int64", "long":
		return Int64, nil
	case "float", "float64", "decimal", "double":
		return Float, nil
	case "bool", "boolean":
		return Bool, nil
	case "duration":
		return Duration, nil
	default:
		return 0, fmt.Errorf("%w: unknown type %q", dserrors.ErrUnsupportedConversion, name)
	}
}

func parseInt(raw string) (any, error) {
	return strconv.Atoi(strings.TrimSpace(raw))
}

func parseInt64(raw string) (any, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func parseFloat(raw string) (any, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

func parseBool(raw string) (any, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func parseDuration(raw string) (any, error) {
	return time.ParseDuration(strings.TrimSpace(raw))
}
