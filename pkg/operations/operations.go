// Package operations parses the operations suffix of an image request path.
//
// The suffix is a comma-joined list of key=value tokens, for example
// "width=500,format=webp,quality=60". Only width, height, format and quality
// are recognized; everything else is ignored. Parsing never fails.
package operations

import (
	"strings"
)

// Recognized operation names.
const (
	Width   = "width"
	Height  = "height"
	Format  = "format"
	Quality = "quality"
)

var recognized = map[string]struct{}{
	Width:   {},
	Height:  {},
	Format:  {},
	Quality: {},
}

// Value is an optional operation value. A token without "=" produces a
// Value with Present set to false.
type Value struct {
	Raw     string
	Present bool
}

// Set is the immutable result of parsing an operations suffix.
type Set struct {
	raw    string
	values map[string]Value
}

// Parse splits raw on "," and every token on its first "=". Later tokens
// override earlier ones with the same key.
func Parse(raw string) Set {
	set := Set{raw: raw, values: make(map[string]Value)}
	if raw == "" {
		return set
	}
	for _, token := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(token, "=")
		if _, ok := recognized[key]; !ok {
			continue
		}
		set.values[key] = Value{Raw: value, Present: found}
	}
	return set
}

// Raw returns the operations suffix exactly as it appeared in the path.
func (s Set) Raw() string {
	return s.raw
}

// Lookup returns the stored value for name, including value-less tokens.
func (s Set) Lookup(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Get returns the value of name when it is set to a non-empty string.
// Absent keys, value-less tokens and empty values all report false.
func (s Set) Get(name string) (string, bool) {
	v, ok := s.values[name]
	if !ok || !v.Present || v.Raw == "" {
		return "", false
	}
	return v.Raw, true
}

// Int returns name parsed as a positive integer. Non-numeric, zero and
// negative values are treated as unset.
func (s Set) Int(name string) (int, bool) {
	raw, ok := s.Get(name)
	if !ok {
		return 0, false
	}
	n, ok := leadingInt(raw)
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

// Width returns the requested output width.
func (s Set) Width() (int, bool) { return s.Int(Width) }

// Height returns the requested output height.
func (s Set) Height() (int, bool) { return s.Int(Height) }

// Quality returns the requested encoder quality.
func (s Set) Quality() (int, bool) { return s.Int(Quality) }

// Format returns the requested output format name.
func (s Set) Format() (string, bool) { return s.Get(Format) }

// Len reports the number of recognized keys, including value-less ones.
func (s Set) Len() int {
	return len(s.values)
}

// Query converts the raw suffix into a query string ("," becomes "&").
func (s Set) Query() string {
	return strings.ReplaceAll(s.raw, ",", "&")
}

// leadingInt parses the longest leading run of decimal digits, after
// optional surrounding whitespace and sign, so "100px" reads as 100.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n > (1<<31)/10 {
			return 0, false
		}
		n = n*10 + int(r-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
