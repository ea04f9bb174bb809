// Package directive parses the argument text of //instrument: comments.
//
// A directive consists of space-separated arguments: an optional leading log
// level (DEBUG, INFO, WARN or ERROR) followed by key=value pairs. Values may
// be double-quoted Go string literals when they contain spaces.
//
//	//instrument:INFO
//	//instrument:INFO ctx=payments
//	//instrument:ok=DEBUG err=ERROR fmt="charge() -> %v"
package directive

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Prefix marks an instrument directive in a function's doc comment.
const Prefix = "//instrument:"

// ErrEmpty is returned when a directive carries no arguments at all.
var ErrEmpty = errors.New("empty directive: at least one argument is required")

// Options holds the parsed directive arguments for one function.
// Level fields are nil when the corresponding path should not log.
type Options struct {
	OKLevel  *slog.Level
	ErrLevel *slog.Level
	Format   string // message template; empty means the caller's default
	Context  string // ctx label value; defaults to "default"
}

// Parse parses the argument text following the //instrument: prefix.
//
// The first argument may be a bare log level, which applies to both the
// success and failure paths unless overridden by ok= or err=. Recognized
// keys are ok, err, fmt and ctx; anything else is an error. An empty
// argument list is an error, so a directive can never silently mean
// "instrument with all defaults by accident".
func Parse(args string) (Options, error) {
	tokens, err := tokenize(args)
	if err != nil {
		return Options{}, err
	}
	if len(tokens) == 0 {
		return Options{}, ErrEmpty
	}

	opts := Options{Context: "default"}
	var leading *slog.Level
	seen := make(map[string]bool)

	for i, tok := range tokens {
		key, rawValue, found := strings.Cut(tok, "=")
		if !found {
			if i != 0 {
				return Options{}, fmt.Errorf("unexpected argument %q: a bare log level is only recognized as the first argument", tok)
			}
			level, err := ParseLevel(tok)
			if err != nil {
				return Options{}, err
			}
			leading = &level
			continue
		}
		if key == "" {
			return Options{}, fmt.Errorf("malformed argument %q: missing key", tok)
		}
		if seen[key] {
			return Options{}, fmt.Errorf("duplicate option %q", key)
		}
		seen[key] = true

		value, err := unquote(rawValue)
		if err != nil {
			return Options{}, fmt.Errorf("option %q: %w", key, err)
		}
		if value == "" {
			return Options{}, fmt.Errorf("option %q has an empty value", key)
		}

		switch key {
		case "ok":
			level, err := ParseLevel(value)
			if err != nil {
				return Options{}, fmt.Errorf("option %q: %w", key, err)
			}
			opts.OKLevel = &level
		case "err":
			level, err := ParseLevel(value)
			if err != nil {
				return Options{}, fmt.Errorf("option %q: %w", key, err)
			}
			opts.ErrLevel = &level
		case "fmt":
			opts.Format = value
		case "ctx":
			opts.Context = value
		default:
			return Options{}, fmt.Errorf("unknown option %q (recognized: ok, err, fmt, ctx)", key)
		}
	}

	if opts.OKLevel == nil {
		opts.OKLevel = leading
	}
	if opts.ErrLevel == nil {
		opts.ErrLevel = leading
	}
	return opts, nil
}

// ParseLevel maps a directive level name to its slog level.
// Names are case-insensitive; the recognized set is DEBUG, INFO, WARN, ERROR.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (recognized: DEBUG, INFO, WARN, ERROR)", name)
	}
}

// tokenize splits the argument text on spaces and tabs, keeping
// double-quoted sections (including their quotes) inside a single token.
func tokenize(s string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		quoted  bool
		escaped bool
	)
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
			current.WriteRune(r)
		case r == '\\' && quoted:
			escaped = true
			current.WriteRune(r)
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case (r == ' ' || r == '\t') && !quoted:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	if quoted {
		return nil, errors.New("unterminated quoted value")
	}
	flush()
	return tokens, nil
}

// unquote resolves a possibly double-quoted value to its literal text.
func unquote(s string) (string, error) {
	if !strings.HasPrefix(s, `"`) {
		return s, nil
	}
	v, err := strconv.Unquote(s)
	if err != nil {
		return "", fmt.Errorf("invalid quoted value %s", s)
	}
	return v, nil
}
