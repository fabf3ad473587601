// Package config loads triage settings from files and the environment.
//
// Config is a thin map wrapper with forgiving typed accessors, used for
// ad-hoc sections. AppConfig is the typed settings tree of the service,
// built by Load from defaults, an optional YAML/JSON file, a .env file and
// TRIAGE_* environment variables, in that order.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config is a read-only view over decoded configuration data. Accessors
// never fail: a missing or unconvertible value yields the caller's default.
type Config struct {
	data map[string]any
}

// New wraps data. Nil becomes an empty map.
func New(data map[string]any) Config {
	if data == nil {
		data = map[string]any{}
	}
	return Config{data: data}
}

// number widens the numeric types YAML and JSON decoders produce.
func (c Config) number(key string) (float64, bool) {
	switch v := c.data[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func (c Config) String(key, def string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return def
}

func (c Config) Bool(key string, def bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return def
}

// Int rejects floats with a fractional part.
func (c Config) Int(key string, def int) int {
	n, ok := c.number(key)
	if !ok || n != math.Trunc(n) {
		return def
	}
	return int(n)
}

func (c Config) Float(key string, def float64) float64 {
	if n, ok := c.number(key); ok {
		return n
	}
	return def
}

// Duration accepts Go duration strings ("30s") and bare numbers of seconds.
func (c Config) Duration(key string, def time.Duration) time.Duration {
	if s, ok := c.data[key].(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		return def
	}
	if n, ok := c.number(key); ok {
		return time.Duration(n * float64(time.Second))
	}
	return def
}

// StringSlice returns def unless every element is a string.
func (c Config) StringSlice(key string, def []string) []string {
	switch v := c.data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return def
			}
			out[i] = s
		}
		return out
	}
	return def
}

// Sub returns the nested section at key, empty when absent.
func (c Config) Sub(key string) Config {
	m, _ := c.data[key].(map[string]any)
	return New(m)
}

func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Raw exposes the underlying map. Callers must not modify it.
func (c Config) Raw() map[string]any { return c.data }

// Decode copies the config into out, a pointer to a struct tagged with
// `mapstructure`. Fields absent from the config keep their current values.
// Strings such as "30s" decode into time.Duration fields.
func (c Config) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(c.data); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
