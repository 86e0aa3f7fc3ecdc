package decode

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Options customises DecodeMap behaviour.
type Options struct {
	// WeaklyTypedInput enables lenient coercion ("123" -> int, 1.0 -> int64).
	// Frame payloads arrive from JSON, where every number is a float64, so
	// this defaults to on.
	WeaklyTypedInput bool
}

func DefaultOptions() Options {
	return Options{WeaklyTypedInput: true}
}

// DecodeMap decodes a generic payload map into a typed struct T.
// Struct fields are matched by their `json` tags, so the same structs can be
// marshalled back out over the wire.
func DecodeMap[T any](m map[string]any, opts ...Options) (*T, error) {
	if m == nil {
		return nil, fmt.Errorf("payload map is nil")
	}

	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	decCfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
	}
	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}
