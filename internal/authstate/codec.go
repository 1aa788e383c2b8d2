// Package authstate persists the transport's credential bundle and signal
// key material in a keyed blob store, surviving process restarts. Records
// are JSON documents with a reversible tagged encoding for binary leaves:
// cryptographic key bytes must round-trip exactly, and a naive JSON pass
// would silently flatten them into untyped strings.
package authstate

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const bytesTag = "$bytes"

// Binary is a byte sequence that serializes as a tagged base64 object
// ({"$bytes": "..."}) instead of a bare string, so generic decoding can
// restore it as bytes rather than text.
type Binary []byte

func (b Binary) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		bytesTag: base64.StdEncoding.EncodeToString(b),
	})
}

func (b *Binary) UnmarshalJSON(data []byte) error {
	var tagged map[string]string
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("binary leaf: %w", err)
	}
	enc, ok := tagged[bytesTag]
	if !ok {
		return fmt.Errorf("binary leaf: missing %s tag", bytesTag)
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return fmt.Errorf("binary leaf: %w", err)
	}
	*b = raw
	return nil
}

// Marshal encodes a value for storage, tagging every binary leaf. Struct
// values declare their byte fields as Binary; generic trees
// (map[string]any, []any) may embed []byte at arbitrary depth.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(tag(v))
}

// Unmarshal decodes a stored record into a typed value.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Decode decodes a stored record into a generic tree, restoring tagged
// binary leaves as Binary values.
func Decode(data []byte) (any, error) {
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return untag(tree), nil
}

func tag(v any) any {
	switch val := v.(type) {
	case Binary:
		return val
	case []byte:
		return Binary(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = tag(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = tag(item)
		}
		return out
	default:
		return v
	}
}

func untag(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if enc, ok := val[bytesTag].(string); ok && len(val) == 1 {
			if raw, err := base64.StdEncoding.DecodeString(enc); err == nil {
				return Binary(raw)
			}
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = untag(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = untag(item)
		}
		return out
	default:
		return v
	}
}
