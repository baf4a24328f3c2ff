// Package codec provides the textual encodings a store can persist its value
// with. Every codec agrees on one document layout: values are first projected
// through encoding/json, so json struct tags decide field names for YAML and
// TOML records too.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-store/internal/hydrate"
)

// Codec marshals generic documents to text and back.
type Codec struct {
	Name      string
	Marshal   func(document any) ([]byte, error)
	Unmarshal func(data []byte, document *any) error
}

// JSON returns the default codec.
func JSON() Codec {
	return Codec{
		Name:    "json",
		Marshal: json.Marshal,
		Unmarshal: func(data []byte, document *any) error {
			return json.Unmarshal(data, document)
		},
	}
}

// YAML returns a codec backed by gopkg.in/yaml.v3.
func YAML() Codec {
	return Codec{
		Name:    "yaml",
		Marshal: yaml.Marshal,
		Unmarshal: func(data []byte, document *any) error {
			return yaml.Unmarshal(data, document)
		},
	}
}

// TOML returns a codec backed by github.com/BurntSushi/toml. TOML documents
// must be tables, so only record shaped values can be encoded.
func TOML() Codec {
	return Codec{
		Name: "toml",
		Marshal: func(document any) ([]byte, error) {
			if _, ok := document.(map[string]any); !ok {
				return nil, fmt.Errorf("codec: toml requires a table, got %T", document)
			}
			var buf bytes.Buffer
			if err := toml.NewEncoder(&buf).Encode(document); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		Unmarshal: func(data []byte, document *any) error {
			var table map[string]any
			if _, err := toml.Decode(string(data), &table); err != nil {
				return err
			}
			*document = table
			return nil
		},
	}
}

// ByName resolves a codec from its name. An empty name selects JSON.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON(), nil
	case "yaml", "yml":
		return YAML(), nil
	case "toml":
		return TOML(), nil
	default:
		return Codec{}, fmt.Errorf("codec: unknown codec %q", name)
	}
}

// Serializer adapts c into a serializer for values of T.
func Serializer[T any](c Codec) func(T) (string, error) {
	return func(value T) (string, error) {
		if c.Name == "json" || c.Name == "" {
			raw, err := json.Marshal(value)
			if err != nil {
				return "", err
			}
			return string(raw), nil
		}
		document, err := project(value)
		if err != nil {
			return "", fmt.Errorf("codec: %s project: %w", c.Name, err)
		}
		raw, err := c.Marshal(document)
		if err != nil {
			return "", fmt.Errorf("codec: %s marshal: %w", c.Name, err)
		}
		return string(raw), nil
	}
}

// Deserializer adapts c into a deserializer producing values of T.
func Deserializer[T any](c Codec) func(string) (T, error) {
	decoder := hydrate.NewDecoder[T]()
	return func(raw string) (T, error) {
		var zero T
		if c.Name == "json" || c.Name == "" {
			var value T
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				return zero, err
			}
			return value, nil
		}
		var document any
		if err := c.Unmarshal([]byte(raw), &document); err != nil {
			return zero, fmt.Errorf("codec: %s unmarshal: %w", c.Name, err)
		}
		return decoder.Decode(hydrate.Context{Codec: c.Name}, document)
	}
}

func project(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, err
	}
	return document, nil
}
