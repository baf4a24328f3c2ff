package codec

import (
	"reflect"
	"strings"
	"testing"
)

type settings struct {
	Count   int               `json:"count"`
	Theme   string            `json:"theme"`
	Enabled bool              `json:"enabled"`
	Labels  map[string]string `json:"labels,omitempty"`
}

func TestCodecsRoundTripRecords(t *testing.T) {
	value := settings{Count: 5, Theme: "dark", Enabled: true, Labels: map[string]string{"env": "dev"}}

	for _, c := range []Codec{JSON(), YAML(), TOML()} {
		c := c
		t.Run(c.Name, func(t *testing.T) {
			raw, err := Serializer[settings](c)(value)
			if err != nil {
				t.Fatalf("serialize: %v", err)
			}
			got, err := Deserializer[settings](c)(raw)
			if err != nil {
				t.Fatalf("deserialize %q: %v", raw, err)
			}
			if !reflect.DeepEqual(value, got) {
				t.Fatalf("round trip mismatch:\nwant: %#v\n got: %#v", value, got)
			}
		})
	}
}

func TestYAMLUsesJSONFieldNames(t *testing.T) {
	raw, err := Serializer[settings](YAML())(settings{Count: 2})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.Contains(raw, "count: 2") {
		t.Fatalf("expected json tag names in yaml output, got %q", raw)
	}
}

func TestTOMLRejectsScalars(t *testing.T) {
	if _, err := Serializer[int](TOML())(5); err == nil {
		t.Fatalf("expected toml to reject a scalar document")
	}
}

func TestJSONScalar(t *testing.T) {
	raw, err := Serializer[int](JSON())(5)
	if err != nil || raw != "5" {
		t.Fatalf("unexpected json output %q err=%v", raw, err)
	}
	got, err := Deserializer[int](JSON())("7")
	if err != nil || got != 7 {
		t.Fatalf("unexpected json decode %d err=%v", got, err)
	}
}

func TestByName(t *testing.T) {
	for name, want := range map[string]string{"": "json", "JSON": "json", "yml": "yaml", "toml": "toml"} {
		c, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if c.Name != want {
			t.Fatalf("ByName(%q) = %q, want %q", name, c.Name, want)
		}
	}
	if _, err := ByName("xml"); err == nil {
		t.Fatalf("expected unknown codec error")
	}
}
