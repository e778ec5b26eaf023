package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/catset/pkg/core"
)

// Serializer defines how to read and write a document file format.
type Serializer interface {
	// Parse reads a document's field mapping from r.
	Parse(r io.Reader) (core.Data, error)
	// Serialize converts the field mapping to bytes.
	Serialize(data core.Data) ([]byte, error)
}

// DefaultSerializers returns the supported formats keyed by file extension.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".json": NewJSONSerializer(),
		".yaml": NewYAMLSerializer(),
		".yml":  NewYAMLSerializer(),
	}
}

// --- JSON Serializer ---

// JSONSerializer handles reading and writing JSON files.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

func (s *JSONSerializer) Parse(r io.Reader) (core.Data, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return core.Data{}, nil
	}

	var payload core.Data
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if payload == nil {
		payload = core.Data{}
	}
	return payload, nil
}

// Serialize writes indented JSON so that git diffs stay one entry field per line.
func (s *JSONSerializer) Serialize(data core.Data) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- YAML Serializer ---

type YAMLSerializer struct{}

// NewYAMLSerializer creates a new YAML serializer.
func NewYAMLSerializer() *YAMLSerializer {
	return &YAMLSerializer{}
}

func (s *YAMLSerializer) Parse(r io.Reader) (core.Data, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := yaml.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return core.Data(payload), nil
}

func (s *YAMLSerializer) Serialize(data core.Data) ([]byte, error) {
	return yaml.Marshal(map[string]interface{}(data))
}
