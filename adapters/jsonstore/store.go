package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"qaebench/domain/estimation"
	"qaebench/ports"
)

// FormatName and FormatVersion identify registry documents.
const (
	FormatName    = "qaebench.registry"
	FormatVersion = 1
)

type curveBody struct {
	X      []float64 `json:"x"`
	Errors []float64 `json:"errors"`
	Bounds []float64 `json:"bounds,omitempty"`
	Stds   []float64 `json:"stds,omitempty"`
}

// Marshal encodes reg as a JSON document whose "curves" object lists the
// labels in registry order.
func Marshal(reg estimation.Registry) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "{\n  \"format\": %q,\n  \"version\": %d,\n  \"curves\": {", FormatName, FormatVersion)
	for i, c := range reg.Curves() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Label)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(curveBody{X: c.X, Errors: c.Errors, Bounds: c.Bounds, Stds: c.Stds})
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", c.Label, err)
		}
		buf.WriteString("\n    ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(body)
	}
	if reg.Len() > 0 {
		buf.WriteString("\n  ")
	}
	buf.WriteString("}\n}\n")
	return buf.Bytes(), nil
}

// Unmarshal decodes a document produced by Marshal. Curve order follows
// the document.
func Unmarshal(data []byte) (estimation.Registry, error) {
	if !gjson.ValidBytes(data) {
		return estimation.Registry{}, fmt.Errorf("registry document is not valid JSON")
	}
	if format := gjson.GetBytes(data, "format"); format.Exists() && format.String() != FormatName {
		return estimation.Registry{}, fmt.Errorf("unexpected document format %q", format.String())
	}
	if version := gjson.GetBytes(data, "version"); version.Exists() && version.Int() > FormatVersion {
		return estimation.Registry{}, fmt.Errorf("unsupported registry version %d", version.Int())
	}

	curves := gjson.GetBytes(data, "curves")
	if !curves.IsObject() {
		return estimation.Registry{}, fmt.Errorf("registry document has no curves object")
	}

	reg := estimation.NewRegistry()
	var decodeErr error
	curves.ForEach(func(key, value gjson.Result) bool {
		var body curveBody
		if err := json.Unmarshal([]byte(value.Raw), &body); err != nil {
			decodeErr = fmt.Errorf("decoding %q: %w", key.String(), err)
			return false
		}
		c := estimation.Curve{Label: key.String(), X: body.X, Errors: body.Errors, Bounds: body.Bounds, Stds: body.Stds}
		if c.X == nil {
			c.X = []float64{}
		}
		if c.Errors == nil {
			c.Errors = []float64{}
		}
		next, err := reg.AddCurve(c)
		if err != nil {
			decodeErr = err
			return false
		}
		reg = next
		return true
	})
	if decodeErr != nil {
		return estimation.Registry{}, decodeErr
	}
	return reg, nil
}

// Store is a file-backed RegistryStore using the JSON document format.
type Store struct{}

// NewStore creates a JSON registry store.
func NewStore() ports.RegistryStore {
	return Store{}
}

// Save writes reg to path through a temporary file in the same directory.
func (Store) Save(ctx context.Context, path string, reg estimation.Registry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(reg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".registry-*.json")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a registry document from path.
func (Store) Load(ctx context.Context, path string) (estimation.Registry, error) {
	if err := ctx.Err(); err != nil {
		return estimation.Registry{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return estimation.Registry{}, err
	}
	reg, err := Unmarshal(data)
	if err != nil {
		return estimation.Registry{}, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}
