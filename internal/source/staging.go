package source

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// WriteJSON stages v as indented UTF-8 JSON under dir/name.
func WriteJSON(dir, name string, v any) (Payload, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return Payload{}, eris.Wrapf(err, "encode %s", name)
	}
	path, err := writeStaged(dir, name, buf.Bytes())
	if err != nil {
		return Payload{}, err
	}
	return Payload{Path: path, Format: FormatJSON}, nil
}

// WriteRaw stages body unchanged.
func WriteRaw(dir, name string, format Format, body []byte) (Payload, error) {
	path, err := writeStaged(dir, name, body)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Path: path, Format: format}, nil
}

// ReadJSON decodes a staged JSON payload into v.
func ReadJSON(p Payload, v any) error {
	b, err := os.ReadFile(p.Path)
	if err != nil {
		return eris.Wrap(err, "read staged payload")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return eris.Wrapf(err, "decode %s", filepath.Base(p.Path))
	}
	return nil
}

func writeStaged(dir, name string, body []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "create staging dir")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", eris.Wrapf(err, "write %s", name)
	}
	return path, nil
}
