package bootstrap

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/grovetools/exports/errors"
	"gopkg.in/yaml.v3"
)

// ReadFile reads descriptors from a JSON or YAML file.
func ReadFile(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, fmt.Sprintf("failed to read %s", path))
	}
	return Parse(data)
}

// Read reads descriptors from r.
func Read(r io.Reader) ([]map[string]interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read descriptors")
	}
	return Parse(data)
}

// Parse accepts a bare descriptor list or a document with an "exports" list.
// JSON is read as YAML.
func Parse(data []byte) ([]map[string]interface{}, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to parse descriptors")
	}

	if m, ok := doc.(map[string]interface{}); ok {
		doc = m["exports"]
	}
	list, ok := doc.([]interface{})
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "descriptors must be a list or an object with an exports list")
	}

	out := make([]map[string]interface{}, 0, len(list))
	for i, item := range list {
		m, ok := normalizeValue(item).(map[string]interface{})
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("descriptor #%d is not an object", i))
		}
		out = append(out, m)
	}
	return out, nil
}
