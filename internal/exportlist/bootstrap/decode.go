// Package bootstrap turns the server-rendered export descriptors into store
// records and keeps the store in step with a descriptor file.
package bootstrap

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/pkg/models"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
)

const emailedExportKey = "emailedExport"

// Decode converts loosely typed descriptors into records, in input order.
// Absent flags default to false. A descriptor without an id is skipped, a
// malformed emailedExport leaves the record without task state, and a repeated
// id fails the whole load.
func Decode(descriptors []map[string]interface{}, logger *logrus.Entry) ([]models.ExportRecord, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	records := make([]models.ExportRecord, 0, len(descriptors))
	seen := make(map[string]struct{}, len(descriptors))
	for i, raw := range descriptors {
		desc := normalizeKeys(raw)
		task, hasTask := desc[emailedExportKey]
		delete(desc, emailedExportKey)

		var rec models.ExportRecord
		if err := decode(desc, &rec); err != nil {
			logger.WithError(err).Warnf("Skipping malformed export descriptor #%d", i)
			continue
		}
		if rec.ID == "" {
			logger.Warnf("Skipping export descriptor #%d without id", i)
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, errors.DuplicateRecord(rec.ID)
		}
		seen[rec.ID] = struct{}{}

		if hasTask && task != nil {
			rec.EmailedExport = decodeTask(task, logger.WithField("export_id", rec.ID))
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeTask(raw interface{}, logger *logrus.Entry) *models.TaskState {
	m, ok := raw.(map[string]interface{})
	if !ok {
		logger.Warnf("Ignoring emailedExport of type %T", raw)
		return nil
	}
	var state models.TaskState
	if err := decode(m, &state); err != nil {
		logger.WithError(err).Warn("Ignoring malformed emailedExport")
		return nil
	}
	if state.TaskStatus != nil {
		state.TaskStatus.Normalize()
	}
	return &state
}

func decode(input map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	return decoder.Decode(input)
}

// normalizeKeys copies m with snake_case keys rewritten to camelCase, recursively.
func normalizeKeys(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[camelCase(k)] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return normalizeKeys(val)
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, inner := range val {
			m[fmt.Sprint(k)] = inner
		}
		return normalizeKeys(m)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = normalizeValue(inner)
		}
		return out
	default:
		return v
	}
}

func camelCase(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	var b strings.Builder
	upper := false
	for _, r := range key {
		switch {
		case r == '_':
			upper = b.Len() > 0
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
