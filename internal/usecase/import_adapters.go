package usecase

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/semmidev/omran/internal/domain"
)

// importAdapter turns a parsed backup document into a record. Adapters are
// tried in order; the first that accepts the document wins.
type importAdapter interface {
	Name() string
	Accepts(doc map[string]any) bool
	Decode(doc map[string]any) (*domain.BackupRecord, error)
}

var importAdapters = []importAdapter{
	exportedAdapter{},
	canonicalAdapter{},
	rawAdapter{},
}

// exportedAdapter reads files written by the export gateway, identified by
// metadata.fileVersion.
type exportedAdapter struct{}

func (exportedAdapter) Name() string { return "v2" }

func (exportedAdapter) Accepts(doc map[string]any) bool {
	meta, ok := doc["metadata"].(map[string]any)
	if !ok {
		return false
	}
	v, ok := meta["fileVersion"].(string)
	return ok && v != ""
}

func (exportedAdapter) Decode(doc map[string]any) (*domain.BackupRecord, error) {
	return decodeCanonical(doc)
}

// canonicalAdapter reads stored records saved without export stamps.
type canonicalAdapter struct{}

func (canonicalAdapter) Name() string { return "v1" }

func (canonicalAdapter) Accepts(doc map[string]any) bool {
	_, hasMeta := doc["metadata"].(map[string]any)
	_, hasData := doc["data"].(map[string]any)
	return hasMeta && hasData
}

func (canonicalAdapter) Decode(doc map[string]any) (*domain.BackupRecord, error) {
	return decodeCanonical(doc)
}

// rawAdapter is a best-effort fallback for documents that are a flat map of
// store keys. Keys containing "settings" land in the settings bucket whatever
// their value; other keys need an array or object value.
type rawAdapter struct{}

func (rawAdapter) Name() string { return "raw" }

func (rawAdapter) Accepts(doc map[string]any) bool {
	for key, v := range doc {
		if key != "metadata" && rawBucket(key, v) != "" {
			return true
		}
	}
	return false
}

func rawBucket(key string, v any) string {
	if v == nil {
		return ""
	}
	if strings.Contains(strings.ToLower(key), "settings") {
		return "settings"
	}
	switch v.(type) {
	case []any, map[string]any:
		return "data"
	}
	return ""
}

func (rawAdapter) Decode(doc map[string]any) (*domain.BackupRecord, error) {
	record := &domain.BackupRecord{
		Data:     make(map[string]any),
		Settings: make(map[string]any),
	}
	if meta, ok := doc["metadata"].(map[string]any); ok {
		if err := decodeMetadata(meta, &record.Metadata); err != nil {
			return nil, err
		}
	}

	for key, v := range doc {
		if key == "metadata" {
			continue
		}
		switch rawBucket(key, v) {
		case "settings":
			record.Settings[key] = v
		case "data":
			record.Data[key] = v
		}
	}

	if len(record.Data) == 0 && len(record.Settings) == 0 {
		return nil, domain.NewImportFormatError("file contains no recognizable backup data", nil)
	}
	return record, nil
}

func decodeCanonical(doc map[string]any) (*domain.BackupRecord, error) {
	record := &domain.BackupRecord{}

	meta, ok := doc["metadata"].(map[string]any)
	if !ok {
		return nil, domain.NewImportFormatError("backup metadata is missing", nil)
	}
	if err := decodeMetadata(meta, &record.Metadata); err != nil {
		return nil, err
	}

	data, ok := doc["data"].(map[string]any)
	if !ok {
		return nil, domain.NewImportFormatError("backup data section is missing", nil)
	}
	record.Data = data

	switch s := doc["settings"].(type) {
	case map[string]any:
		record.Settings = s
	case nil:
		record.Settings = map[string]any{}
	default:
		return nil, domain.NewImportFormatError("backup settings section is not an object", nil)
	}
	return record, nil
}

// decodeMetadata copies the descriptive fields. Timestamps and size are
// always re-stamped by the importer, so they are dropped here.
func decodeMetadata(meta map[string]any, out *domain.BackupMetadata) error {
	fields := make(map[string]any, len(meta))
	for k, v := range meta {
		switch k {
		case "createdAt", "exportDate", "size":
			continue
		}
		fields[k] = v
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return domain.NewImportFormatError("backup metadata is malformed", err)
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		return domain.NewImportFormatError("backup metadata is malformed", err)
	}
	return nil
}
