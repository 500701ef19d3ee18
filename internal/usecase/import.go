package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/semmidev/omran/internal/domain"
)

var importExtensions = []string{FileExtension, ".json", ".backup"}

type ImportOptions struct {
	EncryptionKey string `json:"encryptionKey,omitempty"`
}

type ImportResult struct {
	BackupID string `json:"backupId"`
	Name     string `json:"name"`
	Adapter  string `json:"adapter"`
	Sealed   bool   `json:"sealed"`
}

// Import validates an external backup file and appends it to the Backup
// Store as a new record.
type Import struct {
	repo      BackupRepository
	sealer    Sealer
	publisher Publisher
	clock     clock.Clock
	logger    Logger
	metrics   Metrics
	maxSize   int64
}

func NewImport(
	repo BackupRepository,
	sealer Sealer,
	publisher Publisher,
	clk clock.Clock,
	logger Logger,
	metrics Metrics,
	maxSize int64,
) *Import {
	if maxSize <= 0 {
		maxSize = domain.MaxBackupSize
	}
	return &Import{
		repo:      repo,
		sealer:    sealer,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		metrics:   metrics,
		maxSize:   maxSize,
	}
}

func (uc *Import) Execute(ctx context.Context, filename string, content []byte, opts ImportOptions) (*ImportResult, error) {
	result, err := uc.execute(ctx, filename, content, opts)
	if err != nil {
		uc.metrics.OperationFailed("import")
		uc.logger.Errorf("Import of %s failed: %v", filename, err)
		return nil, err
	}
	return result, nil
}

func (uc *Import) execute(ctx context.Context, filename string, content []byte, opts ImportOptions) (*ImportResult, error) {
	if !allowedExtension(filename) {
		return nil, domain.NewImportFormatError(
			fmt.Sprintf("unsupported file type %q, expected one of %s", filepath.Ext(filename), strings.Join(importExtensions, ", ")), nil)
	}

	result := &ImportResult{}
	if uc.sealer.IsSealed(content) {
		opened, err := uc.sealer.Open(content, opts.EncryptionKey)
		if err != nil {
			return nil, domain.NewImportFormatError("cannot open sealed backup file", err)
		}
		content = opened
		result.Sealed = true
	}

	var parsed any
	if err := domain.DecodeJSON(content, &parsed); err != nil {
		return nil, domain.NewImportFormatError("file is not valid JSON", err)
	}
	doc, ok := parsed.(map[string]any)
	if !ok {
		return nil, domain.NewImportFormatError("backup file must contain a JSON object", nil)
	}

	record, adapter, err := decode(doc)
	if err != nil {
		return nil, err
	}
	if reserved := domain.ReservedKeysIn(record); len(reserved) > 0 {
		return nil, domain.NewImportFormatError(
			fmt.Sprintf("backup file writes reserved keys: %s", strings.Join(reserved, ", ")), nil)
	}
	if adapter == "raw" {
		uc.logger.Warnf("%s has no backup metadata, imported on a best-effort basis", filename)
	}

	if err := uc.stamp(record, filename); err != nil {
		return nil, err
	}
	if record.Metadata.Size > uc.maxSize {
		return nil, domain.NewValidationError(
			fmt.Sprintf("backup size %s exceeds the %s limit", formatSize(record.Metadata.Size), formatSize(uc.maxSize)), nil)
	}

	if err := uc.repo.Save(ctx, record); err != nil {
		return nil, err
	}

	uc.metrics.Imported(adapter)
	uc.publisher.Publish(domain.TopicBackupCreated)
	uc.logger.Infof("[%s] Imported %s as backup %s using the %s adapter, size: %s",
		record.Metadata.Name, filename, record.Metadata.ID, adapter, formatSize(record.Metadata.Size))

	result.BackupID = record.Metadata.ID
	result.Name = record.Metadata.Name
	result.Adapter = adapter
	return result, nil
}

func decode(doc map[string]any) (*domain.BackupRecord, string, error) {
	for _, a := range importAdapters {
		if !a.Accepts(doc) {
			continue
		}
		record, err := a.Decode(doc)
		if err != nil {
			var de *domain.Error
			if errors.As(err, &de) {
				return nil, "", err
			}
			return nil, "", domain.NewImportFormatError("backup file is malformed", err)
		}
		return record, a.Name(), nil
	}
	return nil, "", domain.NewImportFormatError("file is not a recognizable backup", nil)
}

// stamp gives an imported record its own identity in this store.
func (uc *Import) stamp(record *domain.BackupRecord, filename string) error {
	m := &record.Metadata

	name := strings.TrimSpace(m.Name)
	if name == "" {
		name = filenameStem(filename)
	}
	m.Name = name + " (imported)"
	m.ID = uuid.NewString()
	m.CreatedAt = uc.clock.Now().UTC()
	m.IsAutomatic = false
	m.ExportDate = nil
	m.FileVersion = ""
	m.ExportType = ""
	if m.Version == "" {
		m.Version = domain.SchemaVersion
	}
	if record.Settings == nil {
		record.Settings = map[string]any{}
	}
	if len(m.DataTypes) == 0 {
		m.DataTypes = dataTypesOf(record)
	}

	size, err := payloadSize(record.Data, record.Settings)
	if err != nil {
		return domain.NewImportFormatError("backup data cannot be serialized", err)
	}
	m.Size = size

	if m.Checksum == "" {
		if m.Checksum, err = Digest(record.Data); err != nil {
			return domain.NewImportFormatError("backup data cannot be serialized", err)
		}
	}
	return nil
}

func dataTypesOf(record *domain.BackupRecord) []string {
	seen := make(map[string]bool)
	for key := range record.Data {
		if label, ok := domain.LabelForCollection(key); ok {
			seen[label] = true
		}
	}

	types := make([]string, 0, len(seen)+1)
	for _, g := range domain.DataGroups {
		if seen[g.Label] {
			types = append(types, g.Label)
		}
	}
	if len(record.Settings) > 0 {
		types = append(types, domain.SettingsLabel)
	}
	return types
}

func allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range importExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
