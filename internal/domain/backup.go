package domain

import "time"

// SchemaVersion is stamped into every record this service creates.
const SchemaVersion = "1.0.0"

// ExportFileVersion identifies the envelope written by the export gateway.
const ExportFileVersion = "2.0"

// MaxBackupSize is the default creation cap in bytes of serialized payload.
const MaxBackupSize = 50 * 1024 * 1024

type BackupMetadata struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Size        int64     `json:"size"`
	Version     string    `json:"version"`
	DataTypes   []string  `json:"dataTypes"`
	IsAutomatic bool      `json:"isAutomatic"`
	Checksum    string    `json:"checksum"`

	// Stamped on exported copies only.
	ExportDate  *time.Time `json:"exportDate,omitempty"`
	FileVersion string     `json:"fileVersion,omitempty"`
	ExportType  string     `json:"exportType,omitempty"`
}

// BackupRecord is the unit of storage: metadata plus a full snapshot of the
// selected collections and settings groups.
type BackupRecord struct {
	Metadata BackupMetadata `json:"metadata"`
	Data     map[string]any `json:"data"`
	Settings map[string]any `json:"settings"`
}

// Validate performs the structural checks required before a record may be
// restored.
func (r *BackupRecord) Validate() error {
	if r == nil {
		return NewValidationError("backup record is empty", nil)
	}
	if r.Metadata.ID == "" {
		return NewValidationError("backup metadata is missing an id", nil)
	}
	if r.Metadata.Version == "" {
		return NewValidationError("backup metadata is missing a version", nil)
	}
	if r.Data == nil {
		return NewValidationError("backup has no data section", nil)
	}
	return nil
}

type BackupOptions struct {
	IncludeSalesData     bool `json:"includeSalesData"`
	IncludePurchaseData  bool `json:"includePurchaseData"`
	IncludeInventoryData bool `json:"includeInventoryData"`
	IncludeEmployeeData  bool `json:"includeEmployeeData"`
	IncludeFinancialData bool `json:"includeFinancialData"`
	IncludeInvestorData  bool `json:"includeInvestorData"`
	IncludeSettings      bool `json:"includeSettings"`

	SealOptions
}

// AllData selects every collection group and the settings.
func AllData() BackupOptions {
	return BackupOptions{
		IncludeSalesData:     true,
		IncludePurchaseData:  true,
		IncludeInventoryData: true,
		IncludeEmployeeData:  true,
		IncludeFinancialData: true,
		IncludeInvestorData:  true,
		IncludeSettings:      true,
	}
}

// SealOptions controls how a payload is packed when it leaves the store:
// compression and optional passphrase encryption.
type SealOptions struct {
	Compress         bool   `json:"compress,omitempty"`
	CompressionLevel int    `json:"compressionLevel,omitempty"`
	Algorithm        string `json:"algorithm,omitempty"`
	Encrypt          bool   `json:"encrypt,omitempty"`
	EncryptionKey    string `json:"encryptionKey,omitempty"`
}

func (o SealOptions) Enabled() bool {
	return o.Compress || o.Encrypt
}

func (o SealOptions) Validate() error {
	if o.Encrypt && o.EncryptionKey == "" {
		return NewValidationError("an encryption key is required when encryption is enabled", nil)
	}
	if o.CompressionLevel < 0 || o.CompressionLevel > 9 {
		return NewValidationError("compression level must be between 0 and 9", nil)
	}
	return nil
}

type RestoreOptions struct {
	OverwriteExisting         bool `json:"overwriteExisting"`
	MergeData                 bool `json:"mergeData"`
	RestoreSettings           bool `json:"restoreSettings"`
	CreateBackupBeforeRestore bool `json:"createBackupBeforeRestore"`
}

type RestoreResult struct {
	BackupID         string   `json:"backupId"`
	RestoredKeys     []string `json:"restoredKeys"`
	SkippedKeys      []string `json:"skippedKeys,omitempty"`
	SettingsRestored bool     `json:"settingsRestored"`
	ChecksumValid    bool     `json:"checksumValid"`
	Warnings         []string `json:"warnings,omitempty"`
	SafetyBackupID   string   `json:"safetyBackupId,omitempty"`
}
