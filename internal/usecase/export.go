package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/juju/clock"

	"github.com/semmidev/omran/internal/domain"
)

const (
	ChannelFile = "file"
	exportType  = "full_backup"
)

// Pages opened when a share channel has to fall back to a manual
// attachment and the sink does not name its own.
var shareDestinations = map[string]string{
	"telegram": "https://web.telegram.org/",
	"whatsapp": "https://web.whatsapp.com/",
	"gdrive":   "https://drive.google.com/drive/my-drive",
	"s3":       "https://s3.console.aws.amazon.com/s3/home",
	"gcs":      "https://console.cloud.google.com/storage/browser",
	"azure":    "https://portal.azure.com/",
}

type FormatOptions struct {
	Pretty bool `json:"pretty"`
	domain.SealOptions
}

type Rendered struct {
	Payload  []byte
	Filename string
	Sealed   bool
}

type ExportResult struct {
	Channel      string `json:"channel"`
	Filename     string `json:"filename"`
	Location     string `json:"location"`
	Size         int    `json:"size"`
	Sealed       bool   `json:"sealed"`
	FallbackUsed bool   `json:"fallbackUsed"`
	OpenURL      string `json:"openUrl,omitempty"`
	Warning      string `json:"warning,omitempty"`
}

// Export renders stored backups into the portable file format and hands
// them to a channel.
type Export struct {
	repo    BackupRepository
	local   domain.Sink
	sinks   map[string]domain.Sink
	sealer  Sealer
	opener  URLOpener
	clock   clock.Clock
	logger  Logger
	metrics Metrics
}

func NewExport(
	repo BackupRepository,
	local domain.Sink,
	sinks []domain.Sink,
	sealer Sealer,
	opener URLOpener,
	clk clock.Clock,
	logger Logger,
	metrics Metrics,
) *Export {
	byName := make(map[string]domain.Sink, len(sinks))
	for _, s := range sinks {
		byName[s.Name()] = s
	}
	return &Export{
		repo:    repo,
		local:   local,
		sinks:   byName,
		sealer:  sealer,
		opener:  opener,
		clock:   clk,
		logger:  logger,
		metrics: metrics,
	}
}

// Channels lists every channel an export can target.
func (uc *Export) Channels() []string {
	channels := []string{ChannelFile}
	for name := range shareDestinations {
		channels = append(channels, name)
	}
	for name := range uc.sinks {
		if _, ok := shareDestinations[name]; !ok {
			channels = append(channels, name)
		}
	}
	return channels
}

// Render produces the export payload and filename of a stored backup.
func (uc *Export) Render(ctx context.Context, id string, opts FormatOptions) (*Rendered, error) {
	if err := opts.SealOptions.Validate(); err != nil {
		return nil, err
	}
	record, err := uc.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.render(record, opts)
}

func (uc *Export) render(record *domain.BackupRecord, opts FormatOptions) (*Rendered, error) {
	now := uc.clock.Now().UTC()

	meta := record.Metadata
	meta.ExportDate = &now
	meta.FileVersion = domain.ExportFileVersion
	meta.ExportType = exportType

	settings := record.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	doc := domain.BackupRecord{Metadata: meta, Data: record.Data, Settings: settings}

	var (
		payload []byte
		err     error
	)
	if opts.Pretty {
		payload, err = json.MarshalIndent(doc, "", "  ")
	} else {
		payload, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, domain.NewExportError("failed to serialize backup", err)
	}

	rendered := &Rendered{Payload: payload, Filename: BackupFilename(record.Metadata.Name, record.Metadata.CreatedAt)}
	if opts.SealOptions.Enabled() {
		if rendered.Payload, err = uc.sealer.Seal(payload, opts.SealOptions); err != nil {
			return nil, domain.NewExportError("failed to seal backup", err)
		}
		rendered.Sealed = true
	}
	return rendered, nil
}

func (uc *Export) Execute(ctx context.Context, id, channel string, opts FormatOptions) (*ExportResult, error) {
	if channel == "" {
		channel = ChannelFile
	}

	result, err := uc.execute(ctx, id, channel, opts)
	if err != nil {
		uc.metrics.OperationFailed("export")
		uc.logger.Errorf("Export of %s to %s failed: %v", id, channel, err)
		return nil, err
	}

	uc.metrics.Exported(channel, result.FallbackUsed)
	uc.logger.Infof("Exported backup %s to %s: %s (%s)", id, channel, result.Location, formatSize(int64(result.Size)))
	return result, nil
}

func (uc *Export) execute(ctx context.Context, id, channel string, opts FormatOptions) (*ExportResult, error) {
	if err := opts.SealOptions.Validate(); err != nil {
		return nil, err
	}
	record, err := uc.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	rendered, err := uc.render(record, opts)
	if err != nil {
		return nil, err
	}
	return uc.deliver(ctx, record, rendered, channel)
}

func (uc *Export) deliver(ctx context.Context, record *domain.BackupRecord, rendered *Rendered, channel string) (*ExportResult, error) {
	delivery := domain.Delivery{
		Payload:     rendered.Payload,
		Filename:    rendered.Filename,
		ContentType: contentType(rendered),
		Summary:     summary(record),
	}
	result := &ExportResult{
		Channel:  channel,
		Filename: rendered.Filename,
		Size:     len(rendered.Payload),
		Sealed:   rendered.Sealed,
	}

	if channel == ChannelFile {
		loc, err := uc.local.Deliver(ctx, delivery)
		if err != nil {
			return nil, domain.NewExportError("failed to save the backup file", err)
		}
		result.Location = loc
		return result, nil
	}

	sink, configured := uc.sinks[channel]
	destination, known := shareDestinations[channel]
	if !configured && !known {
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported export channel %q", channel), nil)
	}

	if configured {
		loc, err := sink.Deliver(ctx, delivery)
		if err == nil {
			result.Location = loc
			return result, nil
		}
		uc.logger.Warnf("Sharing via %s failed, falling back to a local download: %v", channel, err)
		result.Warning = fmt.Sprintf("sharing via %s failed: %v", channel, err)
		if d := sink.Destination(); d != "" {
			destination = d
		}
	} else {
		result.Warning = fmt.Sprintf("%s is not configured", channel)
	}

	loc, err := uc.local.Deliver(ctx, delivery)
	if err != nil {
		return nil, domain.NewExportError(fmt.Sprintf("sharing via %s failed and the local download failed too", channel), err)
	}
	result.Location = loc
	result.FallbackUsed = true
	result.OpenURL = destination

	if destination != "" {
		if err := uc.opener.Open(destination); err != nil {
			uc.logger.Warnf("Cannot open %s: %v", destination, err)
		}
	}
	return result, nil
}

// Mirror delivers a backup to a channel without the local fallback.
func (uc *Export) Mirror(ctx context.Context, record *domain.BackupRecord, channel string, seal domain.SealOptions) error {
	rendered, err := uc.render(record, FormatOptions{SealOptions: seal})
	if err != nil {
		return err
	}

	sink := uc.local
	if channel != ChannelFile {
		var ok bool
		if sink, ok = uc.sinks[channel]; !ok {
			return domain.NewExportError(fmt.Sprintf("channel %s is not configured", channel), nil)
		}
	}

	_, err = sink.Deliver(ctx, domain.Delivery{
		Payload:     rendered.Payload,
		Filename:    rendered.Filename,
		ContentType: contentType(rendered),
		Summary:     summary(record),
	})
	if err != nil {
		return domain.NewExportError(fmt.Sprintf("failed to deliver to %s", channel), err)
	}
	uc.metrics.Exported(channel, false)
	return nil
}

func contentType(r *Rendered) string {
	if r.Sealed {
		return "application/octet-stream"
	}
	return "application/json"
}

func summary(record *domain.BackupRecord) string {
	m := record.Metadata
	var b strings.Builder
	fmt.Fprintf(&b, "📦 Backup: %s\n", m.Name)
	fmt.Fprintf(&b, "🗓 Created: %s\n", m.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "📊 Size: %s\n", formatSize(m.Size))
	if len(m.DataTypes) > 0 {
		fmt.Fprintf(&b, "🗂 Contents: %s", strings.Join(m.DataTypes, ", "))
	}
	return b.String()
}
