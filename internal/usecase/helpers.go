package usecase

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"
	"golang.org/x/text/unicode/norm"
)

const FileExtension = ".omran"

// BackupFilename builds "<name>_<YYYY-MM-DD>.omran". The name keeps letters
// of any script, combining marks, digits and whitespace; everything else is
// dropped.
func BackupFilename(name string, at time.Time) string {
	var b strings.Builder
	for _, r := range norm.NFC.String(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r),
			unicode.In(r, unicode.Mn, unicode.Mc):
			b.WriteRune(r)
		}
	}

	base := strings.TrimSpace(b.String())
	if base == "" {
		base = "backup"
	}
	return fmt.Sprintf("%s_%s%s", base, at.Format("2006-01-02"), FileExtension)
}

func filenameStem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// payloadSize is the byte length of the serialized data and settings.
func payloadSize(data, settings map[string]any) (int64, error) {
	encoded, err := json.Marshal(struct {
		Data     map[string]any `json:"data"`
		Settings map[string]any `json:"settings"`
	}{data, settings})
	if err != nil {
		return 0, err
	}
	return int64(len(encoded)), nil
}

func formatSize(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
