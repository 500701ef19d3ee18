package browser

import (
	"fmt"
	"net/url"

	"github.com/juju/webbrowser"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Opener shows share destinations to the user. When disabled (servers,
// headless runs) it only logs the URL.
type Opener struct {
	enabled bool
	logger  Logger
	open    func(*url.URL) error
}

func New(enabled bool, logger Logger) *Opener {
	return &Opener{enabled: enabled, logger: logger, open: webbrowser.Open}
}

func (o *Opener) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if !o.enabled {
		o.logger.Infof("Open %s to attach the backup file", u)
		return nil
	}

	if err := o.open(u); err != nil {
		if err == webbrowser.ErrNoBrowser {
			o.logger.Warnf("No browser available, open %s manually", u)
			return nil
		}
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
