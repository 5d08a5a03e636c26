// Package browser implements the URLOpener port with the user's default browser.
package browser

import (
	"fmt"
	"net/url"

	"github.com/cli/browser"

	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.URLOpener = (*Opener)(nil)

// Opener opens http(s) URLs in the default browser.
type Opener struct {
	open func(string) error
}

// NewOpener creates an Opener backed by github.com/cli/browser.
func NewOpener() *Opener {
	return &Opener{open: browser.OpenURL}
}

// OpenURL opens rawURL. Only absolute http and https URLs are accepted so a
// check's details URL can never launch a local handler.
func (o *Opener) OpenURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open %q: unsupported scheme", rawURL)
	}
	if err := o.open(u.String()); err != nil {
		return fmt.Errorf("open %s: %w", u.Redacted(), err)
	}
	return nil
}
