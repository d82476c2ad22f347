package connector

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Provider picks the connector implementation matching the calendar's provider.
type Provider struct {
	httpClient *http.Client
	google     GoogleClientSource
}

func NewProvider(google GoogleClientSource) *Provider {
	return &Provider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		google:     google,
	}
}

func (p *Provider) For(ctx context.Context, credentials Credentials) (Connector, error) {
	switch credentials.Provider {
	case CalDAV, "":
		if credentials.Url == "" {
			return nil, fmt.Errorf("caldav url is required")
		}
		return NewCalDAVConnector(p.httpClient, credentials)
	case Google:
		if p.google == nil {
			return nil, ErrNotAuthorized
		}
		return NewGoogleConnector(ctx, p.google, credentials)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, credentials.Provider)
}
