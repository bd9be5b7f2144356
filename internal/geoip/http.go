package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

const (
	// DefaultPublicIPURL returns the caller's address as plain text.
	DefaultPublicIPURL = "https://api.ipify.org"

	// DefaultCountryURL is a format string taking the IP address and
	// returning a JSON document with a "country" field.
	DefaultCountryURL = "https://ipinfo.io/%s/json"

	// maxBodySize bounds how much of a response body we read.
	maxBodySize = 1 << 16
)

// HTTPResolver is a [PublicIPResolver] querying a plain text endpoint.
type HTTPResolver struct {
	// URL is the endpoint to query.
	URL string

	// Client is the optional HTTP client. If nil, we use http.DefaultClient.
	Client *http.Client
}

var _ PublicIPResolver = &HTTPResolver{}

// PublicIP implements PublicIPResolver.
func (r *HTTPResolver) PublicIP(ctx context.Context) (net.IP, error) {
	body, err := httpGet(ctx, r.Client, r.URL)
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(strings.TrimSpace(string(body)))
	if ip == nil {
		return nil, fmt.Errorf("cannot parse %q as an IP address", body)
	}
	return ip, nil
}

// HTTPCountryLookup is a [CountryLookup] querying a JSON endpoint.
type HTTPCountryLookup struct {
	// URL is a format string where %s is replaced by the IP address.
	URL string

	// Client is the optional HTTP client. If nil, we use http.DefaultClient.
	Client *http.Client
}

var _ CountryLookup = &HTTPCountryLookup{}

// countryResponse covers the field names used by common geolocation APIs.
type countryResponse struct {
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
}

// CountryCode implements CountryLookup.
func (l *HTTPCountryLookup) CountryCode(ctx context.Context, ip net.IP) (string, error) {
	body, err := httpGet(ctx, l.Client, fmt.Sprintf(l.URL, ip.String()))
	if err != nil {
		return "", err
	}
	var resp countryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.CountryCode != "" {
		return resp.CountryCode, nil
	}
	if resp.Country != "" {
		return resp.Country, nil
	}
	return "", fmt.Errorf("no country in response for %s", ip)
}

func httpGet(ctx context.Context, client *http.Client, URL string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", URL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}
