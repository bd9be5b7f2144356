package geoip

import (
	"context"
	"errors"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// MMDBLookup is a [CountryLookup] backed by a local MaxMind database,
// useful on servers that should not depend on a third party service.
type MMDBLookup struct {
	reader *geoip2.Reader
}

var _ CountryLookup = &MMDBLookup{}

// OpenMMDB opens the MaxMind database at path.
func OpenMMDB(path string) (*MMDBLookup, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &MMDBLookup{reader: reader}, nil
}

// CountryCode implements CountryLookup.
func (l *MMDBLookup) CountryCode(ctx context.Context, ip net.IP) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	record, err := l.reader.Country(ip)
	if err != nil {
		return "", err
	}
	if record.Country.IsoCode == "" {
		return "", errors.New("no country for address in database")
	}
	return record.Country.IsoCode, nil
}

// Close closes the underlying database.
func (l *MMDBLookup) Close() error {
	return l.reader.Close()
}
