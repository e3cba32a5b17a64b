package geoip

import (
	"encoding/json"
	"net"
	"os"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// GeoIP provides country lookup using a MaxMind DB or a JSON fallback.
type GeoIP struct {
	db       *geoip2.Reader
	fallback []record
}

type record struct {
	net     *net.IPNet
	country string
}

// Init opens the GeoIP2 database located at path. When the file is not a
// MaxMind database it is read as a JSON list of {"net", "country"} entries.
func Init(path string) (*GeoIP, error) {
	g := &GeoIP{}
	db, err := geoip2.Open(path)
	if err == nil {
		g.db = db
		return g, nil
	}

	data, jerr := os.ReadFile(path)
	if jerr != nil {
		return nil, err
	}
	var entries []struct {
		Net     string `json:"net"`
		Country string `json:"country"`
	}
	if jerr = json.Unmarshal(data, &entries); jerr != nil {
		return nil, err
	}
	for _, e := range entries {
		if _, n, perr := net.ParseCIDR(e.Net); perr == nil {
			g.fallback = append(g.fallback, record{net: n, country: e.Country})
		}
	}
	return g, nil
}

// Country returns the ISO country code for the given IP, or "" when unknown.
func (g *GeoIP) Country(ip net.IP) string {
	if g == nil || ip == nil {
		return ""
	}
	if g.db != nil {
		rec, err := g.db.Country(ip)
		if err == nil {
			return rec.Country.IsoCode
		}
	}
	for _, r := range g.fallback {
		if r.net.Contains(ip) {
			return r.country
		}
	}
	return ""
}

// CountryOf resolves a textual address as found in a click record or a
// request's RemoteAddr. A trailing port is ignored.
func (g *GeoIP) CountryOf(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return g.Country(net.ParseIP(addr))
}

// Close releases resources associated with the database.
func (g *GeoIP) Close() error {
	if g != nil && g.db != nil {
		return g.db.Close()
	}
	return nil
}
