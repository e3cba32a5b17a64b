package logic

import (
	"github.com/avct/uasurfer"

	"github.com/patrickwarner/bannerrotator/internal/geoip"
)

// ClientInfo describes the visitor behind a view or click.
type ClientInfo struct {
	DeviceType string
	Browser    string
	OS         string
	Country    string
	IsBot      bool
}

// DescribeUserAgent parses a raw User-Agent string using uasurfer.
func DescribeUserAgent(ua string) ClientInfo {
	u := uasurfer.Parse(ua)

	var deviceType string
	switch u.DeviceType {
	case uasurfer.DeviceComputer:
		deviceType = "desktop"
	case uasurfer.DevicePhone:
		deviceType = "mobile"
	case uasurfer.DeviceTablet:
		deviceType = "tablet"
	default:
		deviceType = "other"
	}

	return ClientInfo{
		DeviceType: deviceType,
		Browser:    u.Browser.Name.StringTrimPrefix(),
		OS:         u.OS.Name.StringTrimPrefix(),
		IsBot:      u.IsBot(),
	}
}

// ResolveClient combines user agent parsing with a country lookup for ip.
// g may be nil.
func ResolveClient(g *geoip.GeoIP, ua, ip string) ClientInfo {
	info := DescribeUserAgent(ua)
	info.Country = g.CountryOf(ip)
	return info
}
