package cloud

import "strings"

// Region identifiers accepted in configuration.
const (
	RegionChina      = "cn"
	RegionUS         = "us"
	RegionUSEast     = "us-e"
	RegionEurope     = "eu"
	RegionEuropeWest = "eu-w"
	RegionIndia      = "in"
)

// DefaultRegion is used when the configured region is empty or unknown.
const DefaultRegion = RegionEurope

var regionHosts = map[string]string{
	RegionChina:      "https://openapi.tuyacn.com",
	RegionUS:         "https://openapi.tuyaus.com",
	RegionUSEast:     "https://openapi-ueaz.tuyaus.com",
	RegionEurope:     "https://openapi.tuyaeu.com",
	RegionEuropeWest: "https://openapi-weaz.tuyaeu.com",
	RegionIndia:      "https://openapi.tuyain.com",
}

// BaseURL returns the OpenAPI host for a region. Only the host differs
// between regions; the protocol is identical.
func BaseURL(region string) string {
	if host, ok := regionHosts[strings.ToLower(strings.TrimSpace(region))]; ok {
		return host
	}
	return regionHosts[DefaultRegion]
}

// IsKnownRegion reports whether region maps to a dedicated host.
func IsKnownRegion(region string) bool {
	_, ok := regionHosts[strings.ToLower(strings.TrimSpace(region))]
	return ok
}
