// Package geo maps countries to SFU regions and ranks regions by proximity.
package geo

import (
	"math"
	"sort"
	"strings"
)

// countryRegions maps ISO 3166-1 alpha-2 country codes (uppercase) to the
// region bucket serving that country.
var countryRegions = map[string]string{
	// Western Europe
	"FR": "eu-west", "DE": "eu-west", "GB": "eu-west", "ES": "eu-west",
	"IT": "eu-west", "NL": "eu-west", "BE": "eu-west", "PT": "eu-west",
	"IE": "eu-west", "AT": "eu-west", "CH": "eu-west", "LU": "eu-west",
	"MC": "eu-west", "AD": "eu-west", "MT": "eu-west", "SM": "eu-west",
	"VA": "eu-west", "LI": "eu-west",

	// Northern Europe
	"SE": "eu-north", "NO": "eu-north", "DK": "eu-north", "FI": "eu-north",
	"IS": "eu-north", "EE": "eu-north", "LV": "eu-north", "LT": "eu-north",

	// Eastern/Central Europe + Russia + Central Asia
	"PL": "eu-central", "CZ": "eu-central", "SK": "eu-central", "HU": "eu-central",
	"RO": "eu-central", "BG": "eu-central", "HR": "eu-central", "SI": "eu-central",
	"RS": "eu-central", "BA": "eu-central", "ME": "eu-central", "MK": "eu-central",
	"AL": "eu-central", "XK": "eu-central", "MD": "eu-central", "UA": "eu-central",
	"BY": "eu-central", "RU": "eu-central", "KZ": "eu-central", "UZ": "eu-central",
	"TM": "eu-central", "KG": "eu-central", "TJ": "eu-central", "AZ": "eu-central",
	"GE": "eu-central", "AM": "eu-central",

	// Greece, Turkey, Cyprus, North Africa
	"GR": "eu-south", "TR": "eu-south", "CY": "eu-south", "EG": "eu-south",
	"LY": "eu-south", "TN": "eu-south", "DZ": "eu-south", "MA": "eu-south",

	// US, Canada, Mexico, Central America, Caribbean
	"US": "us-east", "CA": "us-east", "MX": "us-east", "GT": "us-east",
	"BZ": "us-east", "SV": "us-east", "HN": "us-east", "NI": "us-east",
	"CR": "us-east", "PA": "us-east", "CU": "us-east", "JM": "us-east",
	"HT": "us-east", "DO": "us-east", "PR": "us-east", "TT": "us-east",
	"BB": "us-east", "BS": "us-east",

	// South America - East
	"BR": "sa-east", "AR": "sa-east", "UY": "sa-east", "PY": "sa-east",
	"VE": "sa-east", "CO": "sa-east", "GY": "sa-east", "SR": "sa-east",
	"GF": "sa-east",

	// South America - West (Andes)
	"CL": "sa-west", "PE": "sa-west", "EC": "sa-west", "BO": "sa-west",

	// East Asia
	"JP": "ap-northeast", "KR": "ap-northeast", "TW": "ap-northeast",
	"HK": "ap-northeast", "MO": "ap-northeast",

	// China
	"CN": "ap-east",

	// Southeast Asia + Oceania
	"SG": "ap-southeast", "MY": "ap-southeast", "TH": "ap-southeast",
	"VN": "ap-southeast", "ID": "ap-southeast", "PH": "ap-southeast",
	"MM": "ap-southeast", "KH": "ap-southeast", "LA": "ap-southeast",
	"BN": "ap-southeast", "AU": "ap-southeast", "NZ": "ap-southeast",
	"FJ": "ap-southeast", "PG": "ap-southeast", "NC": "ap-southeast",
	"VU": "ap-southeast", "WS": "ap-southeast", "TO": "ap-southeast",

	// South Asia
	"IN": "ap-south", "PK": "ap-south", "BD": "ap-south", "LK": "ap-south",
	"NP": "ap-south", "BT": "ap-south", "MV": "ap-south",

	// Middle East
	"AE": "me-south", "SA": "me-south", "QA": "me-south", "KW": "me-south",
	"BH": "me-south", "OM": "me-south", "IL": "me-south", "JO": "me-south",
	"LB": "me-south", "IQ": "me-south", "IR": "me-south", "YE": "me-south",

	// Africa - Sub-Saharan
	"ZA": "af-south", "NG": "af-south", "KE": "af-south", "GH": "af-south",
	"TZ": "af-south", "UG": "af-south", "ET": "af-south", "SN": "af-south",
	"CI": "af-south", "CM": "af-south", "AO": "af-south", "ZW": "af-south",
	"ZM": "af-south", "MZ": "af-south", "BW": "af-south", "NA": "af-south",
	"RW": "af-south", "MU": "af-south", "MG": "af-south",
}

// regionCoord is a region with its approximate center coordinates.
type regionCoord struct {
	name string
	lat  float64
	lon  float64
}

// regions lists all known regions with approximate center coordinates.
var regions = []regionCoord{
	{"eu-west", 48.8, 2.3},       // Paris
	{"eu-north", 59.3, 18.0},     // Stockholm
	{"eu-central", 52.5, 13.4},   // Berlin
	{"eu-south", 41.9, 12.5},     // Rome
	{"us-east", 39.0, -77.0},     // Virginia
	{"sa-east", -23.5, -46.6},    // Sao Paulo
	{"sa-west", -33.4, -70.6},    // Santiago
	{"ap-northeast", 35.7, 139.7}, // Tokyo
	{"ap-east", 31.2, 121.5},     // Shanghai
	{"ap-southeast", 1.3, 103.8}, // Singapore
	{"ap-south", 19.0, 72.8},     // Mumbai
	{"me-south", 25.3, 55.3},     // Dubai
	{"af-south", -26.2, 28.0},    // Johannesburg
}

// CountryToRegion maps an ISO 3166-1 alpha-2 country code to its region.
// Lookup is case-insensitive; unknown codes return ok=false.
func CountryToRegion(countryCode string) (string, bool) {
	region, ok := countryRegions[strings.ToUpper(countryCode)]
	return region, ok
}

func regionCoords(region string) (float64, float64, bool) {
	for _, r := range regions {
		if r.name == region {
			return r.lat, r.lon, true
		}
	}
	return 0, 0, false
}

const earthRadiusKm = 6371.0

// haversineDistance is the approximate great-circle distance in km.
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RegionFallbackOrder returns all known regions ordered by ascending distance
// from the given region, the region itself first. Distance ties break on the
// region name so the order is stable across runs. Unknown regions return nil.
func RegionFallbackOrder(region string) []string {
	originLat, originLon, ok := regionCoords(region)
	if !ok {
		return nil
	}

	type regionDistance struct {
		name string
		dist float64
	}
	ranked := make([]regionDistance, 0, len(regions))
	for _, r := range regions {
		ranked = append(ranked, regionDistance{
			name: r.name,
			dist: haversineDistance(originLat, originLon, r.lat, r.lon),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].dist != ranked[j].dist {
			return ranked[i].dist < ranked[j].dist
		}
		return ranked[i].name < ranked[j].name
	})

	order := make([]string, len(ranked))
	for i, r := range ranked {
		order[i] = r.name
	}
	return order
}
