// Package useragent classifies raw User-Agent strings for audit enrichment.
package useragent

import (
	"regexp"
	"strings"
)

// Unknown is the sentinel for any attribute that cannot be determined.
const Unknown = "unknown"

// DeviceType buckets a client into one coarse category.
type DeviceType string

const (
	DeviceTablet  DeviceType = "tablet"
	DevicePhone   DeviceType = "phone"
	DeviceRobot   DeviceType = "robot"
	DeviceDesktop DeviceType = "desktop"
	DeviceUnknown DeviceType = Unknown
)

// Details is the structured classification of a User-Agent string. Every
// string field is Unknown rather than empty when detection fails.
type Details struct {
	Browser         string     `json:"browser"`
	BrowserVersion  string     `json:"browser_version"`
	Platform        string     `json:"platform"`
	PlatformVersion string     `json:"platform_version"`
	DeviceType      DeviceType `json:"device_type"`
	IsMobile        bool       `json:"is_mobile"`
	IsTablet        bool       `json:"is_tablet"`
	IsDesktop       bool       `json:"is_desktop"`
	IsRobot         bool       `json:"is_robot"`
}

// Map renders the details as audit metadata.
func (d Details) Map() map[string]any {
	return map[string]any{
		"browser":          d.Browser,
		"browser_version":  d.BrowserVersion,
		"platform":         d.Platform,
		"platform_version": d.PlatformVersion,
		"device_type":      string(d.DeviceType),
		"is_mobile":        d.IsMobile,
		"is_tablet":        d.IsTablet,
		"is_desktop":       d.IsDesktop,
		"is_robot":         d.IsRobot,
	}
}

var (
	tabletMarkers = []string{"ipad", "tablet", "kindle", "silk", "playbook"}
	phoneMarkers  = []string{"iphone", "ipod", "windows phone", "blackberry", "mobile"}
	robotMarkers  = []string{"bot", "crawler", "spider", "slurp", "curl", "wget", "python-requests", "go-http-client", "httpclient", "facebookexternalhit"}

	desktopPlatforms = []string{"windows nt", "macintosh", "x11", "linux", "cros"}

	chromeVersion  = regexp.MustCompile(`(?:chrome|crios)/([\d.]+)`)
	firefoxVersion = regexp.MustCompile(`(?:firefox|fxios)/([\d.]+)`)
	safariVersion  = regexp.MustCompile(`version/([\d.]+)`)
	edgeVersion    = regexp.MustCompile(`edge?/([\d.]+)`)
	operaVersion   = regexp.MustCompile(`(?:opr|opera)/([\d.]+)`)
	msieVersion    = regexp.MustCompile(`msie ([\d.]+)`)

	windowsVersion = regexp.MustCompile(`windows nt ([\d.]+)`)
	macVersion     = regexp.MustCompile(`mac os x ([\d_.]+)`)
	iosVersion     = regexp.MustCompile(`(?:iphone|cpu) os ([\d_]+)`)
	androidVersion = regexp.MustCompile(`android ([\d.]+)`)
)

// Classify parses a raw User-Agent string. It never fails: an empty or
// unrecognized value yields Unknown fields and DeviceUnknown.
func Classify(raw string) Details {
	details := Details{
		Browser:         Unknown,
		BrowserVersion:  Unknown,
		Platform:        Unknown,
		PlatformVersion: Unknown,
		DeviceType:      DeviceUnknown,
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return details
	}

	ua := strings.ToLower(trimmed)

	details.Platform, details.PlatformVersion = detectPlatform(ua)
	details.Browser, details.BrowserVersion = detectBrowser(ua)
	details.DeviceType = detectDevice(ua)

	switch details.DeviceType {
	case DeviceTablet:
		details.IsTablet = true
		details.IsMobile = true
	case DevicePhone:
		details.IsMobile = true
	case DeviceRobot:
		details.IsRobot = true
	case DeviceDesktop:
		details.IsDesktop = true
	}

	return details
}

// detectDevice resolves the device bucket. Tablets are checked before phones
// because tablet user agents frequently carry the "mobile" marker too;
// robots are checked before desktops because many crawlers imitate desktop
// browsers.
func detectDevice(ua string) DeviceType {
	for _, marker := range tabletMarkers {
		if strings.Contains(ua, marker) {
			return DeviceTablet
		}
	}
	if strings.Contains(ua, "android") && !strings.Contains(ua, "mobile") {
		return DeviceTablet
	}
	for _, marker := range phoneMarkers {
		if strings.Contains(ua, marker) {
			return DevicePhone
		}
	}
	if strings.Contains(ua, "android") {
		return DevicePhone
	}
	for _, marker := range robotMarkers {
		if strings.Contains(ua, marker) {
			return DeviceRobot
		}
	}
	for _, marker := range desktopPlatforms {
		if strings.Contains(ua, marker) {
			return DeviceDesktop
		}
	}
	return DeviceUnknown
}

func detectPlatform(ua string) (string, string) {
	switch {
	case strings.Contains(ua, "windows phone"):
		return "Windows Phone", Unknown
	case strings.Contains(ua, "windows nt"):
		return "Windows", firstMatch(windowsVersion, ua)
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ipod"):
		return "iOS", strings.ReplaceAll(firstMatch(iosVersion, ua), "_", ".")
	case strings.Contains(ua, "mac os x") || strings.Contains(ua, "macintosh"):
		return "macOS", strings.ReplaceAll(firstMatch(macVersion, ua), "_", ".")
	case strings.Contains(ua, "android"):
		return "Android", firstMatch(androidVersion, ua)
	case strings.Contains(ua, "cros"):
		return "ChromeOS", Unknown
	case strings.Contains(ua, "linux") || strings.Contains(ua, "x11"):
		return "Linux", Unknown
	}
	return Unknown, Unknown
}

func detectBrowser(ua string) (string, string) {
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge/"):
		return "Edge", firstMatch(edgeVersion, ua)
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "Opera", firstMatch(operaVersion, ua)
	case strings.Contains(ua, "chrome/") || strings.Contains(ua, "crios/"):
		return "Chrome", firstMatch(chromeVersion, ua)
	case strings.Contains(ua, "firefox/") || strings.Contains(ua, "fxios/"):
		return "Firefox", firstMatch(firefoxVersion, ua)
	case strings.Contains(ua, "safari"):
		return "Safari", firstMatch(safariVersion, ua)
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident"):
		return "Internet Explorer", firstMatch(msieVersion, ua)
	}
	return Unknown, Unknown
}

func firstMatch(re *regexp.Regexp, ua string) string {
	matches := re.FindStringSubmatch(ua)
	if len(matches) == 2 && matches[1] != "" {
		return matches[1]
	}
	return Unknown
}
