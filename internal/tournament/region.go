package tournament

import "strings"

const (
	// UnspecifiedRegion is used when no region name matches a title.
	UnspecifiedRegion = "미정"
	// UnknownVenue is the region reported for a missing location.
	UnknownVenue = "장소 미정"
)

// Regions is the closed vocabulary of region names, ordered so that compound
// names come before the simple names they contain ("경기 광주" before "경기"
// and "광주").
var Regions = []string{
	"경기 광주",
	"서울", "경기", "인천", "강원",
	"대전", "세종", "충북", "충남",
	"부산", "대구", "울산", "경북", "경남",
	"전북", "광주", "전남", "제주",
}

// ExtractRegion returns the region named in text: an exact vocabulary match
// first, then the first vocabulary entry contained in text. fallback is
// returned when nothing matches.
func ExtractRegion(text, fallback string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	for _, r := range Regions {
		if text == r {
			return r
		}
	}
	for _, r := range Regions {
		if strings.Contains(text, r) {
			return r
		}
	}
	return fallback
}

// Location is a region plus free-text venue detail.
type Location struct {
	Region string `json:"region"`
	Detail string `json:"detail"`
}

// ParseLocation splits a location into region and detail. When detail is
// given, location is kept as the region unless it is not a vocabulary name,
// in which case the region is looked up in detail. Without detail, the
// region is matched in location and the remainder becomes the detail; as a
// last resort the first two characters are taken as the region.
func ParseLocation(location, detail string) Location {
	location = strings.TrimSpace(location)
	detail = strings.TrimSpace(detail)

	if detail != "" {
		if location == "" || !isRegion(location) {
			if r := ExtractRegion(detail, ""); r != "" {
				return Location{Region: r, Detail: detail}
			}
		}
		if location == "" {
			location = UnspecifiedRegion
		}
		return Location{Region: location, Detail: detail}
	}

	if location == "" {
		return Location{Region: UnknownVenue}
	}

	if r := ExtractRegion(location, ""); r != "" {
		return Location{Region: r, Detail: strings.TrimSpace(strings.Replace(location, r, "", 1))}
	}

	runes := []rune(location)
	if len(runes) > 2 {
		return Location{Region: string(runes[:2]), Detail: strings.TrimSpace(string(runes[2:]))}
	}
	return Location{Region: location}
}

func isRegion(s string) bool {
	for _, r := range Regions {
		if s == r {
			return true
		}
	}
	return false
}
