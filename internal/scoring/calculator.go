package scoring

import "strings"

// TrustScore looks the domain up in the trust table and returns the
// configured multiplier, or def for unknown domains.
func TrustScore(domain string, table map[string]float64, def float64) float64 {
	if mult, ok := table[domain]; ok {
		return mult
	}
	return def
}

// titleWeight is how much heavier a keyword hit in the title counts compared
// to a hit in the body.
const titleWeight = 3

// RelevanceScore measures topic keyword presence in title and body on [0,1].
// Matching is case-insensitive; hits saturate via w/(w+k) so the score grows
// monotonically with raw count but never exceeds 1. Empty topic scores 0.
func RelevanceScore(title, body, topic string, saturation float64) float64 {
	keywords := strings.Fields(strings.ToLower(topic))
	if len(keywords) == 0 {
		return 0
	}
	if saturation <= 0 {
		saturation = 1
	}

	lowerTitle := strings.ToLower(title)
	lowerBody := strings.ToLower(body)

	var weighted float64
	for _, kw := range keywords {
		weighted += float64(strings.Count(lowerTitle, kw)) * titleWeight
		weighted += float64(strings.Count(lowerBody, kw))
	}
	if weighted == 0 {
		return 0
	}

	return weighted / (weighted + saturation)
}

// DepthScore maps content length onto [0,1]: minLength and below score 0
// (such sources are pre-filtered anyway), saturationLength and above score 1,
// linear in between.
func DepthScore(length, minLength, saturationLength int) float64 {
	if saturationLength <= minLength {
		if length >= saturationLength {
			return 1
		}
		return 0
	}
	if length <= minLength {
		return 0
	}
	if length >= saturationLength {
		return 1
	}
	return float64(length-minLength) / float64(saturationLength-minLength)
}
