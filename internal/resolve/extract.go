package resolve

import (
	"regexp"
	"strings"
)

const minNameLength = 3

const (
	metricWords = `(?:apy|staking|yield|rewards|reward|interest|returns|return|rate)`
	nameGroup   = `([a-z0-9][\w .&'-]*?)`
	tail        = `(?:\s+is)?\s*(?:[?.!]+\s*)?$`
)

// Shapes are tried in order. The first one whose capture survives cleanup and
// the stoplist supplies the provider name.
var extractShapes = []*regexp.Regexp{
	// "apy for Amnis Finance", "yield on the thala pool?"
	regexp.MustCompile(`(?i)\b` + metricWords + `\s+(?:for|from|in|at|on|of)\s+(?:the\s+)?` + nameGroup +
		`(?:\s+(?:protocol|pool|staking|opportunities|provider|platform))?` + tail),
	// "Amnis staking rewards", "what is the thala apy"
	regexp.MustCompile(`(?i)^\s*` + nameGroup + `(?:\s+(?:protocol|pool|staking|platform))?\s+` + metricWords + `\b`),
	// "tell me about Echelon", "give me details on the aries protocol"
	regexp.MustCompile(`(?i)\b(?:tell|show|give|provide)\s+(?:me\s+)?(?:about|on|info|information|details)\s+` +
		`(?:(?:about|on|of|for)\s+)?(?:the\s+)?` + nameGroup +
		`(?:\s+(?:protocol|pool|staking|platform))?` + tail),
}

var leadingFiller = regexp.MustCompile(`(?i)^(?:(?:what|which|how|where|who|is|are|was|does|do|much|me|about|the|a|an|current|currently)\b['’s]*\s*)+`)

var stopwords = map[string]struct{}{
	"best":    {},
	"top":     {},
	"highest": {},
	"lowest":  {},
	"safest":  {},
	"good":    {},
	"better":  {},
}

// ExtractProvider pulls a provider name out of free text. It returns false when
// no shape yields a usable name.
func ExtractProvider(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, shape := range extractShapes {
		m := shape.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if name, ok := cleanName(m[1]); ok {
			return name, true
		}
	}
	return "", false
}

func cleanName(raw string) (string, bool) {
	name := strings.TrimSpace(leadingFiller.ReplaceAllString(strings.TrimSpace(raw), ""))
	name = strings.Trim(name, " ?.!,'\"")
	if len(name) < minNameLength {
		return "", false
	}
	first := strings.ToLower(strings.Fields(name)[0])
	if _, stop := stopwords[first]; stop {
		return "", false
	}
	return name, true
}
