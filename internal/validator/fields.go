package validator

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// ParseBeverageList splits a comma-separated beverage list into names.
// Empty-equivalent tokens ("n/a", "none", "-", "") yield zero names and
// are valid. Each name must be non-empty and within the length bound.
func ParseBeverageList(raw string, rules Rules) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || isEmptyToken(raw, rules) {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			return nil, eris.New("empty beverage name between commas")
		}
		if len(name) > rules.MaxBeverageNameLength {
			return nil, eris.Errorf("beverage name exceeds %d characters: %q", rules.MaxBeverageNameLength, truncate(name, 40))
		}
		names = append(names, name)
	}
	return names, nil
}

func isEmptyToken(s string, rules Rules) bool {
	for _, tok := range rules.EmptyTokens {
		if strings.EqualFold(s, tok) {
			return true
		}
	}
	return false
}

// BurgerSegment is one "Name - description" entry of the main item field.
type BurgerSegment struct {
	Name        string
	Description string
}

// ParseBurgerSegments parses the main item field into segments. A
// semicolon is honored as an unambiguous segment separator; otherwise
// segments split on commas followed by text that itself looks like a new
// "Name - description" head. Commas are legal both as separators and
// inside descriptions, so this parse is heuristic for adversarial input;
// the semicolon convention is the escape hatch.
func ParseBurgerSegments(raw string) ([]BurgerSegment, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, eris.New("empty main item")
	}

	var chunks []string
	if strings.Contains(raw, ";") {
		chunks = strings.Split(raw, ";")
	} else {
		chunks = splitOnSegmentCommas(raw)
	}

	segments := make([]BurgerSegment, 0, len(chunks))
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		name, desc, ok := strings.Cut(chunk, " - ")
		if !ok {
			return nil, eris.Errorf("segment %q is not in Name - description form", truncate(chunk, 60))
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, eris.Errorf("segment %q has an empty name", truncate(chunk, 60))
		}
		segments = append(segments, BurgerSegment{Name: name, Description: strings.TrimSpace(desc)})
	}
	if len(segments) == 0 {
		return nil, eris.New("no segments in main item")
	}
	return segments, nil
}

// splitOnSegmentCommas splits on commas whose following text contains a
// " - " before the next comma, i.e. looks like the head of a new
// segment. A comma followed by plain description text stays inside the
// current segment.
func splitOnSegmentCommas(s string) []string {
	var chunks []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != ',' {
			continue
		}
		rest := s[i+1:]
		next := rest
		if j := strings.IndexByte(rest, ','); j >= 0 {
			next = rest[:j]
		}
		if strings.Contains(next, " - ") {
			chunks = append(chunks, s[start:i])
			start = i + 1
		}
	}
	chunks = append(chunks, s[start:])
	return chunks
}

// NormalizeName canonicalizes a sheet-entered name for comparison: NFC
// normalization, whitespace collapsing, case folding.
func NormalizeName(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// numericID reports whether s is a non-empty all-digit identifier.
func numericID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
