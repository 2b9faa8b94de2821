package catalog

import (
	"regexp"
	"strings"
)

var (
	shortHexPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3,4})$`)
	longHexPattern  = regexp.MustCompile(`^#([0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
)

// NormalizeColor canonicalizes a raw color value. Short hex forms are expanded,
// hex is uppercased, anything else is returned trimmed. ok is false for blanks.
func NormalizeColor(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	if m := shortHexPattern.FindStringSubmatch(trimmed); m != nil {
		var b strings.Builder
		b.WriteByte('#')
		for _, r := range m[1] {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		return strings.ToUpper(b.String()), true
	}

	if longHexPattern.MatchString(trimmed) {
		return strings.ToUpper(trimmed), true
	}

	return trimmed, true
}

// MergePalette normalizes and deduplicates color values from several sources.
// Sources are read in order; the first occurrence of a value (compared
// case-insensitively) is kept and later duplicates are dropped.
func MergePalette(sources ...[]*string) []string {
	palette := make([]string, 0)
	seen := make(map[string]bool)

	for _, source := range sources {
		for _, raw := range source {
			if raw == nil {
				continue
			}
			normalized, ok := NormalizeColor(*raw)
			if !ok {
				continue
			}
			key := strings.ToLower(normalized)
			if seen[key] {
				continue
			}
			seen[key] = true
			palette = append(palette, normalized)
		}
	}

	return palette
}

// MergePaletteStrings is MergePalette for sources without missing entries
func MergePaletteStrings(sources ...[]string) []string {
	converted := make([][]*string, len(sources))
	for i, source := range sources {
		converted[i] = make([]*string, len(source))
		for j := range source {
			converted[i][j] = &source[j]
		}
	}
	return MergePalette(converted...)
}

// Palette returns the display palette for a product: option value colors
// first, then variant badge colors.
func (p *Product) Palette() []string {
	optionColors := make([]*string, 0)
	for _, opt := range p.Options {
		for _, val := range opt.Values {
			optionColors = append(optionColors, val.ColorHex)
		}
	}

	badgeColors := make([]*string, 0, len(p.Variants))
	for _, v := range p.Variants {
		if !v.IsActive {
			continue
		}
		badgeColors = append(badgeColors, v.BadgeColor)
	}

	return MergePalette(optionColors, badgeColors)
}
