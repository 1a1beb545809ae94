package collect

import "strings"

// ParseUnits normalizes free-form unit input into an ordered list of
// identifiers. Splits on comma, semicolon, or newline, trims each
// piece, and drops empties. Duplicates pass through untouched; the
// backend owns dedup and normalization.
func ParseUnits(raw string) []string {
	pieces := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})

	units := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			units = append(units, p)
		}
	}
	return units
}
