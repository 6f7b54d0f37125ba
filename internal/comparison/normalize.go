package comparison

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"docverify/internal/verification/models"
)

var upper = cases.Upper(language.Und)

var honorifics = map[string]struct{}{
	"MR": {}, "MRS": {}, "MS": {}, "MISS": {}, "DR": {}, "PROF": {}, "SIR": {}, "MADAM": {},
}

var addressAbbreviations = map[string]string{
	"ST":   "STREET",
	"RD":   "ROAD",
	"AVE":  "AVENUE",
	"AV":   "AVENUE",
	"BLVD": "BOULEVARD",
	"DR":   "DRIVE",
	"LN":   "LANE",
	"CT":   "COURT",
	"PL":   "PLACE",
	"HWY":  "HIGHWAY",
	"APT":  "APARTMENT",
	"BLDG": "BUILDING",
	"FL":   "FLOOR",
	"PO":   "POST OFFICE",
	"NO":   "NUMBER",
	"N":    "NORTH",
	"S":    "SOUTH",
	"E":    "EAST",
	"W":    "WEST",
}

// dateLayouts are tried in order; day-first layouts win over month-first ones.
var dateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"1-2-2006",
	"2006/1/2",
	"2/1/2006",
	"1/2/2006",
	"2.1.2006",
	"2006.1.2",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

const isoDate = "2006-01-02"

// Normalize canonicalizes a value for comparison according to its field type.
func Normalize(t models.FieldType, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	switch t {
	case models.FieldName:
		return normalizeName(value)
	case models.FieldIdentifier:
		return normalizeIdentifier(value)
	case models.FieldDate:
		if d, ok := ParseDate(value); ok {
			return d.Format(isoDate)
		}
		return normalizeText(value)
	case models.FieldPhone:
		return normalizePhone(value)
	case models.FieldEmail:
		return strings.ToLower(value)
	case models.FieldAddress:
		return normalizeAddress(value)
	default:
		return normalizeText(value)
	}
}

// ParseDate parses the date formats seen on identity documents and forms.
func ParseDate(value string) (time.Time, bool) {
	value = strings.Join(strings.Fields(value), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// fold upper-cases and strips diacritics.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return upper.String(out)
}

// normalizeText folds, replaces punctuation with spaces and collapses whitespace.
func normalizeText(s string) string {
	s = fold(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func normalizeName(s string) string {
	tokens := strings.Fields(normalizeText(s))
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, ok := honorifics[tok]; ok {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func normalizeIdentifier(s string) string {
	s = fold(s)
	var b strings.Builder
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case strings.HasPrefix(digits, "254") && len(digits) > 9:
		digits = digits[3:]
	case strings.HasPrefix(digits, "1") && len(digits) == 11:
		digits = digits[1:]
	case strings.HasPrefix(digits, "44") && len(digits) > 10:
		digits = digits[2:]
	}
	return strings.TrimPrefix(digits, "0")
}

func normalizeAddress(s string) string {
	tokens := strings.Fields(normalizeText(s))
	for i, tok := range tokens {
		if full, ok := addressAbbreviations[tok]; ok {
			tokens[i] = full
		}
	}
	return strings.Join(tokens, " ")
}
