package comparison

import "strings"

var soundexCodes = map[rune]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

// Soundex returns the four character Soundex code of an ASCII word. Characters
// outside A-Z are ignored; a word without letters has no code.
func Soundex(word string) string {
	word = strings.ToUpper(word)

	var out []byte
	var last byte
	for _, r := range word {
		if r < 'A' || r > 'Z' {
			continue
		}
		code := soundexCodes[r]
		if out == nil {
			out = append(out, byte(r))
			last = code
			continue
		}
		switch r {
		case 'H', 'W':
			// H and W do not separate equal codes.
			continue
		case 'A', 'E', 'I', 'O', 'U', 'Y':
			last = 0
			continue
		}
		if code != last {
			out = append(out, code)
		}
		last = code
		if len(out) == 4 {
			break
		}
	}
	if out == nil {
		return ""
	}
	for len(out) < 4 {
		out = append(out, '0')
	}
	return string(out)
}
