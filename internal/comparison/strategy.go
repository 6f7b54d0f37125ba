package comparison

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"docverify/internal/verification/models"
)

const (
	StrategyExact    = "exact"
	StrategyPhonetic = "phonetic"
	StrategyFuzzy    = "fuzzy"
	StrategyOCR      = "ocr"
)

// Strategy scores two normalized values of the same field type. Implementations
// are pure.
type Strategy interface {
	Name() string
	Applies(t models.FieldType) bool
	Score(t models.FieldType, entered, extracted string) (float64, models.Classification)
}

var builtinStrategies = map[string]Strategy{
	StrategyExact:    exactStrategy{},
	StrategyPhonetic: phoneticStrategy{},
	StrategyFuzzy:    fuzzyStrategy{},
	StrategyOCR:      ocrStrategy{},
}

type exactStrategy struct{}

func (exactStrategy) Name() string                  { return StrategyExact }
func (exactStrategy) Applies(models.FieldType) bool { return true }

func (exactStrategy) Score(_ models.FieldType, a, b string) (float64, models.Classification) {
	if a == b {
		return 100, models.ClassExact
	}
	return 0, models.ClassMismatch
}

// phoneticStrategy compares names token by token on their Soundex codes. A token
// only counts when its spelling is also close (phoneticSpellingFloor), since short
// names such as JOHN and JANE share a code.
type phoneticStrategy struct{}

const (
	phoneticCeiling       = 90.0
	phoneticSpellingFloor = 60.0
)

func (phoneticStrategy) Name() string { return StrategyPhonetic }

func (phoneticStrategy) Applies(t models.FieldType) bool { return t == models.FieldName }

func (phoneticStrategy) Score(_ models.FieldType, a, b string) (float64, models.Classification) {
	tokensA := soundexTokens(a)
	tokensB := soundexTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0, models.ClassMismatch
	}

	used := make([]bool, len(tokensB))
	shared := 0
	for _, ta := range tokensA {
		for j, tb := range tokensB {
			if used[j] || ta.code != tb.code || levenshteinRatio(ta.word, tb.word) < phoneticSpellingFloor {
				continue
			}
			used[j] = true
			shared++
			break
		}
	}
	overlap := float64(shared) / float64(max(len(tokensA), len(tokensB)))
	if overlap == 0 {
		return 0, models.ClassMismatch
	}
	return round2(phoneticCeiling * overlap), models.ClassPhonetic
}

type soundexToken struct {
	word string
	code string
}

func soundexTokens(s string) []soundexToken {
	var tokens []soundexToken
	for _, tok := range strings.Fields(s) {
		if code := Soundex(tok); code != "" {
			tokens = append(tokens, soundexToken{word: tok, code: code})
		}
	}
	return tokens
}

// fuzzyStrategy scores edit distance; dates are graded on day distance instead.
type fuzzyStrategy struct{}

func (fuzzyStrategy) Name() string { return StrategyFuzzy }

func (fuzzyStrategy) Applies(t models.FieldType) bool { return t != models.FieldIdentifier }

func (fuzzyStrategy) Score(t models.FieldType, a, b string) (float64, models.Classification) {
	var score float64
	switch t {
	case models.FieldDate:
		if s, ok := dateDistanceScore(a, b); ok {
			score = s
		} else {
			score = levenshteinRatio(a, b)
		}
	case models.FieldName:
		score = max(levenshteinRatio(a, b), levenshteinRatio(sortTokens(a), sortTokens(b)))
	default:
		score = levenshteinRatio(a, b)
	}
	score = round2(score)
	if score == 0 {
		return 0, models.ClassMismatch
	}
	return score, models.ClassFuzzy
}

func levenshteinRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (1 - float64(dist)/float64(longest)) * 100
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func dateDistanceScore(a, b string) (float64, bool) {
	da, errA := time.Parse(isoDate, a)
	db, errB := time.Parse(isoDate, b)
	if errA != nil || errB != nil {
		return 0, false
	}
	days := math.Abs(da.Sub(db).Hours() / 24)
	switch {
	case days <= 1:
		return 95, true
	case days <= 30:
		return 70, true
	case days <= 365:
		return 30, true
	default:
		return 0, true
	}
}

// ocrStrategy gives partial credit for characters OCR commonly confuses.
type ocrStrategy struct{}

const ocrConfusionCredit = 0.8

var ocrClasses = []string{"0ODQ", "1IL", "2Z", "5S", "6G", "8B"}

var ocrClassOf = func() map[rune]int {
	m := make(map[rune]int)
	for i, class := range ocrClasses {
		for _, r := range class {
			m[r] = i
		}
	}
	return m
}()

func (ocrStrategy) Name() string { return StrategyOCR }

func (ocrStrategy) Applies(t models.FieldType) bool { return t == models.FieldIdentifier }

func (ocrStrategy) Score(_ models.FieldType, a, b string) (float64, models.Classification) {
	ra, rb := []rune(a), []rune(b)
	if len(ra) != len(rb) || len(ra) == 0 {
		return 0, models.ClassMismatch
	}
	var credit float64
	for i := range ra {
		switch {
		case ra[i] == rb[i]:
			credit++
		case sameOCRClass(ra[i], rb[i]):
			credit += ocrConfusionCredit
		default:
			// any substitution outside a confusion class is a different identifier
			return 0, models.ClassMismatch
		}
	}
	return round2(credit / float64(len(ra)) * 100), models.ClassFuzzy
}

func sameOCRClass(a, b rune) bool {
	ca, okA := ocrClassOf[a]
	cb, okB := ocrClassOf[b]
	return okA && okB && ca == cb
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
