package comparison_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"docverify/internal/comparison"
	"docverify/internal/discrepancy"
	"docverify/internal/verification/models"
	id "docverify/pkg/domain"
)

type ComparatorSuite struct {
	suite.Suite
	cmp *comparison.Comparator
}

func TestComparatorSuite(t *testing.T) {
	suite.Run(t, new(ComparatorSuite))
}

func (s *ComparatorSuite) SetupTest() {
	cmp, err := comparison.New(comparison.DefaultConfig())
	s.Require().NoError(err)
	s.cmp = cmp
}

func (s *ComparatorSuite) compare(field, entered, extracted string) models.FieldComparison {
	return s.cmp.Compare(field, entered, extracted, s.cmp.Config().PolicyFor(field))
}

func (s *ComparatorSuite) TestExactAfterNormalization() {
	cases := []struct {
		name      string
		field     string
		entered   string
		extracted string
	}{
		{"case only", "full_name", "John Doe", "JOHN DOE"},
		{"honorific dropped", "full_name", "Dr. Jane Smith", "JANE SMITH"},
		{"diacritics stripped", "full_name", "José Núñez", "JOSE NUNEZ"},
		{"identifier punctuation", "id_number", "AB-123 456", "ab123456"},
		{"date formats", "date_of_birth", "1990-05-14", "14/05/1990"},
		{"long month date", "date_of_birth", "14 May 1990", "May 14, 1990"},
		{"country prefix", "phone", "+254 712 345678", "0712345678"},
		{"address abbreviations", "address", "12 Main St.", "12 MAIN STREET"},
		{"email case", "email", " Jane@Example.COM", "jane@example.com"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			got := s.compare(tc.field, tc.entered, tc.extracted)
			s.Equal(models.ClassExact, got.Classification)
			s.Equal(100.0, got.Score)
			s.Equal(comparison.StrategyExact, got.Strategy)
		})
	}
}

func (s *ComparatorSuite) TestOCRConfusionOnIdentifier() {
	got := s.compare("id_number", "12345678", "l2345678")

	s.Equal(models.ClassFuzzy, got.Classification)
	s.Equal(comparison.StrategyOCR, got.Strategy)
	s.Equal(97.5, got.Score)
}

func (s *ComparatorSuite) TestOCRRequiresEqualLength() {
	got := s.compare("id_number", "12345678", "1234567")
	s.Equal(models.ClassMismatch, got.Classification)
}

func (s *ComparatorSuite) TestOCRRejectsOtherDigits() {
	detector, err := discrepancy.New(discrepancy.DefaultSeverityPolicy())
	s.Require().NoError(err)

	for name, extracted := range map[string]string{
		"one digit differs":   "12345679",
		"digits transposed":   "12345687",
		"confusable plus one": "I2345679",
	} {
		s.Run(name, func() {
			got := s.compare("id_number", "12345678", extracted)
			s.Equal(models.ClassMismatch, got.Classification)
			s.Equal(0.0, got.Score)

			found := detector.Detect(id.NewRequestID(), []models.FieldComparison{got})
			s.Require().Len(found, 1)
			s.Equal(models.SeverityCritical, found[0].Severity)
		})
	}
}

func (s *ComparatorSuite) TestPhoneticNames() {
	got := s.compare("full_name", "Jon Smyth", "John Smith")

	s.Equal(models.ClassPhonetic, got.Classification)
	s.Equal(comparison.StrategyPhonetic, got.Strategy)
	s.Equal(90.0, got.Score)
}

func (s *ComparatorSuite) TestSharedSoundexIsNotEnough() {
	detector, err := discrepancy.New(discrepancy.DefaultSeverityPolicy())
	s.Require().NoError(err)

	got := s.compare("full_name", "Jane Doe", "John Doe")
	s.Equal(models.ClassMismatch, got.Classification)
	s.Less(got.Score, 70.0)

	found := detector.Detect(id.NewRequestID(), []models.FieldComparison{got})
	s.Require().Len(found, 1)
	s.Equal("full_name", found[0].Field)

	s.Run("best of agrees", func() {
		cfg := comparison.DefaultConfig()
		cfg.Mode = comparison.ModeBestOf
		cmp, err := comparison.New(cfg)
		s.Require().NoError(err)
		got := cmp.Compare("full_name", "Jane Doe", "John Doe", cfg.PolicyFor("full_name"))
		s.Equal(models.ClassMismatch, got.Classification)
	})
}

func (s *ComparatorSuite) TestDateDistance() {
	cases := []struct {
		extracted string
		score     float64
	}{
		{"1990-05-15", 95},
		{"1990-05-30", 70},
		{"1990-12-01", 30},
		{"1995-05-14", 0},
	}
	for _, tc := range cases {
		s.Run(tc.extracted, func() {
			got := s.compare("date_of_birth", "1990-05-14", tc.extracted)
			s.Equal(tc.score, got.Score)
		})
	}
}

func (s *ComparatorSuite) TestMismatchBelowFloor() {
	got := s.compare("full_name", "John Doe", "Peter Pan")
	s.Equal(models.ClassMismatch, got.Classification)
	s.Less(got.Score, 70.0)
}

func (s *ComparatorSuite) TestMissingValues() {
	s.Run("required field missing scores zero", func() {
		got := s.compare("full_name", "John Doe", "")
		s.Equal(models.ClassMissing, got.Classification)
		s.Equal(0.0, got.Score)
	})

	s.Run("optional field missing scores full", func() {
		got := s.cmp.Compare("email", "", "jane@example.com", comparison.FieldPolicy{Type: models.FieldEmail, Optional: true})
		s.Equal(models.ClassMissing, got.Classification)
		s.Equal(100.0, got.Score)
		s.True(got.Optional)
	})

	s.Run("whitespace counts as missing", func() {
		got := s.compare("full_name", "   ", "JOHN DOE")
		s.Equal(models.ClassMissing, got.Classification)
	})
}

func (s *ComparatorSuite) TestSelectionModes() {
	s.Run("short circuit stops at first confident strategy", func() {
		got := s.compare("full_name", "Johnathan Doe", "Jonathan Doe")
		s.Equal(comparison.StrategyPhonetic, got.Strategy)
		s.Equal(90.0, got.Score)
	})

	s.Run("best of keeps the highest score", func() {
		cfg := comparison.DefaultConfig()
		cfg.Mode = comparison.ModeBestOf
		cmp, err := comparison.New(cfg)
		s.Require().NoError(err)

		got := cmp.Compare("full_name", "Johnathan Doe", "Jonathan Doe", cfg.PolicyFor("full_name"))
		s.Equal(comparison.StrategyFuzzy, got.Strategy)
		s.Equal(92.31, got.Score)
	})

	s.Run("per field strategy order", func() {
		policy := comparison.FieldPolicy{Type: models.FieldName, Strategies: []string{comparison.StrategyExact, comparison.StrategyFuzzy}}
		got := s.cmp.Compare("full_name", "Jon Smyth", "John Smith", policy)
		s.Equal(comparison.StrategyFuzzy, got.Strategy)
		s.Equal(80.0, got.Score)
	})
}

func (s *ComparatorSuite) TestCompareAll() {
	docs := []models.Document{
		{
			Type:      models.DocumentNationalID,
			Processed: true,
			Fields: map[string]models.ExtractedField{
				"full_name": {Value: "JOHN DOE", Confidence: 0.7},
				"id_number": {Value: "12345678", Confidence: 0.9},
			},
		},
		{
			Type:      models.DocumentPassport,
			Processed: true,
			Fields: map[string]models.ExtractedField{
				"full_name": {Value: "JOHN D0E", Confidence: 0.6},
			},
		},
		{
			Type:      models.DocumentUtilityBill,
			Processed: false,
			Fields: map[string]models.ExtractedField{
				"address": {Value: "1 ELSEWHERE RD", Confidence: 0.99},
			},
		},
	}
	data := map[string]string{
		"full_name": "John Doe",
		"id_number": "12345678",
		"notes":     "",
	}

	got := s.cmp.CompareAll(data, docs)

	s.Require().Len(got, 2)
	s.Equal("full_name", got[0].Field)
	s.Equal(models.ClassExact, got[0].Classification, "highest confidence value wins")
	s.Equal("id_number", got[1].Field)
	s.Equal(100.0, got[1].Score)
}

func (s *ComparatorSuite) TestConfigValidation() {
	s.Run("unknown mode", func() {
		cfg := comparison.DefaultConfig()
		cfg.Mode = "random"
		_, err := comparison.New(cfg)
		s.Error(err)
	})

	s.Run("floor above high confidence", func() {
		cfg := comparison.DefaultConfig()
		cfg.MatchFloor = 95
		_, err := comparison.New(cfg)
		s.Error(err)
	})

	s.Run("field names are case insensitive", func() {
		cfg := comparison.DefaultConfig()
		cfg.Fields = map[string]comparison.FieldPolicy{
			"Tax_Ref": {Type: models.FieldIdentifier, Strategies: []string{comparison.StrategyExact}},
		}
		cmp, err := comparison.New(cfg)
		s.Require().NoError(err)

		got := cmp.CompareAll(map[string]string{"tax_ref": "AB-12"}, []models.Document{{
			Processed: true,
			Fields:    map[string]models.ExtractedField{"TAX_REF": {Value: "ab12", Confidence: 0.9}},
		}})
		s.Require().Len(got, 1)
		s.Equal("tax_ref", got[0].Field)
		s.Equal(models.FieldIdentifier, got[0].Type)
		s.Equal(models.ClassExact, got[0].Classification)
	})

	s.Run("field configured twice", func() {
		cfg := comparison.DefaultConfig()
		cfg.Fields = map[string]comparison.FieldPolicy{"Email": {}, "email ": {}}
		_, err := comparison.New(cfg)
		s.Error(err)
	})

	s.Run("unknown strategy", func() {
		cfg := comparison.DefaultConfig()
		cfg.Fields = map[string]comparison.FieldPolicy{"full_name": {Strategies: []string{"metaphone"}}}
		_, err := comparison.New(cfg)
		s.Error(err)
	})
}

func TestSoundex(t *testing.T) {
	cases := map[string]string{
		"Robert":   "R163",
		"Rupert":   "R163",
		"Ashcraft": "A261",
		"Tymczak":  "T522",
		"Pfister":  "P236",
		"Lee":      "L000",
		"":         "",
		"1234":     "",
	}
	for word, want := range cases {
		if got := comparison.Soundex(word); got != want {
			t.Errorf("Soundex(%q) = %q, want %q", word, got, want)
		}
	}
}
