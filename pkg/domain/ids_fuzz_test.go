//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseRequestID checks that parsing never panics and that accepted IDs
// round-trip.
func FuzzParseRequestID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE verification_requests;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseRequestID(input)
		if err == nil {
			roundTrip, err2 := ParseRequestID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

func FuzzParseAllIDs(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errRequest := ParseRequestID(input)
		_, errDocument := ParseDocumentID(input)
		_, errDiscrepancy := ParseDiscrepancyID(input)

		if (errRequest == nil) != (errDocument == nil) || (errRequest == nil) != (errDiscrepancy == nil) {
			t.Error("inconsistent parsing across ID types")
		}
	})
}
