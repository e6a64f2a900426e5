package domain

import "testing"

// FuzzParseCandidateID checks that parsing arbitrary input never panics and
// that every accepted value round-trips through its string form.
func FuzzParseCandidateID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseCandidateID(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseCandidateID(id.String())
		if err != nil {
			t.Fatalf("accepted ID failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Fatal("round-trip changed the ID value")
		}
	})
}
