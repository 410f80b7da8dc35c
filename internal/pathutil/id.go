package pathutil

import "github.com/google/uuid"

// NewID mints a time-ordered 128-bit identifier (UUIDv7), serialized as a
// lowercase hyphenated string, so that natural insertion order correlates
// with added-at (spec.md §4.C).
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the CSPRNG is broken; there is no
		// sensible recovery, so fall back to a random v4 rather than
		// minting a non-unique ID.
		return uuid.NewString()
	}
	return id.String()
}

// ValidID reports whether s parses as a UUID of any RFC 4122 version, the
// shape required of both release and track identifiers.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
