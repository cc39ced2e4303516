package utils

import "github.com/google/uuid"

// IsUUID reports whether s parses as a UUID. Handlers use it to 404 early:
// an unparseable id cannot name an owned record, and postgres would reject
// it with a type error instead of an empty result.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)

	return err == nil
}
