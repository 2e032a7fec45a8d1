package utils

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// GenerateID returns a new unique identifier string
func GenerateID() string {
	return uuid.New().String()
}

// GeneratePushKey returns a unique key that sorts after every key generated
// before it in this process
func GeneratePushKey() string {
	return ulid.Make().String()
}

// GenerateUserSuffix returns nine random uppercase alphanumerics for a user id
func GenerateUserSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}

// ValidRoomID reports whether id is usable as a single store path segment
func ValidRoomID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
