package tool

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateToken returns an unguessable URL-safe string for bearer-style
// credentials. UUIDs are not used here: v7 leaks issuance time and neither
// variant promises the full 256 bits of entropy a single-use link needs.
func GenerateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
