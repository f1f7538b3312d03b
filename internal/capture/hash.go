package capture

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// userHashKey domain-separates user id hashes from other blake2b uses.
var userHashKey = []byte("scry-capture/user-id/v1")

// HashUserID returns the opaque user identifier sent to the analysis service.
func HashUserID(userID string) string {
	// blake2b.New256 only fails for keys longer than 64 bytes.
	h, err := blake2b.New256(userHashKey)
	if err != nil {
		panic(err)
	}
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}
