package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderID returns a new storefront order id, e.g. "ord_3f1c...".
func GenerateOrderID() string {
	return "ord_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func GenerateEventID() string {
	return uuid.NewString()
}

func UnixTimeToTime(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}

// GenerateSecret returns n random bytes, hex encoded.
func GenerateSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
