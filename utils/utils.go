package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// CreateCode returns prefix followed by n random hex characters, uppercased.
// Collision resistance comes from the suffix length; callers that need hard
// uniqueness enforce it with a unique index.
func CreateCode(prefix string, n int) (string, error) {
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	suffix := strings.ToUpper(hex.EncodeToString(b))[:n]
	return prefix + suffix, nil
}

func StringPtr(s string) *string {
	return &s
}

func BoolPtr(b bool) *bool {
	return &b
}

func IntPtr(i int) *int {
	return &i
}

func Int64Ptr(i int64) *int64 {
	return &i
}
