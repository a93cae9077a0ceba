package utils

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// VerifyAccessCode checks a presented role-gate access code against the
// configured value.  Operators may store either a bcrypt hash (preferred)
// or a plain code; plain codes are compared in constant time.  An empty
// configured value means the role gate is closed.
func VerifyAccessCode(configured, presented string) bool {
	if configured == "" || presented == "" {
		return false
	}
	if strings.HasPrefix(configured, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}
