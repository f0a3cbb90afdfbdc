package domain

import "time"

// DenyReason explains why a request or issuance was refused.
type DenyReason string

const (
	DenyInvalidCredential        DenyReason = "INVALID_CREDENTIAL"
	DenyMissingOrMalformedHeader DenyReason = "MISSING_OR_MALFORMED_HEADER"
	DenyInvalidToken             DenyReason = "INVALID_TOKEN"
	DenyTokenExpired             DenyReason = "TOKEN_EXPIRED"
)

// Issuance records metadata about a minted access token.
// SubjectFingerprint is a digest of the credential, never the credential itself.
type Issuance struct {
	ID                 string
	SubjectFingerprint string
	IssuedAt           time.Time
	ExpiresAt          time.Time
}
