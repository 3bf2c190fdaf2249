package domain

// RecoveryCodeLength is the fixed length of a recovery code (hex chars).
// Verify uses it to distinguish recovery codes from TOTP codes.
const RecoveryCodeLength = 10

// RecoveryCodeCount is how many codes are generated at enrollment.
const RecoveryCodeCount = 5

// TwoFAEnrollment is returned exactly once, at registration time. The
// plaintext recovery codes are never retrievable again.
type TwoFAEnrollment struct {
	URL           string   `json:"url"`
	RecoveryCodes []string `json:"recovery"`
}

// RecoveryCode is a single-use fallback credential for 2FA.
type RecoveryCode struct {
	ID     int64
	UserID int64
	Code   string
	Used   bool
}
