package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// OTPDigits is the length of generated verification codes.
const OTPDigits = 6

// DefaultOTPTTL is how long a verification code stays valid.
const DefaultOTPTTL = 10 * time.Minute

var otpMax = big.NewInt(1000000)

// GenerateOTP produces a uniformly random 6-digit code and its expiry.
// Leading zeros are allowed, so the code is a string and must be compared as
// one. The randomness source is crypto/rand, unpredictable to an attacker
// who knows the issuance time.
func GenerateOTP(ttl time.Duration) (code string, expiresAt time.Time, err error) {
	if ttl == 0 {
		ttl = DefaultOTPTTL
	}
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generating otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), time.Now().Add(ttl), nil
}

// otpEqual compares two codes in constant time.
func otpEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
