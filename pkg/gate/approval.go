package gate

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ApprovalAudience is the audience claim bound into approval tokens.
const ApprovalAudience = "warden-approval"

// ApprovalVerifier issues and verifies the human-approval tokens that
// CRITICAL plans require before ACCEPT can ever reach hand-off. Tokens
// are HS256-signed and bound to a single plan id.
type ApprovalVerifier struct {
	key   []byte
	clock func() time.Time
}

// NewApprovalVerifier creates a verifier over a shared signing key.
func NewApprovalVerifier(key []byte) *ApprovalVerifier {
	return &ApprovalVerifier{key: key, clock: time.Now}
}

// WithClock overrides the clock for deterministic testing.
func (v *ApprovalVerifier) WithClock(clock func() time.Time) *ApprovalVerifier {
	v.clock = clock
	return v
}

// Issue mints an approval token for one plan, signed by the approver.
func (v *ApprovalVerifier) Issue(planID, approverID string, ttl time.Duration) (string, error) {
	now := v.clock()
	claims := jwt.RegisteredClaims{
		Subject:   approverID,
		Audience:  jwt.ClaimStrings{ApprovalAudience},
		ID:        planID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.key)
	if err != nil {
		return "", fmt.Errorf("gate: signing approval token: %w", err)
	}
	return signed, nil
}

// Verify checks an approval token against a plan id: signature,
// audience, expiry, and plan binding all must hold.
func (v *ApprovalVerifier) Verify(tokenString, planID string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return v.key, nil
		},
		jwt.WithAudience(ApprovalAudience),
		jwt.WithTimeFunc(v.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return fmt.Errorf("gate: approval token invalid: %w", err)
	}
	if claims.ID != planID {
		return fmt.Errorf("gate: approval token is for plan %q, not %q", claims.ID, planID)
	}
	return nil
}
