package password

import (
	"errors"
	"unicode"
)

// Policy is the minimum-entropy gate applied at registration and
// password change. Zero values disable the corresponding check.
type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSymbol  bool
	MaxLengthBytes int // guards against argon2 DoS via huge inputs
}

// ErrPolicyViolation is returned by [Policy.Check] for any failing rule.
// The message never echoes the password.
var ErrPolicyViolation = errors.New("password policy violation")

// DefaultPolicy matches common guidance: 10+ chars, mixed case, a digit.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:      10,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		MaxLengthBytes: 1024,
	}
}

// Check validates password against the policy.
func (p Policy) Check(password string) error {
	if p.MaxLengthBytes > 0 && len(password) > p.MaxLengthBytes {
		return ErrPolicyViolation
	}
	if len(password) < p.MinLength {
		return ErrPolicyViolation
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	if p.RequireUpper && !hasUpper {
		return ErrPolicyViolation
	}
	if p.RequireLower && !hasLower {
		return ErrPolicyViolation
	}
	if p.RequireDigit && !hasDigit {
		return ErrPolicyViolation
	}
	if p.RequireSymbol && !hasSymbol {
		return ErrPolicyViolation
	}

	return nil
}
