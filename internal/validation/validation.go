// Package validation provides input validation for bountyd.
package validation

import (
	"errors"
	"regexp"
	"strings"

	"github.com/holiman/uint256"
	"github.com/ipfs/go-cid"
)

// Wallet addresses: 0x-prefixed, 20 bytes of hex.
var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidateAddress validates a wallet address
func ValidateAddress(addr string) error {
	if addr == "" {
		return errors.New("address cannot be empty")
	}
	if !addressRegex.MatchString(addr) {
		return errors.New("invalid address: must be 0x followed by 40 hex characters")
	}
	return nil
}

// NormalizeAddress lowercases an address so lookups are case-insensitive
func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

// ValidateContentRef validates a content reference. References are IPFS
// CIDs (v0 or v1); the service never resolves them, but a ref that is
// not a CID can never be fetched by any consumer, so it is refused at
// the door.
func ValidateContentRef(ref string) error {
	if ref == "" {
		return errors.New("content reference cannot be empty")
	}
	if len(ref) > 256 {
		return errors.New("content reference too long (max 256 chars)")
	}
	if _, err := cid.Decode(ref); err != nil {
		return errors.New("content reference is not a valid CID")
	}
	return nil
}

// ParseAmount parses a decimal wei amount
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, errors.New("amount cannot be empty")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errors.New("invalid amount: must be a decimal integer below 2^256")
	}
	return v, nil
}

// ParsePositiveAmount parses a decimal wei amount and rejects zero
func ParsePositiveAmount(s string) (*uint256.Int, error) {
	v, err := ParseAmount(s)
	if err != nil {
		return nil, err
	}
	if v.IsZero() {
		return nil, errors.New("amount must be greater than zero")
	}
	return v, nil
}

// ValidateDuration validates a bounty duration in seconds
func ValidateDuration(seconds int64) error {
	if seconds <= 0 {
		return errors.New("duration must be greater than zero")
	}
	// ~10 years; anything longer is almost certainly a unit mistake
	if seconds > 315_360_000 {
		return errors.New("duration too long")
	}
	return nil
}
