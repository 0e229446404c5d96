package domain

import (
	"strings"
	"time"
)

const (
	// KeyLength is the number of significant characters in a product key.
	KeyLength = 25
	// keyGroupSize is the display grouping width (XXXXX-XXXXX-...).
	keyGroupSize = 5
	// keyAlphabet is the character set product keys are drawn from.
	keyAlphabet = "ABCDEFGHJKMNPQRTUVWXY2346789"
)

// Key is a single redeemable product key, optionally pinned to a region.
type Key struct {
	Raw       string    `json:"key"`
	Region    string    `json:"region,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewKey(raw, region string) Key {
	return Key{
		Raw:       strings.TrimSpace(raw),
		Region:    strings.TrimSpace(region),
		CreatedAt: time.Now(),
	}
}

// Normalized strips punctuation and casing, leaving only the significant characters.
func (k Key) Normalized() string {
	var b strings.Builder
	b.Grow(len(k.Raw))
	for _, r := range k.Raw {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// Formatted renders the key in the canonical grouped form.
// Keys that do not normalize to the expected length are returned as entered.
func (k Key) Formatted() string {
	cleaned := k.Normalized()
	if len(cleaned) != KeyLength {
		return k.Raw
	}

	groups := make([]string, 0, KeyLength/keyGroupSize)
	for i := 0; i < KeyLength; i += keyGroupSize {
		groups = append(groups, cleaned[i:i+keyGroupSize])
	}
	return strings.Join(groups, "-")
}

// IsValidFormat reports whether the key is 25 characters from the key alphabet.
// It says nothing about whether the key is redeemable.
func (k Key) IsValidFormat() bool {
	cleaned := k.Normalized()
	if len(cleaned) != KeyLength {
		return false
	}
	for _, r := range cleaned {
		if !strings.ContainsRune(keyAlphabet, r) {
			return false
		}
	}
	return true
}
