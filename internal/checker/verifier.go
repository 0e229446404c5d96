package checker

import (
	"context"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
)

// VerifyStatus is the raw classification reported by the remote check.
type VerifyStatus string

const (
	VerifySuccess     VerifyStatus = "success"
	VerifyUsed        VerifyStatus = "used"
	VerifyInvalid     VerifyStatus = "invalid"
	VerifyRegionError VerifyStatus = "region_error"
	VerifyDisabled    VerifyStatus = "disabled"
	VerifyUnknown     VerifyStatus = "unknown"
	VerifyError       VerifyStatus = "error"
)

// VerifyResult is the structured outcome of submitting one key.
type VerifyResult struct {
	Status  VerifyStatus
	Message string
}

// Verifier performs the actual remote check for one session. The checker
// drives it strictly in Login, Navigate, CheckKey, Logout order and always
// calls Close, even when Login never succeeded.
type Verifier interface {
	Login(ctx context.Context, account *domain.Account) error
	Navigate(ctx context.Context) error
	CheckKey(ctx context.Context, formattedKey string) (VerifyResult, error)
	Logout(ctx context.Context) error
	Close() error
}

// VerifierFactory builds a fresh Verifier per check. Sessions are never
// shared between checks.
type VerifierFactory func() Verifier
