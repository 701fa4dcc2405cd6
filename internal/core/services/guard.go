package services

import (
	"fmt"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
)

// Authorize fails closed: an empty caller, an empty claimed owner or any mismatch
// is rejected with apperrors.ErrUnauthorized.
func Authorize(callerID, claimedOwnerID string) error {
	if callerID == "" {
		return fmt.Errorf("%w: no authenticated caller", apperrors.ErrUnauthorized)
	}
	if claimedOwnerID == "" {
		return fmt.Errorf("%w: owner not specified", apperrors.ErrUnauthorized)
	}
	if callerID != claimedOwnerID {
		return fmt.Errorf("%w: caller may not act for owner %s", apperrors.ErrUnauthorized, claimedOwnerID)
	}
	return nil
}
