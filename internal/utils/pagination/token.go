package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
)

const dateFormat = "2006-01-02"

// EncodeToken creates an opaque cursor from the sort key (date, entry id) of
// the last entry on a page.
func EncodeToken(occurredOn time.Time, entryID string) string {
	tokenStr := fmt.Sprintf("%s|%s", occurredOn.UTC().Format(dateFormat), entryID)
	return base64.RawURLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a cursor produced by EncodeToken. Malformed tokens are
// reported as apperrors.ErrValidation.
func DecodeToken(token string) (time.Time, string, error) {
	decodedBytes, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: invalid pagination token (base64 decode)", apperrors.ErrValidation)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("%w: invalid pagination token (split)", apperrors.ErrValidation)
	}
	occurredOn, err := time.Parse(dateFormat, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: invalid pagination token (date parse)", apperrors.ErrValidation)
	}
	return occurredOn, parts[1], nil
}

// After reports whether the key (occurredOn, entryID) sorts after the cursor.
func After(occurredOn time.Time, entryID string, cursorDate time.Time, cursorID string) bool {
	d := occurredOn.UTC().Format(dateFormat)
	c := cursorDate.UTC().Format(dateFormat)
	if d != c {
		return d > c
	}
	return entryID > cursorID
}
