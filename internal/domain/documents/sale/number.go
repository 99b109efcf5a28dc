package sale

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewNumber formats a human-readable sale number: SALE-<yyyyMMdd>-<8 hex>.
// The date is taken in UTC and the suffix comes from a random UUIDv4.
// Numbers are not guaranteed unique and are never used as a key.
func NewNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "SALE-" + at.UTC().Format("20060102") + "-" + suffix
}
