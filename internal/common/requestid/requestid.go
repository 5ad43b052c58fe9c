package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// HeaderName is the inbound header callers may use to correlate log lines
const HeaderName = "X-Request-ID"

const (
	// MaxRequestIDLength matches the length of a UUID string
	MaxRequestIDLength = 36
	PrefixLength       = 5
	MaxCustomIDLength  = MaxRequestIDLength - PrefixLength - 1
)

var (
	invalidChars       = regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	consecutiveHyphens = regexp.MustCompile(`-+`)
)

// GenerateRequestID derives a log-safe request id from an optional caller
// supplied value. The result is "{5 random hex}-{sanitized}" capped at 36
// characters, or a fresh UUID when nothing usable remains.
func GenerateRequestID(customID string) string {
	sanitized := strings.ReplaceAll(customID, " ", "-")
	sanitized = invalidChars.ReplaceAllString(sanitized, "")
	sanitized = consecutiveHyphens.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")

	if sanitized == "" {
		return uuid.New().String()
	}
	if len(sanitized) > MaxCustomIDLength {
		sanitized = sanitized[:MaxCustomIDLength]
	}
	return randomPrefix() + "-" + sanitized
}

func randomPrefix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return uuid.New().String()[:PrefixLength]
	}
	return hex.EncodeToString(buf)[:PrefixLength]
}
