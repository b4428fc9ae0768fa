// internal/daily/daily.go
//
// Calendar helpers for once-per-day features.
//   - DateKey: the UTC day a spin or quiz claim belongs to.
//   - Index: the offset of a day's quiz rotation.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC. Claim dates on profiles use this form.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Index picks a position in [0, n) for the day of t. The same day and salt
// always give the same position. The salt is a server secret; without it
// anyone could compute the quiz order for a future day from the date.
// It returns 0 when n <= 0.
func Index(t time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(DateKey(t)))
	v := binary.BigEndian.Uint64(mac.Sum(nil))
	return int(v % uint64(n))
}
