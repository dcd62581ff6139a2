package domain

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// GenerateOrderNumber builds a human-readable order number of the form
// <prefix>-<YYYYMMDD>-<6 chars>. The suffix is the tail of a fresh ULID,
// so collisions are possible; callers retry on duplicate-key insert.
func GenerateOrderNumber(prefix string, at time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), id[len(id)-6:])
}
