package delivery

import (
	"crypto/rand"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/google/uuid"
)

// localPrefix marks optimistic placeholder ids so they can never collide
// with server-assigned message ids.
const localPrefix = "local-"

// newLocalID mints a placeholder id for an optimistic message. It prefers a
// random UUID, falls back to raw random bytes when uuid generation fails, and
// finally to a time-seeded value if the entropy source itself is unavailable.
func newLocalID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return localPrefix + id.String()
	}
	var b [16]byte
	if _, err := rand.Read(b[:]); err == nil {
		b[6] = (b[6] & 0x0f) | 0x40
		b[8] = (b[8] & 0x3f) | 0x80
		return localPrefix + fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
	}
	return fmt.Sprintf("%s%d-%04d", localPrefix, time.Now().UnixNano(), mrand.Intn(10000))
}
