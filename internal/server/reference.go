package server

import (
	"fmt"
	"math/rand"
	"time"
)

// newReference generates a reference code of the shape PREFIX-YYYYMM-NNNN,
// e.g. RARE-202501-0042. The 4-digit suffix is random; the code is a receipt
// marker, not an identifier with uniqueness guarantees.
func newReference(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, now.Format("200601"), rand.Intn(10000))
}
