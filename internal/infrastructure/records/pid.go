package records

import (
	"fmt"

	"github.com/google/uuid"
)

// newPersistentID generates a short, human-pasteable lineage identifier.
// The format is two base16 groups taken from a fresh UUID, e.g. "9f3ab2-c41d8e".
func newPersistentID() string {
	raw := uuid.New()
	hex := fmt.Sprintf("%x", raw[:])
	return fmt.Sprintf("%s-%s", hex[:6], hex[6:12])
}
