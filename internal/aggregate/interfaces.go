package aggregate

import (
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces sweep run IDs.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}
