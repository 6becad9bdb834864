package d2sm

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies timestamps for records the service creates.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator supplies archive ids.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random (version 4) UUID strings.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.NewString() }
