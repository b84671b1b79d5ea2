package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything with a stable identity and audit timestamps
type Entity interface {
	GetID() uuid.UUID
	GetUpdatedAt() time.Time
}

// BaseEntity carries the identity and audit timestamps of a stored record.
// Timestamps are UTC at microsecond precision, the finest both Postgres and
// SQLite keep, so a saved entity reloads with equal times.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetUpdatedAt returns the last modification time
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// Touch stamps UpdatedAt with the current time and returns it
func (e *BaseEntity) Touch() time.Time {
	e.UpdatedAt = Now()
	return e.UpdatedAt
}

// NewBaseEntity creates an entity with a fresh ID, created and updated now
func NewBaseEntity() BaseEntity {
	now := Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Now returns the current time in the precision entities are stored with
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
