package models

import (
	"time"
)

// IdempotencyRecord stores the response of a completed mutating request
// under its client-supplied key. Replays return Status/Body verbatim and
// skip the underlying operation entirely.
type IdempotencyRecord struct {
	Key       string    `json:"key" db:"key"`
	Status    int       `json:"status" db:"status"`
	Body      []byte    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
