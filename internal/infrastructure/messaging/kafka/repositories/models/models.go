package models

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Message is the envelope every entity travels in. Hash is the hex sha256 of
// Content and doubles as the partition key.
type Message struct {
	ID         uuid.UUID       `json:"id"`
	Kind       string          `json:"kind"`
	Content    json.RawMessage `json:"content"`
	Hash       string          `json:"hash"`
	ProducedAt time.Time       `json:"producedAt"`
}
