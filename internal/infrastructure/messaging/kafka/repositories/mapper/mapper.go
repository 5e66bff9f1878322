package mapper

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/google/uuid"
	"github.com/whiteelite/relay/internal/infrastructure/messaging/kafka/repositories/models"
	shared "github.com/whiteelite/relay/pkg/shared/domain/entities"
)

func ToMessage[T shared.Entity](kind string, entity *T) (*models.Message, error) {
	if entity == nil {
		return nil, fmt.Errorf("nil %s entity", kind)
	}
	serialized, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}

	return &models.Message{
		ID:         uuid.New(),
		Kind:       kind,
		Content:    serialized,
		Hash:       Hash(serialized),
		ProducedAt: time.Now().UTC(),
	}, nil
}

// FromMessage decodes the envelope's content, refusing envelopes of another
// kind or whose content does not match the hash.
func FromMessage[T shared.Entity](kind string, message *models.Message) (*T, error) {
	if message.Kind != kind {
		return nil, fmt.Errorf("unexpected message kind %q, want %q", message.Kind, kind)
	}
	if got := Hash(message.Content); got != message.Hash {
		return nil, fmt.Errorf("message %s content hash mismatch", message.ID)
	}

	entity := new(T)
	if err := json.Unmarshal(message.Content, entity); err != nil {
		return nil, err
	}

	return entity, nil
}

func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
