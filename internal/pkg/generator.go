package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	roomIDMin   = 100000
	roomIDRange = 900000
)

// GenerateRoomID - generates a six digit room code. Uniqueness is not checked.
func GenerateRoomID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(roomIDRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate room id: %w", err)
	}

	return fmt.Sprintf("%d", roomIDMin+n.Int64()), nil
}

// GenerateNewSessionID - generates a new unique session id for a connection.
func GenerateNewSessionID() string {
	return uuid.NewString()
}
