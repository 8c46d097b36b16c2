// Package id generates identifiers for database rows and storage objects.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// objectAlphabet avoids '-' and '_' so object tokens never collide with the
// '_' that separates a token from the original filename in a storage key.
const objectAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// objectTokenLength gives ~119 bits of entropy with the alphanumeric alphabet.
const objectTokenLength = 20

// New returns a random (v4) UUID string used as a primary key.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}

// ObjectToken creates a collision-resistant token for blob storage keys.
//
// Returns an error if the system has insufficient entropy for secure random generation.
func ObjectToken() (string, error) {
	token, err := gonanoid.Generate(objectAlphabet, objectTokenLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return token, nil
}

// MustObjectToken is like ObjectToken but panics if generation fails.
// Use this only when failure should crash the program (e.g., during seeding).
func MustObjectToken() string {
	token, err := ObjectToken()
	if err != nil {
		panic(fmt.Sprintf("failed to generate object token: %v", err))
	}
	return token
}
