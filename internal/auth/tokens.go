package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/racingnotes/racingnotes-server/internal/id"
)

const (
	tokenIssuer   = "racingnotes-server"
	tokenAudience = "racingnotes-share"
	noteIDClaim   = "note_id"
)

// ErrInvalidToken is returned for tokens that fail decryption or validation.
var ErrInvalidToken = errors.New("invalid share token")

// ShareClaims are the verified contents of a share token.
type ShareClaims struct {
	NoteID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ShareTokens issues PASETO v4.local tokens granting read access to one note.
// Tokens are encrypted, so the note ID is not visible to the holder.
type ShareTokens struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
	now func() time.Time
}

// NewShareTokens creates a token service from a 64-character hex key.
func NewShareTokens(keyHex string, ttl time.Duration) (*ShareTokens, error) {
	if len(keyHex) != keyHexLength {
		return nil, fmt.Errorf("share key must be exactly %d hex characters, got %d", keyHexLength, len(keyHex))
	}
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string for share key: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("create symmetric key: %w", err)
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &ShareTokens{key: key, ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *ShareTokens) TTL() time.Duration {
	return s.ttl
}

// Issue creates a token for noteID.
func (s *ShareTokens) Issue(noteID string) (string, time.Time, error) {
	if noteID == "" {
		return "", time.Time{}, errors.New("note id is required")
	}
	now := s.now()
	expires := now.Add(s.ttl)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)
	token.SetJti(id.New())
	//nolint:errcheck // Set only fails for values that cannot be marshaled
	_ = token.Set(noteIDClaim, noteID)

	return token.V4Encrypt(s.key, nil), expires, nil
}

// Verify decrypts a token and checks issuer, audience and validity window.
func (s *ShareTokens) Verify(tokenString string) (*ShareClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	noteID, err := token.GetString(noteIDClaim)
	if err != nil || noteID == "" {
		return nil, fmt.Errorf("%w: missing note id", ErrInvalidToken)
	}
	claims := &ShareClaims{NoteID: noteID}
	claims.TokenID, _ = token.GetJti()
	claims.IssuedAt, _ = token.GetIssuedAt()
	claims.ExpiresAt, _ = token.GetExpiration()
	return claims, nil
}
