// Package ticket signs activity launch tickets so a running activity survives
// page reloads without server-side state.
package ticket

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TTL is how long a launch ticket stays valid.
const TTL = 2 * time.Hour

const issuer = "therapro"

// ErrInvalidTicket covers tampered, expired and malformed tickets.
var ErrInvalidTicket = errors.New("invalid launch ticket")

// Claims name the activity, the child it runs for and the account that started it.
type Claims struct {
	ActivityID string `json:"act"`
	ChildID    string `json:"child"`
	AccountID  string `json:"account"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 launch tickets.
type Signer struct {
	key []byte
	now func() time.Time
}

// NewSigner returns a Signer keyed with secret.
// PRE: secret is non-empty
func NewSigner(secret []byte) *Signer {
	return &Signer{key: secret, now: time.Now}
}

// Issue signs a ticket for one launch.
// POST: the ticket verifies until TTL has passed
func (s *Signer) Issue(activityID, childID, accountID string) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		ActivityID: activityID,
		ChildID:    childID,
		AccountID:  accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Verify checks signature, expiry and issuer, and that the ticket belongs to accountID.
func (s *Signer) Verify(raw, accountID string) (Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidTicket, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountID != accountID || claims.ActivityID == "" || claims.ChildID == "" {
		return Claims{}, ErrInvalidTicket
	}
	return *claims, nil
}
