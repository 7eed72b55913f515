// Package auth proves that the current actor exists and is a legitimate
// party to a transaction. Every transaction-scoped operation goes through
// this gate before touching data.
package auth

import (
	"fmt"

	"github.com/nishio/dealroom/internal/fault"
	"github.com/nishio/dealroom/internal/models"
)

// Identity is the external session collaborator. Implementations resolve
// the current actor for one request; a false ok means no active session.
type Identity interface {
	CurrentUserID() (ok bool, userID string)
}

// IdentityFunc adapts a function to the Identity interface.
type IdentityFunc func() (bool, string)

func (f IdentityFunc) CurrentUserID() (bool, string) { return f() }

// Static returns an Identity fixed to one user. Used at the request
// boundary once the session header is resolved, and in tests.
func Static(userID string) Identity {
	return IdentityFunc(func() (bool, string) { return userID != "", userID })
}

// RequireAuthentication resolves the current user or fails Unauthenticated.
func RequireAuthentication(id Identity) (string, error) {
	ok, userID := id.CurrentUserID()
	if !ok {
		return "", fmt.Errorf("auth: %w", fault.ErrUnauthenticated)
	}
	return userID, nil
}

// RequireParty fails Unauthorized unless userID is the buyer or the
// seller of the transaction. Side-effect free.
func RequireParty(tx *models.Transaction, userID string) error {
	if userID == tx.BuyerID || userID == tx.SellerID {
		return nil
	}
	return fmt.Errorf("auth: user %s is not a party to transaction %s: %w",
		userID, tx.ID, fault.ErrUnauthorized)
}
