package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// RealmAccess models Keycloak's realm role container claim.
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// Claims models the claims present in a Keycloak-issued access token for
// a netsoc account. The profile and email scopes must have been granted,
// otherwise the username/email claims are absent.
type Claims struct {
	jwt.RegisteredClaims

	PreferredUsername string      `json:"preferred_username"`
	Email             string      `json:"email"`
	RealmAccess       RealmAccess `json:"realm_access"`
	Scope             string      `json:"scope"`
}

// Account extracts the identity from verified claims. It fails when the
// token was issued without the profile or email scope.
func (c *Claims) Account() (*User, error) {
	if c.PreferredUsername == "" {
		return nil, fmt.Errorf("token missing profile scope")
	}
	if c.Email == "" {
		return nil, fmt.Errorf("token missing email scope")
	}

	user := &User{
		Username: c.PreferredUsername,
		Email:    c.Email,
		Roles:    append([]string(nil), c.RealmAccess.Roles...),
	}
	if c.ExpiresAt != nil {
		user.Expiry = c.ExpiresAt.Time
	}
	return user, nil
}

// HasRole reports whether the realm roles include the given role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.RealmAccess.Roles {
		if r == role {
			return true
		}
	}
	return false
}
