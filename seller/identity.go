// Copyright (c) 2025 BVK Chaitanya

package seller

import (
	"maps"
	"slices"
	"strings"
)

// Identity holds the credentials of a logged-in portal user. Identity values
// are immutable and are replaced as a whole when refreshed.
type Identity struct {
	token   string
	cookies map[string]string
}

// NewIdentity creates an identity from an access token and the browser
// cookies.
func NewIdentity(token string, cookies map[string]string) *Identity {
	return &Identity{
		token:   token,
		cookies: maps.Clone(cookies),
	}
}

// Token returns the access token, which is sent in the authorizev3 header.
func (v *Identity) Token() string {
	return v.token
}

// Cookies returns a copy of the cookie name-value pairs.
func (v *Identity) Cookies() map[string]string {
	return maps.Clone(v.cookies)
}

// CookieHeader renders the cookies in the "k1=v1; k2=v2" form, ordered by
// cookie name.
func (v *Identity) CookieHeader() string {
	names := slices.Sorted(maps.Keys(v.cookies))
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+v.cookies[name])
	}
	return strings.Join(parts, "; ")
}
