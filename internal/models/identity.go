package models

import "time"

// Identity is the authenticated user record reported by the identity provider.
// Only DisplayName and PhotoURL change locally, through a profile update.
type Identity struct {
	UID            string     `json:"uid" yaml:"uid"`
	Email          string     `json:"email" yaml:"email"`
	DisplayName    string     `json:"displayName,omitempty" yaml:"display_name,omitempty"`
	PhotoURL       string     `json:"photoURL,omitempty" yaml:"photo_url,omitempty"`
	EmailVerified  bool       `json:"emailVerified" yaml:"email_verified"`
	ProviderID     string     `json:"providerId,omitempty" yaml:"provider_id,omitempty"`
	CreationTime   time.Time  `json:"creationTime" yaml:"creation_time"`
	LastSignInTime *time.Time `json:"lastSignInTime,omitempty" yaml:"last_sign_in_time,omitempty"`
}

// Clone returns a copy that shares no pointers with i.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.LastSignInTime != nil {
		t := *i.LastSignInTime
		c.LastSignInTime = &t
	}
	return &c
}

// WithProfile returns a copy of i carrying the given display name and photo URL.
func (i *Identity) WithProfile(displayName, photoURL string) *Identity {
	c := i.Clone()
	if c == nil {
		return nil
	}
	c.DisplayName = displayName
	c.PhotoURL = photoURL
	return c
}

// JWTClaims represents the claims extracted from a provider ID token
type JWTClaims struct {
	Sub           string `json:"sub"`            // Subject (user ID from provider)
	Email         string `json:"email"`          // User email
	EmailVerified bool   `json:"email_verified"` // Provider-asserted verification flag
	Name          string `json:"name"`           // Display name
	Picture       string `json:"picture"`        // Photo URL
	AuthTime      int64  `json:"auth_time"`      // Last authentication
	Exp           int64  `json:"exp"`            // Expiration time
	Iat           int64  `json:"iat"`            // Issued at
	Iss           string `json:"iss"`            // Issuer
	Aud           string `json:"aud"`            // Audience
}
