package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/benvon/homehero/internal/models"
)

// SecureTokenIssuerPrefix precedes the project ID in the iss claim of
// provider ID tokens.
const SecureTokenIssuerPrefix = "https://securetoken.google.com/"

// Verifier verifies provider ID tokens
type Verifier struct {
	jwksManager *JWKSManager
	jwksURL     string
	issuer      string
	audience    string
	skew        time.Duration
}

// NewVerifier creates a verifier for tokens issued to projectID.
func NewVerifier(jwksManager *JWKSManager, jwksURL, projectID string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		jwksURL:     jwksURL,
		issuer:      SecureTokenIssuerPrefix + projectID,
		audience:    projectID,
		skew:        30 * time.Second,
	}
}

// Verify verifies a JWT token and extracts claims
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := v.parse(ctx, tokenString)
	if err != nil {
		// Retry once against a fresh key set in case the issuer rotated keys
		v.jwksManager.Invalidate(v.jwksURL)
		var retryErr error
		token, retryErr = v.parse(ctx, tokenString)
		if retryErr != nil {
			return nil, err
		}
	}

	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
	}
	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}
	if !token.Expiration().IsZero() {
		claims.Exp = token.Expiration().Unix()
	}
	if !token.IssuedAt().IsZero() {
		claims.Iat = token.IssuedAt().Unix()
	}

	if email, ok := token.Get("email"); ok {
		if emailStr, ok := email.(string); ok {
			claims.Email = emailStr
		}
	}

	if verified, ok := token.Get("email_verified"); ok {
		if b, ok := verified.(bool); ok {
			claims.EmailVerified = b
		}
	}

	if name, ok := token.Get("name"); ok {
		if nameStr, ok := name.(string); ok {
			claims.Name = nameStr
		}
	}

	if picture, ok := token.Get("picture"); ok {
		if pictureStr, ok := picture.(string); ok {
			claims.Picture = pictureStr
		}
	}

	if authTime, ok := token.Get("auth_time"); ok {
		if authFloat, ok := authTime.(float64); ok {
			claims.AuthTime = int64(authFloat)
		}
	}

	if claims.Sub == "" {
		return nil, fmt.Errorf("token missing subject claim")
	}

	return claims, nil
}

func (v *Verifier) parse(ctx context.Context, tokenString string) (jwt.Token, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithAcceptableSkew(v.skew),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}
	return token, nil
}
