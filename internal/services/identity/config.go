package identity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/homehero/internal/storage"
)

// Config configures the identity client.
type Config struct {
	APIKey         string
	ProjectID      string // enables ID-token verification together with JWKSURL
	IdentityURL    string
	SecureTokenURL string
	JWKSURL        string

	Google *GoogleConfig // nil disables federated sign-in

	Store      storage.Store
	HTTPClient *http.Client
	Logger     *zap.Logger
	Now        func() time.Time
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("identity API key is required")
	}
	if c.IdentityURL == "" {
		return fmt.Errorf("identity URL is required")
	}
	if c.SecureTokenURL == "" {
		return fmt.Errorf("secure token URL is required")
	}
	if c.Store == nil {
		return fmt.Errorf("identity store is required")
	}
	if c.Google != nil && c.Google.ClientID == "" {
		return fmt.Errorf("google client ID is required for federated sign-in")
	}
	return nil
}

func (c *Config) setDefaults() {
	c.IdentityURL = strings.TrimRight(c.IdentityURL, "/")
	c.SecureTokenURL = strings.TrimRight(c.SecureTokenURL, "/")
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
