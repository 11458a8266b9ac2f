// Package preferences keeps the user's display preferences in the client
// store.
package preferences

import (
	"context"
	"fmt"

	"github.com/benvon/homehero/internal/storage"
)

// Theme is the colour scheme of the rendered output.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark".
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	default:
		return "", fmt.Errorf("invalid theme %q (must be 'light' or 'dark')", s)
	}
}

// Other returns the theme Toggle would switch to.
func (t Theme) Other() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Themes reads and writes the persisted theme.
type Themes struct {
	store    storage.Store
	fallback Theme
}

// NewThemes returns a Themes that reports fallback until a theme is saved.
func NewThemes(store storage.Store, fallback string) (*Themes, error) {
	t, err := ParseTheme(fallback)
	if err != nil {
		return nil, err
	}
	return &Themes{store: store, fallback: t}, nil
}

// Current returns the saved theme. An unreadable or unknown value reports the
// fallback.
func (t *Themes) Current(ctx context.Context) (Theme, error) {
	v, ok, err := t.store.Get(ctx, storage.KeyTheme)
	if err != nil {
		return t.fallback, fmt.Errorf("failed to read theme: %w", err)
	}
	if !ok {
		return t.fallback, nil
	}
	theme, err := ParseTheme(v)
	if err != nil {
		return t.fallback, nil
	}
	return theme, nil
}

// Set persists theme.
func (t *Themes) Set(ctx context.Context, theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}
	if err := t.store.Set(ctx, storage.KeyTheme, string(theme)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

// Toggle switches between light and dark and returns the new theme.
func (t *Themes) Toggle(ctx context.Context) (Theme, error) {
	cur, err := t.Current(ctx)
	if err != nil {
		return "", err
	}
	next := cur.Other()
	if err := t.Set(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}
