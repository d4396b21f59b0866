package creds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"airdate/internal/services"
)

// tokenFile mirrors the on-disk JSON layout produced by Google's OAuth
// tooling so an externally minted token can be dropped in place unchanged.
type tokenFile struct {
	AccessToken  string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry,omitempty"`
}

const expiryLayout = time.RFC3339

func readTokenFile(path string) (*tokenFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrConfiguration, component, "load",
				fmt.Sprintf("no credential file at %s; run the token import flow first", path), err)
		}
		return nil, services.Wrap(services.ErrConfiguration, component, "load", "read credential file", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "load", "parse credential file", err)
	}
	if strings.TrimSpace(tf.RefreshToken) == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "load",
			"credential file has no refresh token", nil)
	}
	if tf.TokenURI == "" || tf.ClientID == "" || tf.ClientSecret == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "load",
			"credential file is missing token_uri, client_id, or client_secret", nil)
	}
	return &tf, nil
}

// writeTokenFile persists credentials atomically with owner-only permissions.
func writeTokenFile(path string, tf *tokenFile) error {
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".airdate-token-*")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credential file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

func (tf *tokenFile) oauthToken() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  tf.AccessToken,
		RefreshToken: tf.RefreshToken,
		TokenType:    "Bearer",
	}
	if tf.Expiry != "" {
		if expiry, err := time.Parse(expiryLayout, tf.Expiry); err == nil {
			tok.Expiry = expiry
		}
	}
	return tok
}

func (tf *tokenFile) applyToken(tok *oauth2.Token) {
	tf.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		tf.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		tf.Expiry = tok.Expiry.UTC().Format(expiryLayout)
	}
}
