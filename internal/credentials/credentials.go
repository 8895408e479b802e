// Package credentials persists issued CSIDs so later commands can
// authenticate without re-onboarding.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/fatoora-client/pkg/zatca"
)

// Kind distinguishes compliance CSIDs from production CSIDs.
type Kind string

const (
	KindCompliance Kind = "compliance"
	KindProduction Kind = "production"
)

// ErrNotFound is returned by Load when the profile file does not exist.
var ErrNotFound = errors.New("credentials profile not found")

// Profile is the on-disk record of the latest issued CSID.
type Profile struct {
	Environment zatca.Environment `yaml:"environment"`
	Kind        Kind              `yaml:"kind"`
	RequestID   string            `yaml:"request_id"`
	Certificate string            `yaml:"certificate"`
	Secret      string            `yaml:"secret"`
	TokenType   string            `yaml:"token_type,omitempty"`
	IssuedAt    time.Time         `yaml:"issued_at"`
}

// FromCertificate builds a profile from an issued CSID.
func FromCertificate(env zatca.Environment, kind Kind, resp *zatca.CertificateResponse) Profile {
	return Profile{
		Environment: env,
		Kind:        kind,
		RequestID:   resp.RequestID.String(),
		Certificate: resp.BinarySecurityToken,
		Secret:      resp.Secret,
		IssuedAt:    time.Now().UTC(),
	}
}

// Validate checks that the profile can be used for Basic auth.
func (p Profile) Validate() error {
	if !p.Environment.Valid() {
		return errors.New("environment is required")
	}
	switch p.Kind {
	case KindCompliance, KindProduction:
	default:
		return fmt.Errorf("unknown credentials kind %q", p.Kind)
	}
	if strings.TrimSpace(p.Certificate) == "" {
		return errors.New("certificate is required")
	}
	if strings.TrimSpace(p.Secret) == "" {
		return errors.New("secret is required")
	}
	return nil
}

// Load reads a profile from path.
func Load(path string) (Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Profile{}, errors.New("credentials file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("read credentials file: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("decode credentials file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("credentials file %s: %w", path, err)
	}
	return p, nil
}

// Save writes p to path with owner-only permissions.
func Save(path string, p Profile) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("credentials file path is empty")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create credentials directory: %w", err)
		}
	}

	raw, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}
