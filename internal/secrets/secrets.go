// Package secrets resolves provider credentials at request time.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNotFound = errors.New("secret not found")

// Source looks up a credential by name. Implementations return ErrNotFound
// (possibly wrapped) when the credential is absent or blank.
type Source interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// EnvSource reads credentials from the process environment on every lookup so
// rotated keys are picked up without a restart.
type EnvSource struct {
	// Fallbacks lists alternative variable names tried in order when the
	// primary name is unset.
	Fallbacks map[string][]string
}

func NewEnvSource(fallbacks map[string][]string) *EnvSource {
	return &EnvSource{Fallbacks: fallbacks}
}

func (s *EnvSource) Lookup(_ context.Context, name string) (string, error) {
	names := append([]string{name}, s.Fallbacks[name]...)
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Chain tries each source in order and returns the first credential found.
type Chain []Source

func (c Chain) Lookup(ctx context.Context, name string) (string, error) {
	var errs []error
	for _, s := range c {
		v, err := s.Lookup(ctx, name)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return "", errors.Join(errs...)
}
