package secrets

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Secret is a YAML scalar that is either a literal value or a
// `!secret /parameter/path` reference resolved on demand.
type Secret struct {
	Path  string
	Value string
}

func (s *Secret) UnmarshalYAML(node *yaml.Node) error {
	*s = Secret{}

	if node.Tag == "!secret" {
		return node.Decode(&s.Path)
	}

	return node.Decode(&s.Value)
}

func (s Secret) String() string {
	if s.Path == "" {
		if s.Value == "" {
			return ""
		}
		return "(redacted)"
	}

	return fmt.Sprintf("!secret %s", s.Path)
}

func (s Secret) IsZero() bool {
	return s.Path == "" && s.Value == ""
}

// NeedsResolver reports whether Resolve will call out to a Resolver.
func (s Secret) NeedsResolver() bool {
	return s.Path != "" && s.Value == ""
}

func (s *Secret) Resolve(ctx context.Context, resolver Resolver) (string, error) {
	if !s.NeedsResolver() {
		return s.Value, nil
	}

	if resolver == nil {
		return "", errors.Errorf("no resolver for secret %s", s.Path)
	}

	v, err := resolver.Resolve(ctx, s.Path)
	if err != nil {
		return "", err
	}

	s.Value = v
	return v, nil
}
