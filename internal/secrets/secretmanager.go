package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type secretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// SecretManagerSource reads credentials from Google Cloud Secret Manager,
// always resolving the latest version of the secret.
type SecretManagerSource struct {
	accessor secretAccessor
	closer   func() error
	project  string
}

func NewSecretManagerSource(ctx context.Context, project, credentialsFile string) (*SecretManagerSource, error) {
	if project == "" {
		return nil, fmt.Errorf("secret manager: project is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &SecretManagerSource{
		accessor: client,
		closer:   client.Close,
		project:  project,
	}, nil
}

func (s *SecretManagerSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func (s *SecretManagerSource) Lookup(ctx context.Context, name string) (string, error) {
	resp, err := s.accessor.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.versionName(name),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}

	value := strings.TrimSpace(string(resp.GetPayload().GetData()))
	if value == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return value, nil
}

func (s *SecretManagerSource) versionName(name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, name)
}
