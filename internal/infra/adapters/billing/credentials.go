package billing

import (
	"context"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/ports/adapter"
)

var _ adapter.CredentialSource = StaticCredentials("")

// StaticCredentials serves a single access token loaded from configuration.
type StaticCredentials string

func (s StaticCredentials) AccessToken(ctx context.Context) (string, error) {
	if s == "" {
		return "", domain.ErrInvalidArgument
	}
	return string(s), nil
}
