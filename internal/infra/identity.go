// README: Identity verification against the auth collaborator.
package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TokenVerifier resolves a bearer token to a stable user id. The auth service
// owning accounts and sessions lives outside this subsystem.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type AuthServiceVerifier struct {
	baseURL string
	client  *http.Client
}

func NewAuthServiceVerifier(baseURL string) *AuthServiceVerifier {
	return &AuthServiceVerifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *AuthServiceVerifier) Verify(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/whoami", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth service: status %d", resp.StatusCode)
	}
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.UserID == "" {
		return "", fmt.Errorf("auth service: empty user id")
	}
	return payload.UserID, nil
}

// HeaderVerifier trusts the token as the user id itself. Used for local
// development when no auth service is configured.
type HeaderVerifier struct{}

func (HeaderVerifier) Verify(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	return token, nil
}
