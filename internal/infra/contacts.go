// README: Contact lookup against the auth collaborator for out-of-band mail.
package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"yumzy/internal/types"
)

// AuthServiceContacts resolves a user's verified email from the auth service.
// Lookup failures and unverified addresses both read as "no contact"; mail is
// best-effort and callers never retry on a missing address.
type AuthServiceContacts struct {
	baseURL string
	client  *http.Client
}

func NewAuthServiceContacts(baseURL string) *AuthServiceContacts {
	return &AuthServiceContacts{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (d *AuthServiceContacts) VerifiedEmail(ctx context.Context, userID types.ID) (string, bool) {
	url := fmt.Sprintf("%s/users/%s/contact", d.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	var payload struct {
		Email    string `json:"email"`
		Verified bool   `json:"email_verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false
	}
	if payload.Email == "" || !payload.Verified {
		return "", false
	}
	return payload.Email, true
}

// NoContacts disables mail delivery entirely. Used when no auth service is
// configured.
type NoContacts struct{}

func (NoContacts) VerifiedEmail(context.Context, types.ID) (string, bool) { return "", false }
