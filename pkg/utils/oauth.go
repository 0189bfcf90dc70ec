package utils

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuth scopes for Google APIs
const (
	ScopeSheets    = "https://www.googleapis.com/auth/spreadsheets"
	ScopeGmailSend = "https://www.googleapis.com/auth/gmail.send"
)

// requiredScopes returns all scopes required by the application
func requiredScopes() []string {
	return []string{
		ScopeSheets,
		ScopeGmailSend,
	}
}

// ServiceAccountTokenSource builds a token source from a service account key.
// subject is the user to impersonate through domain-wide delegation and may be empty;
// sending mail requires it, writing to a shared spreadsheet does not.
func ServiceAccountTokenSource(ctx context.Context, keyJSON []byte, subject string) (oauth2.TokenSource, error) {
	jwtConfig, err := google.JWTConfigFromJSON(keyJSON, requiredScopes()...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	jwtConfig.Subject = subject

	return jwtConfig.TokenSource(ctx), nil
}

// VerifyTokenSource fetches one token so that bad keys are detected at start rather than on first write
func VerifyTokenSource(ts oauth2.TokenSource) error {
	token, err := ts.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}
	if !token.Valid() {
		return fmt.Errorf("service account returned an invalid token")
	}
	return nil
}

// HTTPClient returns an authorised HTTP client for the token source
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, ts))
}
