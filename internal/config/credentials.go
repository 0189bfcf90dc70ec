package config

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	CredentialSourceEnvironment = "environment"
	CredentialSourceFile        = "file"
)

// ServiceAccount represents a Google service account key
type ServiceAccount struct {
	Type         string `json:"type" validate:"required,eq=service_account"`
	ProjectID    string `json:"project_id" validate:"required"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key" validate:"required"`
	ClientEmail  string `json:"client_email" validate:"required,email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri" validate:"required,url"`
}

// Credential is a raw service account key together with where it came from
type Credential struct {
	Source string
	JSON   []byte
}

// ParseServiceAccount parses and validates a service account key
func ParseServiceAccount(data []byte) (*ServiceAccount, error) {
	var account ServiceAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to parse service account: %w", err)
	}

	if err := validate.Struct(&account); err != nil {
		return nil, fmt.Errorf("service account validation failed: %w", err)
	}

	return &account, nil
}

// Credentials returns the available credentials in the order they should be tried:
// the structured credential from the environment, then the local key file.
// Sources that are absent are skipped, so an empty result means there is nothing to connect with.
func (c *Config) Credentials() []Credential {
	var creds []Credential

	if c.ServiceAccountJSON != "" {
		creds = append(creds, Credential{
			Source: CredentialSourceEnvironment,
			JSON:   []byte(c.ServiceAccountJSON),
		})
	}

	if c.ServiceAccountFile != "" {
		if data, err := os.ReadFile(c.ServiceAccountFile); err == nil {
			creds = append(creds, Credential{
				Source: CredentialSourceFile,
				JSON:   data,
			})
		}
	}

	return creds
}
