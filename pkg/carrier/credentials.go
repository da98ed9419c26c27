package carrier

import "time"

// CredentialKind discriminates the credential variant. The variant is
// explicit at the boundary; inputs setting fields of more than one
// variant are rejected instead of guessed at.
type CredentialKind string

const (
	CredentialAPIKey CredentialKind = "api_key"
	CredentialOAuth2 CredentialKind = "oauth2"
	CredentialBasic  CredentialKind = "basic"
)

// Credentials is a tagged credential variant.
//
//   - api_key: APIKey (+ optional APISecret)
//   - oauth2:  BearerToken
//   - basic:   Username + Password (+ optional APIKey, carrier-dependent)
type Credentials struct {
	Kind        CredentialKind
	APIKey      string
	APISecret   string
	BearerToken string
	Username    string
	Password    string
}

// Validate rejects missing or ambiguous credential input.
func (c Credentials) Validate() error {
	switch c.Kind {
	case CredentialAPIKey:
		if c.APIKey == "" {
			return NewError("", Validation, "api_key credentials require an api key")
		}
		if c.BearerToken != "" || c.Username != "" || c.Password != "" {
			return NewError("", Validation, "ambiguous credentials: api_key variant carries fields of another variant")
		}
	case CredentialOAuth2:
		if c.BearerToken == "" {
			return NewError("", Validation, "oauth2 credentials require a bearer token")
		}
		if c.Username != "" || c.Password != "" {
			return NewError("", Validation, "ambiguous credentials: oauth2 variant carries basic-auth fields")
		}
	case CredentialBasic:
		if c.Username == "" || c.Password == "" {
			return NewError("", Validation, "basic credentials require username and password")
		}
		if c.BearerToken != "" {
			return NewError("", Validation, "ambiguous credentials: basic variant carries a bearer token")
		}
	default:
		return NewError("", Validation, "unknown credential kind")
	}
	return nil
}

// OAuthToken is a cached bearer token obtained from a carrier.
type OAuthToken struct {
	AccessToken string
	TokenType   string // "Bearer"
	ExpiresIn   int    // seconds
	IssuedAt    time.Time
}

// tokenSafetyMargin is subtracted from the reported lifetime so a token
// is never used right at its expiry edge.
const tokenSafetyMargin = 60 * time.Second

// ValidAt reports whether the token is still usable at the given time.
func (t OAuthToken) ValidAt(now time.Time) bool {
	if t.AccessToken == "" {
		return false
	}
	expiry := t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second).Add(-tokenSafetyMargin)
	return now.Before(expiry)
}
