package carrier_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

func TestCredentials_Validate(t *testing.T) {
	valid := []carrier.Credentials{
		{Kind: carrier.CredentialAPIKey, APIKey: "k"},
		{Kind: carrier.CredentialAPIKey, APIKey: "k", APISecret: "s"},
		{Kind: carrier.CredentialOAuth2, BearerToken: "t"},
		{Kind: carrier.CredentialBasic, Username: "u", Password: "p"},
		{Kind: carrier.CredentialBasic, Username: "u", Password: "p", APIKey: "k"},
	}
	for _, c := range valid {
		assert.NoError(t, c.Validate(), "%+v", c)
	}

	invalid := []carrier.Credentials{
		{},
		{Kind: "mystery"},
		{Kind: carrier.CredentialAPIKey},
		{Kind: carrier.CredentialAPIKey, APIKey: "k", Username: "u"},
		{Kind: carrier.CredentialOAuth2},
		{Kind: carrier.CredentialOAuth2, BearerToken: "t", Password: "p"},
		{Kind: carrier.CredentialBasic, Username: "u"},
		{Kind: carrier.CredentialBasic, Username: "u", Password: "p", BearerToken: "t"},
	}
	for _, c := range invalid {
		assert.Error(t, c.Validate(), "%+v", c)
	}
}

func TestOAuthToken_ValidAt_SafetyMargin(t *testing.T) {
	issued := time.Date(2025, 1, 27, 10, 0, 0, 0, time.UTC)
	tok := carrier.OAuthToken{AccessToken: "T", TokenType: "Bearer", ExpiresIn: 1799, IssuedAt: issued}

	// usable until issuedAt + 1799s - 60s = issuedAt + 1739s
	assert.True(t, tok.ValidAt(issued))
	assert.True(t, tok.ValidAt(issued.Add(1738*time.Second)))
	assert.False(t, tok.ValidAt(issued.Add(1739*time.Second)))
	assert.False(t, tok.ValidAt(issued.Add(1799*time.Second)))
}

func TestOAuthToken_ValidAt_EmptyToken(t *testing.T) {
	tok := carrier.OAuthToken{ExpiresIn: 3600, IssuedAt: time.Now()}
	assert.False(t, tok.ValidAt(time.Now()))
}
