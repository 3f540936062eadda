package grant

const TypeClientCredentials = "client_credentials"

// ClientCredentialsGrant requests an app-only token. There is never a user
// identity on this path, and results may be served from the cache.
type ClientCredentialsGrant struct{}

func (ClientCredentialsGrant) Type() string { return TypeClientCredentials }

func (ClientCredentialsGrant) WireParameters() map[string]string {
	return map[string]string{
		"grant_type": TypeClientCredentials,
	}
}

func (ClientCredentialsGrant) LoadFromCache() bool { return true }

var _ Grant = ClientCredentialsGrant{}
