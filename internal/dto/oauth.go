package dto

// OAuthLoginResponse represents the response for social login initiation
type OAuthLoginResponse struct {
	Provider string `json:"provider"`
	AuthURL  string `json:"auth_url"`
	State    string `json:"state"`
}

// OAuthProvidersResponse lists the configured social login providers
type OAuthProvidersResponse struct {
	Providers []string `json:"providers"`
}
