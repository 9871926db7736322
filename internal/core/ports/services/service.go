package services

import "github.com/SscSPs/auth_service/internal/core/domain"

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	Token       TokenSvcFacade
	Auth        AuthSvcFacade
	User        UserSvcFacade
	OAuthLinker OAuthLinkerSvc
	// OAuthProviders only contains providers with client credentials configured.
	OAuthProviders map[domain.AuthProvider]OAuthProviderSvc
}

// OAuthProvider returns the configured client for provider, if any.
func (c *ServiceContainer) OAuthProvider(provider domain.AuthProvider) (OAuthProviderSvc, bool) {
	p, ok := c.OAuthProviders[provider]
	return p, ok
}
