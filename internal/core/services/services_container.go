package services

import (
	"fmt"

	"github.com/SscSPs/auth_service/internal/core/domain"
	portsrepo "github.com/SscSPs/auth_service/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/auth_service/internal/core/ports/services"
	"github.com/SscSPs/auth_service/internal/platform/config"
	"github.com/SscSPs/auth_service/internal/utils"
)

// ContainerOption customizes the service container, mainly for tests.
type ContainerOption func(*containerOptions)

type containerOptions struct {
	notifier  portssvc.NotifierSvc
	providers []portssvc.OAuthProviderSvc
}

// WithNotifier replaces the default log notifier.
func WithNotifier(n portssvc.NotifierSvc) ContainerOption {
	return func(o *containerOptions) {
		o.notifier = n
	}
}

// WithOAuthProviders replaces the providers built from configuration.
func WithOAuthProviders(providers ...portssvc.OAuthProviderSvc) ContainerOption {
	return func(o *containerOptions) {
		o.providers = providers
	}
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, options ...ContainerOption) (*portssvc.ServiceContainer, error) {
	opts := containerOptions{}
	for _, option := range options {
		option(&opts)
	}
	if opts.notifier == nil {
		opts.notifier = NewLogNotifier(cfg.FrontendBaseURL)
	}
	if opts.providers == nil {
		if cfg.GoogleEnabled() {
			opts.providers = append(opts.providers, NewGoogleProvider(cfg, nil))
		}
		if cfg.FacebookEnabled() {
			opts.providers = append(opts.providers, NewFacebookProvider(cfg))
		}
	}

	hasher, err := utils.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create password hasher: %w", err)
	}

	container := &portssvc.ServiceContainer{
		OAuthProviders: make(map[domain.AuthProvider]portssvc.OAuthProviderSvc, len(opts.providers)),
	}
	for _, p := range opts.providers {
		container.OAuthProviders[p.Provider()] = p
	}

	// Token service first since auth and user services revoke sessions through it
	container.Token = NewTokenService(cfg, repos.UserRepo)
	container.OAuthLinker = NewOAuthLinker(cfg, repos.UserRepo)
	container.Auth = NewAuthService(cfg, repos.UserRepo, container.Token, container.OAuthLinker, opts.notifier, hasher)
	container.User = NewUserService(repos.UserRepo, container.Token)

	return container, nil
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.NotifierSvc      = (*logNotifier)(nil)
	_ portssvc.OAuthProviderSvc = (*googleProvider)(nil)
	_ portssvc.OAuthProviderSvc = (*facebookProvider)(nil)
)
