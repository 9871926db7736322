package domain

import "strings"

// OAuthProfile is the normalized identity returned by an external provider
// after the authorization-code exchange. It is never stored verbatim.
type OAuthProfile struct {
	Provider      AuthProvider
	ExternalID    string
	Email         string
	EmailVerified bool
	DisplayName   string
	FirstName     string
	LastName      string
	AvatarURL     string
}

// Names returns first and last name, falling back to splitting DisplayName
// and finally to the email's local part.
func (p OAuthProfile) Names() (string, string) {
	first := strings.TrimSpace(p.FirstName)
	last := strings.TrimSpace(p.LastName)
	if first != "" || last != "" {
		return first, last
	}
	if parts := strings.Fields(p.DisplayName); len(parts) > 0 {
		return parts[0], strings.Join(parts[1:], " ")
	}
	local, _, _ := strings.Cut(p.Email, "@")
	return local, ""
}

// OAuthFailureReason is a stable, client-visible code for a failed OAuth sign-in.
type OAuthFailureReason string

const (
	OAuthReasonProviderDenied        OAuthFailureReason = "provider_denied"
	OAuthReasonProviderNotConfigured OAuthFailureReason = "provider_not_configured"
	OAuthReasonInvalidState          OAuthFailureReason = "invalid_state"
	OAuthReasonExchangeFailed        OAuthFailureReason = "exchange_failed"
	OAuthReasonAccountInactive       OAuthFailureReason = "account_inactive"
	OAuthReasonAccountConflict       OAuthFailureReason = "account_conflict"
	OAuthReasonInvalidProfile        OAuthFailureReason = "invalid_profile"
	OAuthReasonInternal              OAuthFailureReason = "internal"
)

// OAuthResult is the outcome of an OAuth callback, handed to a redirect builder.
type OAuthResult struct {
	Success bool
	Reason  OAuthFailureReason
	Tokens  *TokenPair
}

// OAuthSucceeded builds a successful result.
func OAuthSucceeded(tokens TokenPair) OAuthResult {
	return OAuthResult{Success: true, Tokens: &tokens}
}

// OAuthFailed builds a failed result.
func OAuthFailed(reason OAuthFailureReason) OAuthResult {
	return OAuthResult{Reason: reason}
}
