package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_HasAuthMethod(t *testing.T) {
	hash := "$2a$04$hash"
	empty := ""

	tests := []struct {
		name string
		user User
		want bool
	}{
		{"password only", User{PasswordHash: &hash}, true},
		{"google only", User{GoogleID: strPtr("g-1")}, true},
		{"facebook only", User{FacebookID: strPtr("f-1")}, true},
		{"nothing", User{}, false},
		{"empty values", User{PasswordHash: &empty, GoogleID: &empty}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.HasAuthMethod())
		})
	}
}

func TestUser_SetProviderIDIgnoresUnknownProvider(t *testing.T) {
	var u User
	u.SetProviderID(AuthProvider("github"), "gh-1")
	assert.False(t, u.HasAuthMethod())

	u.SetProviderID(ProviderGoogle, "g-1")
	assert.True(t, u.HasAuthMethod())
	assert.Equal(t, []AuthProvider{ProviderGoogle}, u.LinkedProviders())
}

func strPtr(s string) *string { return &s }
