package handlers_test

import (
	"testing"

	"github.com/SscSPs/auth_service/internal/handlers"
	"github.com/stretchr/testify/assert"
)

func TestIsStrongPassword(t *testing.T) {
	tests := map[string]bool{
		"Str0ng!Pass": true,
		"Ab1?defg":    true,
		"Ab1?def":     false,
		"str0ng!pass": false,
		"STR0NG!PASS": false,
		"Strong!Pass": false,
		"Str0ngPass":  false,
		"Str0ng#Pass": false,
	}
	for password, want := range tests {
		assert.Equal(t, want, handlers.IsStrongPassword(password), password)
	}
}
