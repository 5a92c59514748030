package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushline/push-api/pkg/auth"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	svc := auth.NewServiceTokenService("test-secret", time.Hour)

	token, err := svc.Generate("scheduler")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "scheduler", subject)
}

func TestServiceTokenRejectsWrongSecret(t *testing.T) {
	issuer := auth.NewServiceTokenService("secret-a", time.Hour)
	verifier := auth.NewServiceTokenService("secret-b", time.Hour)

	token, err := issuer.Generate("scheduler")
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestServiceTokenRejectsExpired(t *testing.T) {
	svc := auth.NewServiceTokenService("test-secret", -time.Minute)

	token, err := svc.Generate("scheduler")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestServiceTokenRejectsGarbage(t *testing.T) {
	svc := auth.NewServiceTokenService("test-secret", time.Hour)
	_, err := svc.Validate("not-a-jwt")
	assert.Error(t, err)
}
