package secrets_test

import (
	"context"
	"errors"
	"testing"

	"github.com/straye-as/estate-sales-api/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFetcher struct {
	values map[string]string
	calls  int
}

func (s *stubFetcher) GetSecret(ctx context.Context, name string) (string, error) {
	s.calls++
	if v, ok := s.values[name]; ok {
		return v, nil
	}
	return "", errors.New("secret not found")
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		source      secrets.SecretSource
		environment string
		want        secrets.SecretSource
	}{
		{secrets.SourceAuto, "development", secrets.SourceEnvironment},
		{secrets.SourceAuto, "", secrets.SourceEnvironment},
		{secrets.SourceAuto, "production", secrets.SourceVault},
		{secrets.SourceAuto, "staging", secrets.SourceVault},
		{secrets.SourceEnvironment, "production", secrets.SourceEnvironment},
		{secrets.SourceVault, "development", secrets.SourceVault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, secrets.ResolveSource(tt.source, tt.environment), "%s/%s", tt.source, tt.environment)
	}
}

func TestProvider_Environment(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "from-env")
	p := secrets.NewProviderWithFetcher(secrets.SourceEnvironment, nil, zap.NewNop())

	v, err := p.GetSecret(context.Background(), "DATABASE_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
	assert.False(t, p.IsVaultEnabled())

	_, err = p.GetSecret(context.Background(), "NOT_SET_ANYWHERE")
	assert.Error(t, err)
}

func TestProvider_Vault(t *testing.T) {
	fetcher := &stubFetcher{values: map[string]string{"auth-jwt-secret": "vault-value"}}
	p := secrets.NewProviderWithFetcher(secrets.SourceVault, fetcher, zap.NewNop())

	v, err := p.GetSecret(context.Background(), "auth-jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, "vault-value", v)
	assert.True(t, p.IsVaultEnabled())

	t.Run("environment override wins", func(t *testing.T) {
		t.Setenv("AUTH_JWTSECRET", "override")
		fetcher.calls = 0

		v, err := p.GetSecretOrEnv(context.Background(), "auth-jwt-secret", "AUTH_JWTSECRET")
		require.NoError(t, err)
		assert.Equal(t, "override", v)
		assert.Zero(t, fetcher.calls)
	})

	t.Run("missing fetcher", func(t *testing.T) {
		p := secrets.NewProviderWithFetcher(secrets.SourceVault, nil, zap.NewNop())
		_, err := p.GetSecret(context.Background(), "auth-jwt-secret")
		assert.Error(t, err)
	})
}

func TestNewProvider_VaultRequiresName(t *testing.T) {
	_, err := secrets.NewProvider(&secrets.ProviderConfig{Source: secrets.SourceVault}, zap.NewNop())
	assert.Error(t, err)
}
