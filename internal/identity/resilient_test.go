package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "travlr/pkg/domain"
	domainerrors "travlr/pkg/domain-errors"
)

type flakyProvider struct {
	Provider
	failures int
	calls    int
}

func (f *flakyProvider) Resolve(ctx context.Context, identifier id.Identifier) (*PublicKeys, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, domainerrors.New(domainerrors.CodeProviderUnavailable, "substrate down")
	}
	return f.Provider.Resolve(ctx, identifier)
}

func TestResilientProvider_RetriesOnce(t *testing.T) {
	inner := NewInMemoryProvider()
	ctx := context.Background()

	identifier, err := inner.CreateIdentifier(ctx)
	require.NoError(t, err)

	flaky := &flakyProvider{Provider: inner, failures: 1}
	resilient := NewResilientProvider(flaky, WithCallTimeout(time.Second))

	keys, err := resilient.Resolve(ctx, identifier)
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Equal(t, 2, flaky.calls)
}

func TestResilientProvider_DomainErrorsPassThrough(t *testing.T) {
	resilient := NewResilientProvider(NewInMemoryProvider())

	_, err := resilient.Resolve(context.Background(), "did:key:missing")
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeNotFound))
}

func TestResilientProvider_CircuitOpensAfterRepeatedFailure(t *testing.T) {
	inner := NewInMemoryProvider()
	ctx := context.Background()

	identifier, err := inner.CreateIdentifier(ctx)
	require.NoError(t, err)

	flaky := &flakyProvider{Provider: inner, failures: 1000}
	resilient := NewResilientProvider(flaky)

	for i := 0; i < 10; i++ {
		_, err = resilient.Resolve(ctx, identifier)
		require.Error(t, err)
	}
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeProviderUnavailable))

	callsBefore := flaky.calls
	_, err = resilient.Resolve(ctx, identifier)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeProviderUnavailable))
	assert.Equal(t, callsBefore, flaky.calls, "open circuit must not reach the substrate")
}
