package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	id "travlr/pkg/domain"
	domainerrors "travlr/pkg/domain-errors"
	"travlr/pkg/platform/circuit"
)

// ResilientProvider wraps a Provider with a per-call timeout, a single retry
// for transient failures, and a circuit breaker that sheds load while the
// substrate is unreachable. Callers see provider_unavailable instead of raw
// transport errors.
type ResilientProvider struct {
	inner   Provider
	breaker *circuit.Breaker
	timeout time.Duration
	logger  *slog.Logger
}

type ResilientOption func(*ResilientProvider)

func WithCallTimeout(d time.Duration) ResilientOption {
	return func(p *ResilientProvider) { p.timeout = d }
}

func WithResilientLogger(l *slog.Logger) ResilientOption {
	return func(p *ResilientProvider) { p.logger = l }
}

func NewResilientProvider(inner Provider, opts ...ResilientOption) *ResilientProvider {
	p := &ResilientProvider{
		inner:   inner,
		breaker: circuit.New("identity-provider"),
		timeout: 5 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ResilientProvider) CreateIdentifier(ctx context.Context) (id.Identifier, error) {
	var out id.Identifier
	err := p.call(ctx, "create_identifier", func(ctx context.Context) error {
		var err error
		out, err = p.inner.CreateIdentifier(ctx)
		return err
	})
	return out, err
}

func (p *ResilientProvider) Sign(ctx context.Context, identifier id.Identifier, payload []byte) ([]byte, error) {
	var out []byte
	err := p.call(ctx, "sign", func(ctx context.Context) error {
		var err error
		out, err = p.inner.Sign(ctx, identifier, payload)
		return err
	})
	return out, err
}

func (p *ResilientProvider) Verify(ctx context.Context, identifier id.Identifier, payload, sig []byte) (bool, error) {
	var out bool
	err := p.call(ctx, "verify", func(ctx context.Context) error {
		var err error
		out, err = p.inner.Verify(ctx, identifier, payload, sig)
		return err
	})
	return out, err
}

func (p *ResilientProvider) RotateKeys(ctx context.Context, identifier id.Identifier) (string, error) {
	var out string
	err := p.call(ctx, "rotate_keys", func(ctx context.Context) error {
		var err error
		out, err = p.inner.RotateKeys(ctx, identifier)
		return err
	})
	return out, err
}

func (p *ResilientProvider) Resolve(ctx context.Context, identifier id.Identifier) (*PublicKeys, error) {
	var out *PublicKeys
	err := p.call(ctx, "resolve", func(ctx context.Context) error {
		var err error
		out, err = p.inner.Resolve(ctx, identifier)
		return err
	})
	return out, err
}

func (p *ResilientProvider) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if p.breaker.IsOpen() {
		return domainerrors.New(domainerrors.CodeProviderUnavailable, "identity provider circuit open")
	}

	err := p.attempt(ctx, fn)
	if err != nil && transient(err) {
		p.logger.WarnContext(ctx, "identity provider call failed, retrying", "op", op, "error", err)
		err = p.attempt(ctx, fn)
	}

	if err != nil {
		if transient(err) {
			if p.breaker.RecordFailure() {
				p.logger.ErrorContext(ctx, "identity provider circuit opened", "op", op)
			}
			return domainerrors.Wrap(err, domainerrors.CodeProviderUnavailable, "identity provider unreachable")
		}
		// Domain failures (not found, bad input) pass through untouched and
		// do not count against the breaker.
		return err
	}

	p.breaker.RecordSuccess()
	return nil
}

func (p *ResilientProvider) attempt(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return fn(ctx)
}

func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var derr *domainerrors.Error
	if errors.As(err, &derr) {
		return derr.Code == domainerrors.CodeProviderUnavailable || derr.Code == domainerrors.CodeInternal
	}
	// Unclassified transport errors are treated as transient.
	return true
}
