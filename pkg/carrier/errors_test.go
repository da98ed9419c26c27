package carrier_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dfoddav2/shopickup-integration-layer-sub000/pkg/carrier"
)

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   carrier.Category
	}{
		{400, carrier.Validation},
		{404, carrier.Validation},
		{422, carrier.Validation},
		{401, carrier.Auth},
		{403, carrier.Auth},
		{429, carrier.RateLimit},
		{500, carrier.Transient},
		{503, carrier.Transient},
		{302, carrier.Permanent},
	}
	for _, tt := range tests {
		err := carrier.FromHTTPStatus("gls", tt.status, "")
		assert.Equal(t, tt.want, err.Category, "HTTP %d", tt.status)
		assert.Contains(t, err.Message, fmt.Sprintf("%d", tt.status))
	}
}

func TestWrapError_PassesThroughTypedErrors(t *testing.T) {
	orig := carrier.NewError("mpl", carrier.Auth, "rejected")
	wrapped := carrier.WrapError("gls", fmt.Errorf("outer: %w", orig))
	assert.Same(t, orig, wrapped)
}

func TestWrapError_TimeoutIsTransient(t *testing.T) {
	err := carrier.WrapError("gls", context.DeadlineExceeded)
	assert.Equal(t, carrier.Transient, err.Category)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWrapError_UnknownIsTransient(t *testing.T) {
	err := carrier.WrapError("gls", errors.New("boom"))
	assert.Equal(t, carrier.Transient, err.Category)
}

func TestError_IsMatchesCategory(t *testing.T) {
	err := carrier.NewError("gls", carrier.RateLimit, "slow down").WithRetryAfter(30 * time.Second)
	assert.True(t, errors.Is(err, &carrier.Error{Category: carrier.RateLimit}))
	assert.False(t, errors.Is(err, &carrier.Error{Category: carrier.Auth}))
	assert.Equal(t, 30*time.Second, err.RetryAfter)
}

func TestError_SentinelsOnlyMatchTheirOwnChain(t *testing.T) {
	wrapped := fmt.Errorf("carrier %q: %w", "ghost", carrier.ErrCarrierNotFound)
	assert.True(t, errors.Is(wrapped, carrier.ErrCarrierNotFound))

	// Another Permanent error shares the category but is not the
	// sentinel.
	other := carrier.NewError("gls", carrier.Permanent, "operation TRACK is not implemented by gls").
		WithCode("NOT_IMPLEMENTED")
	assert.False(t, errors.Is(other, carrier.ErrCarrierNotFound))
	assert.True(t, errors.Is(other, &carrier.Error{Category: carrier.Permanent}))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, carrier.IsRetryable(carrier.NewError("", carrier.Transient, "x")))
	assert.True(t, carrier.IsRetryable(carrier.NewError("", carrier.RateLimit, "x")))
	assert.False(t, carrier.IsRetryable(carrier.NewError("", carrier.Validation, "x")))
	assert.False(t, carrier.IsRetryable(carrier.NewError("", carrier.Permanent, "x")))
	assert.True(t, carrier.IsRetryable(errors.New("untyped")), "untyped errors count as transient")
}

func TestError_MessagePrefix(t *testing.T) {
	err := carrier.NewError("gls", carrier.Validation, "bad input")
	assert.Equal(t, "gls: Validation: bad input", err.Error())

	anon := carrier.NewError("", carrier.Permanent, "no adapter")
	assert.Equal(t, "carrier: Permanent: no adapter", anon.Error())
}
