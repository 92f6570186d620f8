package gateway

import (
	"context"
	"testing"

	"apigw-local/internal/invoker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T, handler, identitySource string, inv Invoker) *AuthorizerGate {
	t.Helper()
	desc, err := NewAuthorizerDescriptor("hello", "auth", identitySource, ref(handler))
	require.NoError(t, err)
	return NewAuthorizerGate("hello", desc, inv, Provider{}, testLogger())
}

func authRequest(headers map[string]string) *Request {
	return &Request{Method: "GET", Path: "/hello", Headers: headers}
}

func TestAuthorizerGate_Authorize(t *testing.T) {
	inv := invoker.New(stubLoader(), testLogger())
	bearer := map[string]string{"authorization": "Bearer token"}

	t.Run("authorized", func(t *testing.T) {
		gate := newGate(t, "authorizer.handler", "method.request.header.Authorization", inv)
		principal, err := gate.Authorize(context.Background(), authRequest(bearer))
		require.NoError(t, err)
		assert.Equal(t, "1", principal.PrincipalID)
		assert.Empty(t, principal.Context)
		assert.Equal(t, map[string]string{"principalId": "1"}, principal.Fields())
	})

	t.Run("context is stringified", func(t *testing.T) {
		gate := newGate(t, "authorizer.withContext", "method.request.header.Authorization", inv)
		principal, err := gate.Authorize(context.Background(), authRequest(bearer))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"principalId": "user-1",
			"tier":        "gold",
			"admin":       "true",
			"quota":       "10",
		}, principal.Fields())
	})

	failures := []struct {
		name    string
		handler string
		headers map[string]string
		want    error
	}{
		{name: "callback error", handler: "authorizer.error", headers: bearer, want: ErrAuthorizerFailed},
		{name: "missing principal", handler: "authorizer.missingAuthorizerId", headers: bearer, want: ErrInvalidAuthorizerOutput},
		{name: "missing policy", handler: "authorizer.missingPolicy", headers: bearer, want: ErrInvalidAuthorizerOutput},
		{name: "unknown authorizer export", handler: "authorizer.nope", headers: bearer, want: ErrAuthorizerFailed},
		{name: "no identity header", handler: "authorizer.handler", headers: map[string]string{}, want: ErrNoIdentity},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			gate := newGate(t, tt.handler, "method.request.header.Authorization", inv)
			principal, err := gate.Authorize(context.Background(), authRequest(tt.headers))
			assert.Nil(t, principal)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorizerGate_NoIdentitySkipsInvocation(t *testing.T) {
	counter := newCountingInvoker(invoker.New(stubLoader(), testLogger()))
	gate := newGate(t, "authorizer.handler", "method.request.header.Cookie", counter)

	_, err := gate.Authorize(context.Background(), authRequest(map[string]string{"authorization": "x"}))

	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.Equal(t, int32(0), counter.counter(ref("authorizer.handler")).Load())
}

func TestParseAuthorizerResult(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    *Principal
	}{
		{
			name:    "numeric principal",
			payload: `{"principalId":1,"policyDocument":{}}`,
			want:    &Principal{PrincipalID: "1", Context: map[string]string{}},
		},
		{
			name:    "null policy is present",
			payload: `{"principalId":"me","policyDocument":null}`,
			want:    &Principal{PrincipalID: "me", Context: map[string]string{}},
		},
		{
			name:    "null context value",
			payload: `{"principalId":"me","policyDocument":{},"context":{"a":null}}`,
			want:    &Principal{PrincipalID: "me", Context: map[string]string{"a": "null"}},
		},
		{name: "boolean principal", payload: `{"principalId":true,"policyDocument":{}}`},
		{name: "null principal", payload: `{"principalId":null,"policyDocument":{}}`},
		{name: "not an object", payload: `"allow"`},
		{name: "not json", payload: `allow`},
		{name: "nested context", payload: `{"principalId":1,"policyDocument":{},"context":{"a":{"b":1}}}`},
		{name: "context array", payload: `{"principalId":1,"policyDocument":{},"context":[1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAuthorizerResult("auth", []byte(tt.payload))
			if tt.want == nil {
				assert.ErrorIs(t, err, ErrInvalidAuthorizerOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
