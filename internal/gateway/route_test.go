package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouteDescriptor(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantMethod string
		wantPath   string
	}{
		{name: "param", method: "GET", path: "hello/{id}", wantMethod: "get", wantPath: "/hello/:id"},
		{name: "leading slashes", method: "post", path: "//hello", wantMethod: "post", wantPath: "/hello"},
		{name: "any", method: "ANY", path: "/x", wantMethod: AnyMethod, wantPath: "/x"},
		{name: "greedy proxy", method: "get", path: "/files/{proxy+}", wantMethod: "get", wantPath: "/files/*proxy"},
		{name: "two params", method: "get", path: "/a/{x}/b/{y}", wantMethod: "get", wantPath: "/a/:x/b/:y"},
		{name: "case is kept", method: "get", path: "/Users/{ID}", wantMethod: "get", wantPath: "/Users/:ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, err := NewRouteDescriptor("hello", tt.method, tt.path, ref("lambda.handler"), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, route.Method)
			assert.Equal(t, tt.wantPath, route.Path)
		})
	}
}

func TestNewRouteDescriptor_Greedy(t *testing.T) {
	route, err := NewRouteDescriptor("files", "get", "/files/{proxy+}", ref("lambda.handler"), nil)
	require.NoError(t, err)
	assert.True(t, route.IsGreedy("proxy"))
	assert.False(t, route.IsGreedy("id"))
	assert.Equal(t, "GET /files/{proxy+}", route.String())
}

func TestNewRouteDescriptor_MissingMethodOrPath(t *testing.T) {
	for _, tc := range [][2]string{{"", "/x"}, {"get", ""}, {" ", " "}} {
		_, err := NewRouteDescriptor("hello", tc[0], tc[1], ref("lambda.handler"), nil)
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "hello", cfgErr.Function)
		assert.Equal(t, "Endpoint for λ hello has no method/path", cfgErr.Error())
	}
}

func TestParseHTTPEvent(t *testing.T) {
	method, path, err := ParseHTTPEvent("hello", "GET hello/{id}")
	require.NoError(t, err)
	assert.Equal(t, "GET", method)
	assert.Equal(t, "hello/{id}", path)

	_, _, err = ParseHTTPEvent("hello", "GET")
	assert.Error(t, err)
}

func TestParseHTTPEvent_PathCaseIsKept(t *testing.T) {
	method, path, err := ParseHTTPEvent("users", "post Users/{ID}")
	require.NoError(t, err)
	assert.Equal(t, "Users/{ID}", path)

	route, err := NewRouteDescriptor("users", method, path, ref("lambda.handler"), nil)
	require.NoError(t, err)
	assert.Equal(t, "post", route.Method)
	assert.Equal(t, "/Users/:ID", route.Path)
	assert.Equal(t, "POST /Users/{ID}", route.String())
}

func TestNewAuthorizerDescriptor(t *testing.T) {
	tests := []struct {
		name           string
		authorizer     string
		identitySource string
		wantErr        string
	}{
		{name: "valid", authorizer: "auth", identitySource: "method.request.header.Authorization"},
		{name: "missing name", identitySource: "method.request.header.Authorization", wantErr: "Invalid authorizer name for λ hello"},
		{name: "missing source", authorizer: "auth", wantErr: "Invalid identitySource for λ hello"},
		{name: "wrong prefix", authorizer: "auth", identitySource: "method.request.querystring.token", wantErr: "Expected method.request.header.* in identitySource for λ hello"},
		{name: "prefix only", authorizer: "auth", identitySource: "method.request.header.", wantErr: "Expected method.request.header.* in identitySource for λ hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := NewAuthorizerDescriptor("hello", tt.authorizer, tt.identitySource, ref("authorizer.handler"))
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "authorization", desc.HeaderName())
		})
	}
}
