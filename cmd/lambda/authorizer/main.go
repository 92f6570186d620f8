// Command authorizer is a sample TOKEN authorizer unit. It reads the
// signing secret from AUTH_JWT_SECRET, usually set under
// provider.environment in serverless.yml.
package main

import (
	"os"

	"apigw-local/pkg/lambda"
)

func main() {
	auth := NewAuthorizer(os.Getenv("AUTH_JWT_SECRET"), os.Getenv("AUTH_JWT_ISSUER"))
	lambda.Serve(map[string]any{
		"handler": auth.Handle,
	})
}
