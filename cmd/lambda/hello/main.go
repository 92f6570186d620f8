// Command hello is a sample handler unit. Build it into the service path
// and reference it as bin/hello.handler from serverless.yml.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"apigw-local/pkg/lambda"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
)

type greeting struct {
	Message     string `json:"message"`
	Principal   any    `json:"principal,omitempty"`
	Offline     bool   `json:"offline"`
	AWSRequest  string `json:"awsRequestId,omitempty"`
	GatewayPath string `json:"path"`
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	name := req.PathParameters["name"]
	if name == "" {
		name = req.QueryStringParameters["name"]
	}
	if name == "" {
		name = "world"
	}

	out := greeting{
		Message:     "hello " + name,
		Principal:   req.RequestContext.Authorizer["principalId"],
		Offline:     os.Getenv(lambda.OfflineEnv) == "true",
		GatewayPath: req.Path,
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		out.AWSRequest = lc.AwsRequestID
	}

	body, err := json.Marshal(out)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func fail(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return events.APIGatewayProxyResponse{}, errors.New("something went wrong")
}

func main() {
	lambda.Serve(map[string]any{
		"handler": handler,
		"error":   fail,
	})
}
