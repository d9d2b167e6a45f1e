package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	lambdapkg "github.com/christophergentle/ratingchart-bsky/internal/lambda"
	"github.com/christophergentle/ratingchart-bsky/internal/metrics"
	"github.com/christophergentle/ratingchart-bsky/internal/pipeline"
)

// Event represents the EventBridge event structure
type Event struct {
	Source string `json:"source"`
	Time   string `json:"time"`
}

// Response represents the Lambda response
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
	Posted     bool   `json:"posted"`
}

// HandleRequest is the main Lambda handler
func HandleRequest(ctx context.Context, event Event) (Response, error) {
	log.Printf("Received event: %+v", event)

	// Load configuration from SSM Parameter Store
	configLoader, err := lambdapkg.NewSSMConfigLoader(ctx)
	if err != nil {
		log.Printf("Failed to create SSM config loader: %v", err)
		return Response{
			StatusCode: 500,
			Body:       "Failed to initialize configuration loader",
		}, nil
	}

	cfg, err := configLoader.LoadConfig(ctx)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return Response{
			StatusCode: 500,
			Body:       "Failed to load configuration from SSM",
		}, nil
	}

	store, closeStore, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		log.Printf("Failed to open history store: %v", err)
		return Response{
			StatusCode: 500,
			Body:       "Failed to open history store: " + err.Error(),
		}, nil
	}
	defer closeStore()

	poster := lambdapkg.NewRatingChartPoster(cfg, store, metrics.NewManager())
	result, err := poster.Run(ctx)
	if err != nil {
		log.Printf("Rating chart run failed: %v", err)
		return Response{
			StatusCode: 500,
			Body:       "Rating chart run failed: " + err.Error(),
		}, nil
	}

	log.Printf("Rating chart run completed: %+v", result)
	body := "Rating chart posted successfully"
	switch {
	case result.SkipReason != "":
		body = "Post skipped: " + result.SkipReason
	case !result.Posted:
		body = "Dry run mode - post skipped"
	}
	return Response{
		StatusCode: 200,
		Body:       body,
		Posted:     result.Posted,
	}, nil
}

func main() {
	lambda.Start(HandleRequest)
}
