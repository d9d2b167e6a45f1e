package lambda

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/christophergentle/ratingchart-bsky/internal/config"
)

const (
	paramHandle     = "/ratingchart/bluesky/handle"
	paramPassword   = "/ratingchart/bluesky/password"
	paramDryRun     = "/ratingchart/settings/dry_run"
	paramStore      = "/ratingchart/settings/store"
	paramTableName  = "/ratingchart/settings/table_name"
	paramBucketName = "/ratingchart/settings/bucket_name"
	paramUsers      = "/ratingchart/settings/users"
)

// SSMAPI is the subset of the SSM client the loader uses
type SSMAPI interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// SSMConfigLoader handles loading configuration from SSM Parameter Store
type SSMConfigLoader struct {
	client SSMAPI
}

// NewSSMConfigLoader creates a new SSM configuration loader
func NewSSMConfigLoader(ctx context.Context) (*SSMConfigLoader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return NewSSMConfigLoaderWithClient(ssm.NewFromConfig(cfg)), nil
}

// NewSSMConfigLoaderWithClient creates a loader over an existing client
func NewSSMConfigLoaderWithClient(client SSMAPI) *SSMConfigLoader {
	return &SSMConfigLoader{client: client}
}

// LoadConfig loads the file and environment config, then applies SSM
// parameters over it. Only the Bluesky credentials are required.
func (s *SSMConfigLoader) LoadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, cfg)
}

// Apply overlays SSM parameters on cfg and validates the result
func (s *SSMConfigLoader) Apply(ctx context.Context, cfg *config.Config) (*config.Config, error) {
	required := []string{paramHandle, paramPassword}
	optional := []string{paramDryRun, paramStore, paramTableName, paramBucketName, paramUsers}

	result, err := s.client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          append(required, optional...),
		WithDecryption: true,
	})
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range result.InvalidParameters {
		if isRequired(name, required) {
			missing = append(missing, name)
		} else {
			log.Printf("Optional parameter %s not set, using default", name)
		}
	}
	if len(missing) > 0 {
		return nil, &ConfigError{
			Message: "Invalid parameters found",
			Details: missing,
		}
	}

	params := make(map[string]string)
	for _, param := range result.Parameters {
		if param.Name != nil && param.Value != nil {
			params[*param.Name] = *param.Value
		}
	}

	for _, name := range required {
		if params[name] == "" {
			return nil, &ConfigError{Message: "Missing required parameter: " + name}
		}
	}

	out := *cfg
	out.Bluesky = config.BlueskyConfig{
		Handle:   params[paramHandle],
		Password: params[paramPassword],
	}
	out.DryRun = parseBoolWithDefault(params[paramDryRun], cfg.DryRun)
	out.Store = stringWithDefault(params[paramStore], cfg.Store)
	out.TableName = stringWithDefault(params[paramTableName], cfg.TableName)
	out.BucketName = stringWithDefault(params[paramBucketName], cfg.BucketName)
	if users := parseList(params[paramUsers]); len(users) > 0 {
		out.Users = users
	}

	if err := out.Validate(); err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("Invalid configuration: %v", err)}
	}
	return &out, nil
}

func isRequired(name string, required []string) bool {
	for _, r := range required {
		if r == name {
			return true
		}
	}
	return false
}

// parseBoolWithDefault parses a boolean with a default value
func parseBoolWithDefault(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func stringWithDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// parseList splits a comma separated parameter, dropping blanks
func parseList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// ConfigError represents a configuration error
type ConfigError struct {
	Message string
	Details []string
}

func (e *ConfigError) Error() string {
	if len(e.Details) > 0 {
		return e.Message + ": " + strconv.Itoa(len(e.Details)) + " invalid parameters"
	}
	return e.Message
}
