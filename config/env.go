// Package config reads the deployment parameters from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/30Piraten/pipeline-iac/identity"
)

// Environment variable names.
const (
	EnvAccount          = "CDK_DEPLOY_ACCOUNT"
	EnvRegion           = "CDK_DEPLOY_REGION"
	EnvSlackWorkspaceID = "SLACK_WORKSPACE_ID"
	EnvSlackChannelID   = "SLACK_CHANNEL_ID"
	EnvSourceAccountID  = "SOURCE_ACCOUNT_ID"
	EnvBranch           = "DEPLOY_BRANCH"
	EnvCodeCommitRole   = "CODECOMMIT_ROLE_ARN"
	EnvResourceName     = "RESOURCE_NAME"
	EnvBuildImage       = "BUILD_IMAGE"
	EnvNotifyEvents     = "NOTIFY_EVENTS"
	EnvNotifyTopicName  = "NOTIFY_TOPIC_NAME"
	EnvLogLevel         = "LOG_LEVEL"
)

// ErrMissingEnv matches identity.ErrMissingParameter.
var ErrMissingEnv = fmt.Errorf("%w: required environment variable not set", identity.ErrMissingParameter)

// Config is everything the entry points need.
type Config struct {
	Params       identity.Params
	BuildImage   string
	NotifyEvents []string
	TopicName    string
	LogLevel     slog.Level
}

// Load reads .env files (missing files are ignored) and then the process
// environment. Variables already set in the environment win over .env.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. All missing required variables are
// reported in one error.
func FromEnv(getenv func(string) string) (Config, error) {
	var missing []string
	checkEnv := func(key string) string {
		value := getenv(key)
		if value == "" {
			missing = append(missing, key)
		}
		return value
	}

	cfg := Config{
		Params: identity.Params{
			AccountID:        checkEnv(EnvAccount),
			Region:           checkEnv(EnvRegion),
			SlackWorkspaceID: checkEnv(EnvSlackWorkspaceID),
			SlackChannelID:   checkEnv(EnvSlackChannelID),
			SourceAccountID:  checkEnv(EnvSourceAccountID),
			ForeignRoleARN:   checkEnv(EnvCodeCommitRole),
			Branch:           getenv(EnvBranch),
			ResourceName:     getenv(EnvResourceName),
		},
		BuildImage: getenv(EnvBuildImage),
		TopicName:  getenv(EnvNotifyTopicName),
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	if events := getenv(EnvNotifyEvents); events != "" {
		cfg.NotifyEvents = strings.Split(events, ",")
	}

	if level := getenv(EnvLogLevel); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}
	return cfg, nil
}

// Logger returns a text logger on stderr at the configured level.
func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}
