package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/pipeline-iac/config"
	"github.com/30Piraten/pipeline-iac/identity"
	"github.com/30Piraten/pipeline-iac/stack"
	"github.com/30Piraten/pipeline-iac/synth"
)

const stackName = "PipelineIaCStack"

func main() {
	if err := run(); err != nil {
		slog.Error("pipeline stack", "err", err)
		os.Exit(1)
	}
}

func run() error {
	defer jsii.Close()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := cfg.Logger()

	def, err := synth.FromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("synthesize pipeline: %w", err)
	}

	app := awscdk.NewApp(nil)
	if _, err := stack.NewPipelineIaCStack(app, stackName, &stack.PipelineIaCStackProps{
		StackProps: awscdk.StackProps{
			Env:         env(def.Identity),
			Description: jsii.String("Cross-account CodeCommit to CodeBuild pipeline for " + def.Identity.ResourceName()),
		},
		Definition: def,
	}); err != nil {
		return fmt.Errorf("render stack: %w", err)
	}

	app.Synth(nil)
	logger.Info("stack synthesized", "stack", stackName, "pipeline", def.Pipeline.Name)
	return nil
}

func env(id identity.Identity) *awscdk.Environment {
	return &awscdk.Environment{
		Account: jsii.String(id.AccountID()),
		Region:  jsii.String(id.Region()),
	}
}
