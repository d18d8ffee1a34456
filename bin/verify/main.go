// Command pipeline-verify compares the deployed pipeline stack with the
// definition synthesized from the current environment.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/30Piraten/pipeline-iac/config"
	"github.com/30Piraten/pipeline-iac/synth"
	"github.com/30Piraten/pipeline-iac/verify"
)

var errDrift = errors.New("deployed stack has drifted")

var (
	verifyEnvFiles []string
	verifyProfile  string
)

var rootCmd = &cobra.Command{
	Use:           "pipeline-verify",
	Short:         "Check the deployed artifact key, bucket and pipeline for drift",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(verifyEnvFiles...)
		if err != nil {
			return err
		}
		logger := cfg.Logger()

		def, err := synth.FromConfig(cfg, logger)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(def.Identity.Region())}
		if verifyProfile != "" {
			opts = append(opts, awsconfig.WithSharedConfigProfile(verifyProfile))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}

		v := verify.New(def,
			s3.NewFromConfig(awsCfg),
			kms.NewFromConfig(awsCfg),
			codepipeline.NewFromConfig(awsCfg),
			verify.WithLogger(logger),
		)
		report, err := v.Verify(ctx)
		if err != nil {
			return err
		}
		if err := report.Write(cmd.OutOrStdout()); err != nil {
			return err
		}
		if !report.OK() {
			return fmt.Errorf("%w: %d findings", errDrift, len(report.Findings))
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringSliceVar(&verifyEnvFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment (repeat flag)")
	rootCmd.Flags().StringVar(&verifyProfile, "profile", "", "AWS shared config profile")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "pipeline-verify:", err)
		os.Exit(1)
	}
}
