// Package verify compares a deployed pipeline stack against a freshly
// synthesized definition.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	cptypes "github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/30Piraten/pipeline-iac/policy"
	"github.com/30Piraten/pipeline-iac/synth"
	"github.com/30Piraten/pipeline-iac/topology"
)

// BucketAPI is the subset of the S3 client the verifier reads.
type BucketAPI interface {
	GetBucketPolicy(ctx context.Context, in *s3.GetBucketPolicyInput, opts ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
	GetBucketEncryption(ctx context.Context, in *s3.GetBucketEncryptionInput, opts ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error)
	GetBucketVersioning(ctx context.Context, in *s3.GetBucketVersioningInput, opts ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
}

// KeyAPI is the subset of the KMS client the verifier reads.
type KeyAPI interface {
	DescribeKey(ctx context.Context, in *kms.DescribeKeyInput, opts ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
	GetKeyPolicy(ctx context.Context, in *kms.GetKeyPolicyInput, opts ...func(*kms.Options)) (*kms.GetKeyPolicyOutput, error)
	GetKeyRotationStatus(ctx context.Context, in *kms.GetKeyRotationStatusInput, opts ...func(*kms.Options)) (*kms.GetKeyRotationStatusOutput, error)
}

// PipelineAPI is the subset of the CodePipeline client the verifier reads.
type PipelineAPI interface {
	GetPipeline(ctx context.Context, in *codepipeline.GetPipelineInput, opts ...func(*codepipeline.Options)) (*codepipeline.GetPipelineOutput, error)
}

// Verifier checks the artifact key, the artifact bucket and the pipeline.
type Verifier struct {
	def       *synth.Definition
	buckets   BucketAPI
	keys      KeyAPI
	pipelines PipelineAPI
	logger    *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger used while checking.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

func New(def *synth.Definition, buckets BucketAPI, keys KeyAPI, pipelines PipelineAPI, opts ...Option) *Verifier {
	v := &Verifier{
		def:       def,
		buckets:   buckets,
		keys:      keys,
		pipelines: pipelines,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify reads the deployed resources and reports every difference.
// Missing resources are findings; other API failures abort with an error.
func (v *Verifier) Verify(ctx context.Context) (*Report, error) {
	report := &Report{}

	keyARN, err := v.verifyKey(ctx, report)
	if err != nil {
		return nil, err
	}
	if err := v.verifyBucket(ctx, report, keyARN); err != nil {
		return nil, err
	}
	if err := v.verifyPipeline(ctx, report, keyARN); err != nil {
		return nil, err
	}

	v.logger.Info("verification finished", "checked", len(report.Checked), "findings", len(report.Findings))
	return report, nil
}

// verifyKey returns the deployed key ARN, or "" when the key is missing.
func (v *Verifier) verifyKey(ctx context.Context, report *Report) (string, error) {
	k := v.def.Key
	resource := "key " + k.Alias
	report.checked(resource)

	described, err := v.keys.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(k.Alias)})
	if isNotFound(err) {
		report.addf(resource, "not found")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", resource, err)
	}
	meta := described.KeyMetadata
	if meta == nil {
		return "", fmt.Errorf("describe %s: no key metadata", resource)
	}
	keyID := aws.ToString(meta.KeyId)
	v.logger.Debug("checking key", "alias", k.Alias, "keyId", keyID)

	pol, err := v.keys.GetKeyPolicy(ctx, &kms.GetKeyPolicyInput{
		KeyId:      aws.String(keyID),
		PolicyName: aws.String("default"),
	})
	if err != nil {
		return "", fmt.Errorf("key policy of %s: %w", resource, err)
	}
	if err := comparePolicy(report, resource, k.Policy, aws.ToString(pol.Policy)); err != nil {
		return "", err
	}

	rotation, err := v.keys.GetKeyRotationStatus(ctx, &kms.GetKeyRotationStatusInput{KeyId: aws.String(keyID)})
	if err != nil {
		return "", fmt.Errorf("rotation status of %s: %w", resource, err)
	}
	if rotation.KeyRotationEnabled != k.Rotation {
		report.addf(resource, "key rotation is %t, expected %t", rotation.KeyRotationEnabled, k.Rotation)
	}

	return aws.ToString(meta.Arn), nil
}

func (v *Verifier) verifyBucket(ctx context.Context, report *Report, keyARN string) error {
	b := v.def.Bucket
	resource := "bucket " + b.Name
	report.checked(resource)
	v.logger.Debug("checking bucket", "bucket", b.Name)

	pol, err := v.buckets.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: aws.String(b.Name)})
	switch {
	case isNotFound(err):
		report.addf(resource, "bucket or bucket policy not found")
		return nil
	case err != nil:
		return fmt.Errorf("policy of %s: %w", resource, err)
	}
	if err := comparePolicy(report, resource, b.Policy, aws.ToString(pol.Policy)); err != nil {
		return err
	}

	enc, err := v.buckets.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: aws.String(b.Name)})
	switch {
	case isNotFound(err):
		report.addf(resource, "default encryption not configured")
	case err != nil:
		return fmt.Errorf("encryption of %s: %w", resource, err)
	default:
		checkEncryption(report, resource, enc, keyARN)
	}

	ver, err := v.buckets.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(b.Name)})
	if err != nil {
		return fmt.Errorf("versioning of %s: %w", resource, err)
	}
	if b.Versioned && ver.Status != s3types.BucketVersioningStatusEnabled {
		report.addf(resource, "versioning is %q, expected %q", ver.Status, s3types.BucketVersioningStatusEnabled)
	}
	return nil
}

func checkEncryption(report *Report, resource string, enc *s3.GetBucketEncryptionOutput, keyARN string) {
	if enc.ServerSideEncryptionConfiguration == nil || len(enc.ServerSideEncryptionConfiguration.Rules) == 0 {
		report.addf(resource, "default encryption not configured")
		return
	}
	sse := enc.ServerSideEncryptionConfiguration.Rules[0].ApplyServerSideEncryptionByDefault
	if sse == nil || sse.SSEAlgorithm != s3types.ServerSideEncryptionAwsKms {
		report.addf(resource, "default encryption is not %s", s3types.ServerSideEncryptionAwsKms)
		return
	}
	if keyARN != "" && !sameKey(aws.ToString(sse.KMSMasterKeyID), keyARN) {
		report.addf(resource, "encrypted with %s, expected %s", aws.ToString(sse.KMSMasterKeyID), keyARN)
	}
}

func (v *Verifier) verifyPipeline(ctx context.Context, report *Report, keyARN string) error {
	p := v.def.Pipeline
	resource := "pipeline " + p.Name
	report.checked(resource)
	v.logger.Debug("checking pipeline", "pipeline", p.Name)

	out, err := v.pipelines.GetPipeline(ctx, &codepipeline.GetPipelineInput{Name: aws.String(p.Name)})
	if isNotFound(err) {
		report.addf(resource, "not found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", resource, err)
	}
	deployed := out.Pipeline
	if deployed == nil {
		return fmt.Errorf("get %s: no pipeline declaration", resource)
	}

	if got := aws.ToString(deployed.RoleArn); got != p.RoleARN {
		report.addf(resource, "runs as %s, expected %s", got, p.RoleARN)
	}
	checkStore(report, resource, deployed.ArtifactStore, p.Store, keyARN)
	checkStages(report, resource, deployed.Stages, p.Stages)
	return nil
}

func checkStore(report *Report, resource string, store *cptypes.ArtifactStore, want topology.ArtifactStore, keyARN string) {
	if store == nil {
		report.addf(resource, "no artifact store")
		return
	}
	if got := aws.ToString(store.Location); got != want.BucketName {
		report.addf(resource, "artifact store is %s, expected %s", got, want.BucketName)
	}
	if store.EncryptionKey == nil {
		report.addf(resource, "artifact store is not encrypted with the artifact key")
		return
	}
	if keyARN != "" && !sameKey(aws.ToString(store.EncryptionKey.Id), keyARN) {
		report.addf(resource, "artifact store key is %s, expected %s", aws.ToString(store.EncryptionKey.Id), keyARN)
	}
}

func checkStages(report *Report, resource string, deployed []cptypes.StageDeclaration, want []topology.Stage) {
	got := make([]string, 0, len(deployed))
	for _, s := range deployed {
		got = append(got, aws.ToString(s.Name))
	}
	wantNames := make([]string, 0, len(want))
	for _, s := range want {
		wantNames = append(wantNames, s.Name)
	}
	if strings.Join(got, ",") != strings.Join(wantNames, ",") {
		report.addf(resource, "stages are [%s], expected [%s]", strings.Join(got, " "), strings.Join(wantNames, " "))
		return
	}

	for i, stage := range want {
		actions := map[string]cptypes.ActionDeclaration{}
		for _, a := range deployed[i].Actions {
			actions[aws.ToString(a.Name)] = a
		}
		for _, a := range stage.Actions {
			d, ok := actions[a.Name]
			if !ok {
				report.addf(resource, "stage %s has no action %s", stage.Name, a.Name)
				continue
			}
			if got := aws.ToString(d.RoleArn); got != a.RoleARN {
				report.addf(resource, "action %s runs as %q, expected %q", a.Name, got, a.RoleARN)
			}
			for k, want := range a.Configuration {
				if got := d.Configuration[k]; got != want {
					report.addf(resource, "action %s has %s=%q, expected %q", a.Name, k, got, want)
				}
			}
		}
	}
}

func comparePolicy(report *Report, resource string, want policy.Document, deployed string) error {
	expected, err := want.JSON()
	if err != nil {
		return err
	}
	same, err := Equivalent(string(expected), deployed)
	if err != nil {
		return fmt.Errorf("compare policy of %s: %w", resource, err)
	}
	if !same {
		report.addf(resource, "policy differs from the synthesized document")
	}
	return nil
}

// sameKey matches a key ARN against either a key ARN or a bare key ID.
func sameKey(got, keyARN string) bool {
	return got == keyARN || strings.HasSuffix(keyARN, ":key/"+got)
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var kmsNotFound *kmstypes.NotFoundException
	var pipelineNotFound *cptypes.PipelineNotFoundException
	var noBucket *s3types.NoSuchBucket
	if errors.As(err, &kmsNotFound) || errors.As(err, &pipelineNotFound) || errors.As(err, &noBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucketPolicy", "ServerSideEncryptionConfigurationNotFoundError":
			return true
		}
	}
	return false
}
