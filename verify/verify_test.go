package verify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	cptypes "github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/30Piraten/pipeline-iac/identity"
	"github.com/30Piraten/pipeline-iac/policy"
	"github.com/30Piraten/pipeline-iac/synth"
)

const (
	testKeyID  = "1234abcd-12ab-34cd-56ef-1234567890ab"
	testKeyARN = "arn:aws:kms:ap-northeast-1:111111111111:key/" + testKeyID
)

type fakeBuckets struct {
	policy     string
	policyErr  error
	sse        *s3types.ServerSideEncryptionByDefault
	versioning s3types.BucketVersioningStatus
}

func (f *fakeBuckets) GetBucketPolicy(_ context.Context, _ *s3.GetBucketPolicyInput, _ ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	if f.policyErr != nil {
		return nil, f.policyErr
	}
	return &s3.GetBucketPolicyOutput{Policy: aws.String(f.policy)}, nil
}

func (f *fakeBuckets) GetBucketEncryption(_ context.Context, _ *s3.GetBucketEncryptionInput, _ ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error) {
	return &s3.GetBucketEncryptionOutput{
		ServerSideEncryptionConfiguration: &s3types.ServerSideEncryptionConfiguration{
			Rules: []s3types.ServerSideEncryptionRule{{ApplyServerSideEncryptionByDefault: f.sse}},
		},
	}, nil
}

func (f *fakeBuckets) GetBucketVersioning(_ context.Context, _ *s3.GetBucketVersioningInput, _ ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
	return &s3.GetBucketVersioningOutput{Status: f.versioning}, nil
}

type fakeKeys struct {
	policy      string
	rotation    bool
	describeErr error
}

func (f *fakeKeys) DescribeKey(_ context.Context, _ *kms.DescribeKeyInput, _ ...func(*kms.Options)) (*kms.DescribeKeyOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &kms.DescribeKeyOutput{KeyMetadata: &kmstypes.KeyMetadata{
		KeyId: aws.String(testKeyID),
		Arn:   aws.String(testKeyARN),
	}}, nil
}

func (f *fakeKeys) GetKeyPolicy(_ context.Context, in *kms.GetKeyPolicyInput, _ ...func(*kms.Options)) (*kms.GetKeyPolicyOutput, error) {
	if aws.ToString(in.KeyId) != testKeyID {
		return nil, &kmstypes.NotFoundException{Message: aws.String("no such key")}
	}
	return &kms.GetKeyPolicyOutput{Policy: aws.String(f.policy)}, nil
}

func (f *fakeKeys) GetKeyRotationStatus(_ context.Context, _ *kms.GetKeyRotationStatusInput, _ ...func(*kms.Options)) (*kms.GetKeyRotationStatusOutput, error) {
	return &kms.GetKeyRotationStatusOutput{KeyRotationEnabled: f.rotation}, nil
}

type fakePipelines struct {
	decl *cptypes.PipelineDeclaration
	err  error
}

func (f *fakePipelines) GetPipeline(_ context.Context, _ *codepipeline.GetPipelineInput, _ ...func(*codepipeline.Options)) (*codepipeline.GetPipelineOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &codepipeline.GetPipelineOutput{Pipeline: f.decl}, nil
}

func testDefinition(t *testing.T) *synth.Definition {
	t.Helper()
	id, err := identity.Resolve(identity.Params{
		AccountID:        "111111111111",
		Region:           "ap-northeast-1",
		SourceAccountID:  "222222222222",
		ForeignRoleARN:   "arn:aws:iam::222222222222:role/codeCommitRole",
		SlackWorkspaceID: "T0000000000",
		SlackChannelID:   "C0000000000",
	})
	require.NoError(t, err)
	def, err := synth.Synthesize(id)
	require.NoError(t, err)
	return def
}

// asDeployed renders doc the way the AWS APIs hand it back: condition
// booleans as strings.
func asDeployed(t *testing.T, doc policy.Document) string {
	t.Helper()
	b, err := doc.JSON()
	require.NoError(t, err)
	return strings.NewReplacer(":true", `:"true"`, ":false", `:"false"`).Replace(string(b))
}

func deployed(t *testing.T, def *synth.Definition) (*fakeBuckets, *fakeKeys, *fakePipelines) {
	t.Helper()
	buckets := &fakeBuckets{
		policy:     asDeployed(t, def.Bucket.Policy),
		sse:        &s3types.ServerSideEncryptionByDefault{SSEAlgorithm: s3types.ServerSideEncryptionAwsKms, KMSMasterKeyID: aws.String(testKeyARN)},
		versioning: s3types.BucketVersioningStatusEnabled,
	}
	keys := &fakeKeys{policy: asDeployed(t, def.Key.Policy), rotation: true}

	decl := &cptypes.PipelineDeclaration{
		Name:    aws.String(def.Pipeline.Name),
		RoleArn: aws.String(def.Pipeline.RoleARN),
		ArtifactStore: &cptypes.ArtifactStore{
			Type:          cptypes.ArtifactStoreTypeS3,
			Location:      aws.String(def.Bucket.Name),
			EncryptionKey: &cptypes.EncryptionKey{Type: cptypes.EncryptionKeyTypeKms, Id: aws.String(testKeyARN)},
		},
	}
	for _, s := range def.Pipeline.Stages {
		stage := cptypes.StageDeclaration{Name: aws.String(s.Name)}
		for _, a := range s.Actions {
			action := cptypes.ActionDeclaration{Name: aws.String(a.Name), Configuration: a.Configuration}
			if a.RoleARN != "" {
				action.RoleArn = aws.String(a.RoleARN)
			}
			stage.Actions = append(stage.Actions, action)
		}
		decl.Stages = append(decl.Stages, stage)
	}
	return buckets, keys, &fakePipelines{decl: decl}
}

func TestVerifyNoDrift(t *testing.T) {
	def := testDefinition(t)
	buckets, keys, pipelines := deployed(t, def)

	report, err := New(def, buckets, keys, pipelines).Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK(), "%v", report.Findings)
	assert.Len(t, report.Checked, 3)

	var out bytes.Buffer
	require.NoError(t, report.Write(&out))
	assert.Equal(t, "no drift in 3 resources\n", out.String())
}

func TestVerifyDetectsDrift(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*fakeBuckets, *fakeKeys, *fakePipelines)
		resource string
		message  string
	}{
		{
			name: "bucket policy widened",
			mutate: func(b *fakeBuckets, _ *fakeKeys, _ *fakePipelines) {
				b.policy = strings.Replace(b.policy, `"s3:ListBucket"`, `"s3:*"`, 1)
			},
			resource: "bucket codepipeline-iacs3bucket",
			message:  "policy differs",
		},
		{
			name: "bucket encryption",
			mutate: func(b *fakeBuckets, _ *fakeKeys, _ *fakePipelines) {
				b.sse = &s3types.ServerSideEncryptionByDefault{SSEAlgorithm: s3types.ServerSideEncryptionAes256}
			},
			resource: "bucket codepipeline-iacs3bucket",
			message:  "not aws:kms",
		},
		{
			name: "versioning suspended",
			mutate: func(b *fakeBuckets, _ *fakeKeys, _ *fakePipelines) {
				b.versioning = s3types.BucketVersioningStatusSuspended
			},
			resource: "bucket codepipeline-iacs3bucket",
			message:  "versioning",
		},
		{
			name: "key rotation off",
			mutate: func(_ *fakeBuckets, k *fakeKeys, _ *fakePipelines) {
				k.rotation = false
			},
			resource: "key alias/codepipeline-iac-artifacts",
			message:  "key rotation is false",
		},
		{
			name: "key policy",
			mutate: func(_ *fakeBuckets, k *fakeKeys, _ *fakePipelines) {
				k.policy = strings.Replace(k.policy, "222222222222", "333333333333", -1)
			},
			resource: "key alias/codepipeline-iac-artifacts",
			message:  "policy differs",
		},
		{
			name: "key missing",
			mutate: func(_ *fakeBuckets, k *fakeKeys, _ *fakePipelines) {
				k.describeErr = &kmstypes.NotFoundException{Message: aws.String("alias not found")}
			},
			resource: "key alias/codepipeline-iac-artifacts",
			message:  "not found",
		},
		{
			name: "pipeline role",
			mutate: func(_ *fakeBuckets, _ *fakeKeys, p *fakePipelines) {
				p.decl.RoleArn = aws.String("arn:aws:iam::111111111111:role/other")
			},
			resource: "pipeline codePipeline-codepipeline-iac",
			message:  "runs as arn:aws:iam::111111111111:role/other",
		},
		{
			name: "stage removed",
			mutate: func(_ *fakeBuckets, _ *fakeKeys, p *fakePipelines) {
				p.decl.Stages = p.decl.Stages[:1]
			},
			resource: "pipeline codePipeline-codepipeline-iac",
			message:  "stages are [Source], expected [Source Build]",
		},
		{
			name: "branch changed",
			mutate: func(_ *fakeBuckets, _ *fakeKeys, p *fakePipelines) {
				p.decl.Stages[0].Actions[0].Configuration = map[string]string{
					"RepositoryName":       "codepipeline-iac",
					"BranchName":           "develop",
					"PollForSourceChanges": "true",
				}
			},
			resource: "pipeline codePipeline-codepipeline-iac",
			message:  `BranchName="develop"`,
		},
		{
			name: "pipeline missing",
			mutate: func(_ *fakeBuckets, _ *fakeKeys, p *fakePipelines) {
				p.err = &cptypes.PipelineNotFoundException{Message: aws.String("gone")}
			},
			resource: "pipeline codePipeline-codepipeline-iac",
			message:  "not found",
		},
		{
			name: "bucket policy missing",
			mutate: func(b *fakeBuckets, _ *fakeKeys, _ *fakePipelines) {
				b.policyErr = &smithy.GenericAPIError{Code: "NoSuchBucketPolicy", Message: "none"}
			},
			resource: "bucket codepipeline-iacs3bucket",
			message:  "not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := testDefinition(t)
			buckets, keys, pipelines := deployed(t, def)
			tt.mutate(buckets, keys, pipelines)

			report, err := New(def, buckets, keys, pipelines).Verify(context.Background())
			require.NoError(t, err)
			require.False(t, report.OK())

			var found bool
			for _, f := range report.Findings {
				if f.Resource == tt.resource && strings.Contains(f.Message, tt.message) {
					found = true
				}
			}
			assert.True(t, found, "no %q finding on %s in %v", tt.message, tt.resource, report.Findings)
		})
	}
}

func TestVerifyAbortsOnAPIError(t *testing.T) {
	def := testDefinition(t)
	buckets, keys, pipelines := deployed(t, def)
	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	buckets.policyErr = denied

	report, err := New(def, buckets, keys, pipelines).Verify(context.Background())
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, denied))
}
