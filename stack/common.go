package stack

import (
	"errors"
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/pipeline-iac/synth"
)

var ErrNoDefinition = errors.New("stack props carry no definition")

// PipelineIaCStackProps are the props of the pipeline stack.
type PipelineIaCStackProps struct {
	awscdk.StackProps

	// Definition is the synthesized resource tree to render.
	Definition *synth.Definition
}

func initializeStack(scope constructs.Construct, id string, props *PipelineIaCStackProps) awscdk.Stack {
	sprops := props.StackProps

	if sprops.Env == nil {
		sprops.Env = &awscdk.Environment{
			Account: jsii.String(props.Definition.Identity.AccountID()),
			Region:  jsii.String(props.Definition.Identity.Region()),
		}
	}

	// The bootstrap version rule is left out of the template.
	if sprops.Synthesizer == nil {
		sprops.Synthesizer = awscdk.NewDefaultStackSynthesizer(&awscdk.DefaultStackSynthesizerProps{
			GenerateBootstrapVersionRule: jsii.Bool(false),
		})
	}

	return awscdk.NewStack(scope, &id, &sprops)
}

func createArtifactBucket(resources *PipelineResources) awss3.CfnBucket {
	b := resources.def.Bucket

	bucket := awss3.NewCfnBucket(resources.stack, jsii.String(synth.RefArtifactBucket), &awss3.CfnBucketProps{
		BucketName: jsii.String(b.Name),
		BucketEncryption: &awss3.CfnBucket_BucketEncryptionProperty{
			ServerSideEncryptionConfiguration: &[]interface{}{
				&awss3.CfnBucket_ServerSideEncryptionRuleProperty{
					ServerSideEncryptionByDefault: &awss3.CfnBucket_ServerSideEncryptionByDefaultProperty{
						SseAlgorithm:   jsii.String("aws:kms"),
						KmsMasterKeyId: resources.artifactKey.AttrArn(),
					},
				},
			},
		},
		VersioningConfiguration: versioning(b.Versioned),
		PublicAccessBlockConfiguration: &awss3.CfnBucket_PublicAccessBlockConfigurationProperty{
			BlockPublicAcls:       jsii.Bool(b.BlockPublic),
			BlockPublicPolicy:     jsii.Bool(b.BlockPublic),
			IgnorePublicAcls:      jsii.Bool(b.BlockPublic),
			RestrictPublicBuckets: jsii.Bool(b.BlockPublic),
		},
	})
	bucket.ApplyRemovalPolicy(awscdk.RemovalPolicy_RETAIN, nil)

	bucketPolicy := awss3.NewCfnBucketPolicy(resources.stack, jsii.String(synth.RefArtifactBucket+"Policy"), &awss3.CfnBucketPolicyProps{
		Bucket:         bucket.Ref(),
		PolicyDocument: b.Policy.Map(),
	})

	resources.register(synth.RefArtifactBucket, bucket, bucketPolicy)
	return bucket
}

func versioning(enabled bool) *awss3.CfnBucket_VersioningConfigurationProperty {
	status := "Suspended"
	if enabled {
		status = "Enabled"
	}
	return &awss3.CfnBucket_VersioningConfigurationProperty{Status: jsii.String(status)}
}

// applyDependencies turns the declared reference dependencies into
// DependsOn entries. The primary construct of a reference waits for every
// construct of each dependency.
func applyDependencies(resources *PipelineResources) error {
	refs := resources.def.Refs
	for _, ref := range refs.Order() {
		dependent := resources.byRef[ref]
		if len(dependent) == 0 {
			return fmt.Errorf("%w: nothing rendered for %s", synth.ErrUnknownRef, ref)
		}
		for _, dep := range refs.DependsOn(ref) {
			deps := resources.byRef[dep]
			if len(deps) == 0 {
				return fmt.Errorf("%w: nothing rendered for %s", synth.ErrUnknownRef, dep)
			}
			for _, c := range deps {
				dependent[0].Node().AddDependency(c)
			}
		}
	}
	return nil
}
