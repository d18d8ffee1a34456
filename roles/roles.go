// Package roles builds the least-privilege service roles assumed by
// CodePipeline and CodeBuild.
package roles

import (
	"fmt"

	"github.com/30Piraten/pipeline-iac/identity"
	"github.com/30Piraten/pipeline-iac/policy"
)

const (
	PipelineService = "codepipeline.amazonaws.com"
	BuildService    = "codebuild.amazonaws.com"

	// MaxNameLength is the IAM limit for role and managed policy names.
	MaxNameLength = 64
)

var ErrNameTooLong = identity.ErrNameTooLong

// ServiceRole is an IAM role with a single managed policy.
type ServiceRole struct {
	Name           string
	PolicyName     string
	TrustedService string
	ARN            string
	Policy         policy.Document
}

// TrustPolicy allows only the trusted service to assume the role.
func (r ServiceRole) TrustPolicy() policy.Document {
	return policy.NewDocument(policy.Statement{
		Effect:     policy.Allow,
		Principals: []policy.Principal{policy.Service(r.TrustedService)},
		Actions:    []policy.Action{policy.STSAssumeRole},
	})
}

// PipelineRoleName is the IAM name of the pipeline service role.
func PipelineRoleName(resourceName string) string {
	return "codePipelineServiceRole-" + resourceName
}

// BuildRoleName is the IAM name of the build service role.
func BuildRoleName(resourceName string) string {
	return "codeBuildServiceRole-" + resourceName
}

// BuildPipelineRole returns the role CodePipeline runs as. Its only
// cross-account hop is sts:AssumeRole on the foreign role.
func BuildPipelineRole(id identity.Identity, bucketName string) (ServiceRole, error) {
	name := PipelineRoleName(id.ResourceName())
	policyName := "codePipelineServicePolicy-" + id.ResourceName()
	if err := checkNames(name, policyName); err != nil {
		return ServiceRole{}, err
	}

	assumeForeignRole := policy.Statement{
		Effect:    policy.Allow,
		Actions:   []policy.Action{policy.STSAssumeRole},
		Resources: []string{id.ForeignRoleARN()},
	}
	// Project names are not known when the role is created, so every
	// project in the account and region is allowed.
	codeBuild := policy.Statement{
		Effect:    policy.Allow,
		Actions:   []policy.Action{policy.CodeBuildBatchGetBuilds, policy.CodeBuildStartBuild},
		Resources: []string{policy.CodeBuildProjectsARN(id.Partition(), id.Region(), id.AccountID())},
	}

	return ServiceRole{
		Name:           name,
		PolicyName:     policyName,
		TrustedService: PipelineService,
		ARN:            policy.RoleARN(id.Partition(), id.AccountID(), name),
		Policy: policy.NewDocument(
			assumeForeignRole,
			artifactStatement(id.Partition(), bucketName),
			codeBuild,
		),
	}, nil
}

// BuildBuildRole returns the role CodeBuild runs as. It has no
// cross-account trust.
func BuildBuildRole(id identity.Identity, bucketName string) (ServiceRole, error) {
	name := BuildRoleName(id.ResourceName())
	policyName := "codeBuildServicePolicy-" + id.ResourceName()
	if err := checkNames(name, policyName); err != nil {
		return ServiceRole{}, err
	}

	logs := policy.Statement{
		Effect: policy.Allow,
		Actions: []policy.Action{
			policy.LogsCreateLogGroup,
			policy.LogsCreateLogStream,
			policy.LogsPutLogEvents,
		},
		Resources: []string{policy.CodeBuildLogGroupsARN(id.Partition(), id.Region(), id.AccountID())},
	}

	return ServiceRole{
		Name:           name,
		PolicyName:     policyName,
		TrustedService: BuildService,
		ARN:            policy.RoleARN(id.Partition(), id.AccountID(), name),
		Policy:         policy.NewDocument(logs, artifactStatement(id.Partition(), bucketName)),
	}, nil
}

func artifactStatement(partition, bucketName string) policy.Statement {
	return policy.Statement{
		Effect: policy.Allow,
		Actions: []policy.Action{
			policy.S3PutObject,
			policy.S3GetObject,
			policy.S3GetObjectVersion,
			policy.S3GetBucketVersioning,
		},
		Resources: []string{
			policy.BucketARN(partition, bucketName),
			policy.BucketObjectsARN(partition, bucketName),
		},
	}
}

func checkNames(names ...string) error {
	for _, n := range names {
		if len(n) > MaxNameLength {
			return fmt.Errorf("%w: %q is %d characters, limit %d", ErrNameTooLong, n, len(n), MaxNameLength)
		}
	}
	return nil
}
