// Package stack renders a synthesized pipeline definition into a CDK stack.
//
// Every IAM, KMS and S3 policy is emitted through L1 constructs, so the
// template carries exactly the documents built by the synth package.
package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
)

// NewPipelineIaCStack renders props.Definition under scope.
func NewPipelineIaCStack(scope constructs.Construct, id string, props *PipelineIaCStackProps) (awscdk.Stack, error) {
	if props == nil || props.Definition == nil {
		return nil, ErrNoDefinition
	}

	stack := initializeStack(scope, id, props)
	resources := &PipelineResources{
		stack: stack,
		def:   props.Definition,
		byRef: map[string][]constructs.IConstruct{},
	}

	createServiceRoles(resources)
	resources.artifactKey = createArtifactKey(resources)
	resources.artifactBucket = createArtifactBucket(resources)
	resources.alarmTopic = createMonitoringResources(resources)
	resources.buildProject = createCodeBuildResources(resources)
	resources.slackChannel = createSlackChannel(resources)
	resources.pipeline = createPipelineResources(resources)

	if _, err := createNotificationRule(resources); err != nil {
		return nil, err
	}
	if err := applyDependencies(resources); err != nil {
		return nil, err
	}

	createStackOutputs(resources)
	return stack, nil
}
