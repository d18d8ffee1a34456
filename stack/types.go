package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awschatbot"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/constructs-go/constructs/v10"

	"github.com/30Piraten/pipeline-iac/synth"
)

// PipelineResources carries the constructs created so far. Later create*
// functions read handles from here instead of looking them up by name.
type PipelineResources struct {
	stack awscdk.Stack
	def   *synth.Definition

	// byRef maps a logical identifier to every construct rendered for it,
	// so a dependency on a role also waits for its managed policy.
	byRef map[string][]constructs.IConstruct

	artifactKey    awskms.CfnKey
	artifactBucket awss3.CfnBucket
	buildProject   awscodebuild.CfnProject
	pipeline       awscodepipeline.CfnPipeline
	slackChannel   awschatbot.SlackChannelConfiguration
	alarmTopic     awssns.ITopic
}

func (r *PipelineResources) register(ref string, cs ...constructs.IConstruct) {
	r.byRef[ref] = append(r.byRef[ref], cs...)
}

// targetAddress resolves a notification target identifier to its ARN.
func (r *PipelineResources) targetAddress(ref string) *string {
	switch ref {
	case synth.RefSlackChannel:
		return r.slackChannel.SlackChannelConfigurationArn()
	case synth.RefNotificationTopic:
		if r.alarmTopic != nil {
			return r.alarmTopic.TopicArn()
		}
	}
	return nil
}
