package stack

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2/awschatbot"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodestarnotifications"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/pipeline-iac/policy"
	"github.com/30Piraten/pipeline-iac/synth"
)

func createSlackChannel(resources *PipelineResources) awschatbot.SlackChannelConfiguration {
	s := resources.def.Slack

	channel := awschatbot.NewSlackChannelConfiguration(resources.stack, jsii.String(synth.RefSlackChannel), &awschatbot.SlackChannelConfigurationProps{
		SlackChannelConfigurationName: jsii.String(s.Name),
		SlackWorkspaceId:              jsii.String(s.WorkspaceID),
		SlackChannelId:                jsii.String(s.ChannelID),
	})

	resources.register(synth.RefSlackChannel, channel)
	return channel
}

// createNotificationRule subscribes the targets to the pipeline events.
func createNotificationRule(resources *PipelineResources) (awscodestarnotifications.CfnNotificationRule, error) {
	id := resources.def.Identity
	sub := resources.def.Pipeline.Notifications

	targets := make([]interface{}, 0, len(sub.Targets))
	for _, t := range sub.Targets {
		address := resources.targetAddress(t.Ref)
		if address == nil {
			return nil, fmt.Errorf("%w: notification target %s", synth.ErrUnknownRef, t.Ref)
		}
		targets = append(targets, &awscodestarnotifications.CfnNotificationRule_TargetProperty{
			TargetType:    jsii.String(string(t.Type)),
			TargetAddress: address,
		})
	}

	rule := awscodestarnotifications.NewCfnNotificationRule(resources.stack, jsii.String(sub.Name), &awscodestarnotifications.CfnNotificationRuleProps{
		Name:         jsii.String(sub.Name),
		DetailType:   jsii.String(sub.DetailType),
		EventTypeIds: jsii.Strings(sub.EventIDs()...),
		Resource:     jsii.String(policy.PipelineARN(id.Partition(), id.Region(), id.AccountID(), resources.def.Pipeline.Name)),
		Targets:      &targets,
	})
	rule.Node().AddDependency(resources.pipeline)

	return rule, nil
}
