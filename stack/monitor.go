package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/pipeline-iac/synth"
)

// Monitoring resources. Nil when no notification topic was requested.
func createMonitoringResources(resources *PipelineResources) awssns.ITopic {
	t := resources.def.Topic
	if t == nil {
		return nil
	}

	topic := awssns.NewTopic(resources.stack, jsii.String(synth.RefNotificationTopic), &awssns.TopicProps{
		TopicName:   jsii.String(t.Name),
		DisplayName: jsii.String("Pipeline notifications " + resources.def.Identity.ResourceName()),
	})

	// Replaces the default topic policy, so both publishers are listed.
	topicPolicy := awssns.NewCfnTopicPolicy(resources.stack, jsii.String(synth.RefNotificationTopic+"Policy"), &awssns.CfnTopicPolicyProps{
		PolicyDocument: t.Policy.Map(),
		Topics:         &[]*string{topic.TopicArn()},
	})

	resources.register(synth.RefNotificationTopic, topic, topicPolicy)
	return topic
}
