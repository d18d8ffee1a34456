package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/pipeline-iac/synth"
)

func createArtifactKey(resources *PipelineResources) awskms.CfnKey {
	k := resources.def.Key

	key := awskms.NewCfnKey(resources.stack, jsii.String(synth.RefArtifactKey), &awskms.CfnKeyProps{
		Description:       jsii.String(k.Description),
		EnableKeyRotation: jsii.Bool(k.Rotation),
		KeyPolicy:         k.Policy.Map(),
	})
	// Artifacts outlive the stack; deleting the key would make them unreadable.
	key.ApplyRemovalPolicy(awscdk.RemovalPolicy_RETAIN, nil)

	alias := awskms.NewCfnAlias(resources.stack, jsii.String(synth.RefArtifactKey+"Alias"), &awskms.CfnAliasProps{
		AliasName:   jsii.String(k.Alias),
		TargetKeyId: key.Ref(),
	})

	resources.register(synth.RefArtifactKey, key, alias)
	return key
}
