package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
)

func createStackOutputs(resources *PipelineResources) {
	awscdk.NewCfnOutput(resources.stack, jsii.String("codePipelineNameOutput"), &awscdk.CfnOutputProps{
		Value: resources.pipeline.Ref(),
	})

	awscdk.NewCfnOutput(resources.stack, jsii.String("CodeBuildProjectOutput"), &awscdk.CfnOutputProps{
		Value: resources.buildProject.Ref(),
	})

	awscdk.NewCfnOutput(resources.stack, jsii.String("ArtifactBucketOutput"), &awscdk.CfnOutputProps{
		Value: resources.artifactBucket.Ref(),
	})

	awscdk.NewCfnOutput(resources.stack, jsii.String("ArtifactKeyArnOutput"), &awscdk.CfnOutputProps{
		Value: resources.artifactKey.AttrArn(),
	})
}
