package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/pipeline-iac/synth"
	"github.com/30Piraten/pipeline-iac/topology"
)

// Pipeline related resources
func createPipelineResources(resources *PipelineResources) awscodepipeline.CfnPipeline {
	p := resources.def.Pipeline

	stages := make([]interface{}, 0, len(p.Stages))
	for _, s := range p.Stages {
		stages = append(stages, createStage(s))
	}

	pipeline := awscodepipeline.NewCfnPipeline(resources.stack, jsii.String(synth.RefPipeline), &awscodepipeline.CfnPipelineProps{
		Name:    jsii.String(p.Name),
		RoleArn: jsii.String(p.RoleARN),
		ArtifactStore: &awscodepipeline.CfnPipeline_ArtifactStoreProperty{
			Type:     jsii.String("S3"),
			Location: resources.artifactBucket.Ref(),
			EncryptionKey: &awscodepipeline.CfnPipeline_EncryptionKeyProperty{
				Type: jsii.String("KMS"),
				Id:   resources.artifactKey.AttrArn(),
			},
		},
		Stages: &stages,
	})

	resources.register(synth.RefPipeline, pipeline)
	return pipeline
}

func createStage(s topology.Stage) *awscodepipeline.CfnPipeline_StageDeclarationProperty {
	actions := make([]interface{}, 0, len(s.Actions))
	for _, a := range s.Actions {
		actions = append(actions, createAction(a))
	}
	return &awscodepipeline.CfnPipeline_StageDeclarationProperty{
		Name:    jsii.String(s.Name),
		Actions: &actions,
	}
}

func createAction(a topology.Action) *awscodepipeline.CfnPipeline_ActionDeclarationProperty {
	decl := &awscodepipeline.CfnPipeline_ActionDeclarationProperty{
		Name: jsii.String(a.Name),
		ActionTypeId: &awscodepipeline.CfnPipeline_ActionTypeIdProperty{
			Category: jsii.String(string(a.Category)),
			Owner:    jsii.String(a.Owner),
			Provider: jsii.String(a.Provider),
			Version:  jsii.String(a.Version),
		},
	}
	if a.RunOrder > 0 {
		decl.RunOrder = jsii.Number(float64(a.RunOrder))
	}
	if a.RoleARN != "" {
		decl.RoleArn = jsii.String(a.RoleARN)
	}
	if len(a.Configuration) > 0 {
		decl.Configuration = configuration(a.Configuration)
	}
	if len(a.Inputs) > 0 {
		decl.InputArtifacts = inputArtifacts(a.Inputs)
	}
	if len(a.Outputs) > 0 {
		decl.OutputArtifacts = outputArtifacts(a.Outputs)
	}
	return decl
}

func configuration(c map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func inputArtifacts(names []string) *[]interface{} {
	out := make([]interface{}, 0, len(names))
	for _, n := range names {
		out = append(out, &awscodepipeline.CfnPipeline_InputArtifactProperty{Name: jsii.String(n)})
	}
	return &out
}

func outputArtifacts(names []string) *[]interface{} {
	out := make([]interface{}, 0, len(names))
	for _, n := range names {
		out = append(out, &awscodepipeline.CfnPipeline_OutputArtifactProperty{Name: jsii.String(n)})
	}
	return &out
}
