package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatchactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/pipeline-iac/synth"
)

// CodeBuild related resources
func createCodeBuildResources(resources *PipelineResources) awscodebuild.CfnProject {
	project := createCodeBuildProject(resources)

	// Failed builds page the notification topic when there is one.
	if resources.alarmTopic != nil {
		codeBuildAlarm := createCodeBuildAlarm(resources, resources.def.Project.Name)
		codeBuildAlarm.AddAlarmAction(awscloudwatchactions.NewSnsAction(resources.alarmTopic))
	}

	return project
}

func createCodeBuildProject(resources *PipelineResources) awscodebuild.CfnProject {
	p := resources.def.Project

	project := awscodebuild.NewCfnProject(resources.stack, jsii.String(synth.RefBuildProject), &awscodebuild.CfnProjectProps{
		Name:          jsii.String(p.Name),
		ServiceRole:   jsii.String(p.RoleARN),
		EncryptionKey: resources.artifactKey.AttrArn(),
		Source: &awscodebuild.CfnProject_SourceProperty{
			Type: jsii.String("CODEPIPELINE"),
		},
		Artifacts: &awscodebuild.CfnProject_ArtifactsProperty{
			Type: jsii.String("CODEPIPELINE"),
		},
		Environment: &awscodebuild.CfnProject_EnvironmentProperty{
			ComputeType:              jsii.String("BUILD_GENERAL1_SMALL"),
			Image:                    jsii.String(p.Image),
			Type:                     jsii.String("LINUX_CONTAINER"),
			PrivilegedMode:           jsii.Bool(p.Privileged),
			ImagePullCredentialsType: jsii.String("CODEBUILD"),
		},
	})

	resources.register(synth.RefBuildProject, project)
	return project
}

func createCodeBuildAlarm(resources *PipelineResources, projectName string) awscloudwatch.Alarm {
	return alarm(resources.stack, "CodeBuildFailureAlarm-"+resources.def.Identity.ResourceName(),
		"Alert when the CodeBuild project fails",
		awscloudwatch.NewMetric(&awscloudwatch.MetricProps{
			Namespace:  jsii.String("AWS/CodeBuild"),
			MetricName: jsii.String("FailedBuilds"),
			Statistic:  jsii.String("Sum"),
			Period:     awscdk.Duration_Minutes(jsii.Number(5)),
			DimensionsMap: &map[string]*string{
				"ProjectName": jsii.String(projectName),
			},
			Unit: awscloudwatch.Unit_COUNT,
		}))
}
