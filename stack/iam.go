package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/pipeline-iac/roles"
	"github.com/30Piraten/pipeline-iac/synth"
)

func createServiceRoles(resources *PipelineResources) {
	createServiceRole(resources, synth.RefPipelineRole, resources.def.PipelineRole)
	createServiceRole(resources, synth.RefBuildRole, resources.def.BuildRole)
}

// createServiceRole renders the role and its single managed policy. The
// role name is fixed so the ARN embedded in the key policy resolves.
func createServiceRole(resources *PipelineResources, ref string, r roles.ServiceRole) awsiam.CfnRole {
	role := awsiam.NewCfnRole(resources.stack, jsii.String(ref), &awsiam.CfnRoleProps{
		RoleName:                 jsii.String(r.Name),
		AssumeRolePolicyDocument: r.TrustPolicy().Map(),
	})

	managed := awsiam.NewCfnManagedPolicy(resources.stack, jsii.String(ref+"Policy"), &awsiam.CfnManagedPolicyProps{
		ManagedPolicyName: jsii.String(r.PolicyName),
		PolicyDocument:    r.Policy.Map(),
		Roles:             &[]*string{role.Ref()},
	})

	resources.register(ref, role, managed)
	return role
}
