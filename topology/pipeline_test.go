package topology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/30Piraten/pipeline-iac/identity"
)

func testInput(t *testing.T) BuildInput {
	t.Helper()
	id, err := identity.Resolve(identity.Params{
		AccountID:        "111111111111",
		Region:           "ap-northeast-1",
		SourceAccountID:  "222222222222",
		Branch:           "develop",
		ForeignRoleARN:   "arn:aws:iam::222222222222:role/codeCommitRole",
		SlackWorkspaceID: "T0000000000",
		SlackChannelID:   "C0000000000",
	})
	require.NoError(t, err)
	return BuildInput{
		Identity:         id,
		RoleARN:          "arn:aws:iam::111111111111:role/codePipelineServiceRole-codepipeline-iac",
		BucketName:       "codepipeline-iacs3bucket",
		KeyRef:           "ArtifactKey",
		BuildProjectName: BuildProjectName(id.ResourceName()),
		Targets:          []Target{{Type: TargetSlack, Ref: "SlackChannel"}},
	}
}

func TestBuild(t *testing.T) {
	p, err := Build(testInput(t))
	require.NoError(t, err)

	assert.Equal(t, "codePipeline-codepipeline-iac", p.Name)
	assert.Equal(t, []string{"Source", "Build"}, p.StageNames())
	assert.Equal(t, ArtifactStore{BucketName: "codepipeline-iacs3bucket", KeyRef: "ArtifactKey"}, p.Store)

	source, ok := p.Stage("Source")
	require.True(t, ok)
	require.Len(t, source.Actions, 1)
	src := source.Actions[0]
	assert.Equal(t, "CodeCommit", src.Provider)
	assert.Equal(t, "arn:aws:iam::222222222222:role/codeCommitRole", src.RoleARN)
	assert.Equal(t, "develop", src.Configuration["BranchName"])
	assert.Equal(t, "codepipeline-iac", src.Configuration["RepositoryName"])

	build, ok := p.Stage("Build")
	require.True(t, ok)
	bld := build.Actions[0]
	assert.Equal(t, src.Outputs, bld.Inputs)
	assert.Equal(t, []string{BuildOutput}, bld.Outputs)
	assert.Equal(t, "codeBuild-codepipeline-iac", bld.Configuration["ProjectName"])
}

func TestBuildDefaultsNotifications(t *testing.T) {
	p, err := Build(testInput(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultEvents(), p.Notifications.Events)
	assert.Len(t, p.Notifications.Events, 7)
	assert.Equal(t, DetailFull, p.Notifications.DetailType)
	assert.Equal(t, []Target{{Type: TargetSlack, Ref: "SlackChannel"}}, p.Notifications.Targets)
}

func TestBuildExtraStages(t *testing.T) {
	in := testInput(t)
	in.ExtraStages = []Stage{{
		Name: "Deploy",
		Actions: []Action{{
			Name:     "deployAction",
			Category: CategoryDeploy,
			Inputs:   []string{BuildOutput},
		}},
	}}
	p, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Source", "Build", "Deploy"}, p.StageNames())

	in.ExtraStages[0].Actions[0].Inputs = []string{"deployInput"}
	_, err = Build(in)
	assert.ErrorIs(t, err, ErrDanglingInput)
}

func TestBuildCopiesExtraStages(t *testing.T) {
	in := testInput(t)
	in.ExtraStages = []Stage{{
		Name: "Deploy",
		Actions: []Action{{
			Name:          "deployAction",
			Category:      CategoryDeploy,
			Inputs:        []string{BuildOutput},
			Configuration: map[string]string{"BucketName": "deploy-bucket"},
		}},
	}}
	p, err := Build(in)
	require.NoError(t, err)

	in.ExtraStages[0].Actions[0].Inputs[0] = "nonexistent"
	in.ExtraStages[0].Actions[0].Configuration["BucketName"] = "mutated"
	in.ExtraStages[0].Actions = append(in.ExtraStages[0].Actions, Action{Name: "extra"})

	deploy, ok := p.Stage("Deploy")
	require.True(t, ok)
	require.Len(t, deploy.Actions, 1)
	assert.Equal(t, []string{BuildOutput}, deploy.Actions[0].Inputs)
	assert.Equal(t, "deploy-bucket", deploy.Actions[0].Configuration["BucketName"])
	assert.NoError(t, Validate(p))
}

func TestValidateWithoutSource(t *testing.T) {
	p, err := Build(testInput(t))
	require.NoError(t, err)

	err = Validate(p.Without("Source"))
	require.ErrorIs(t, err, ErrDanglingInput)
	assert.Contains(t, err.Error(), SourceOutput)
}

func TestValidate(t *testing.T) {
	produce := func(name, out string) Action { return Action{Name: name, Outputs: []string{out}} }
	consume := func(name, in string) Action { return Action{Name: name, Inputs: []string{in}} }

	tests := []struct {
		name   string
		stages []Stage
		err    error
	}{
		{
			name:   "linear",
			stages: []Stage{{Name: "a", Actions: []Action{produce("p", "x")}}, {Name: "b", Actions: []Action{consume("c", "x")}}},
		},
		{
			name:   "same stage input",
			stages: []Stage{{Name: "a", Actions: []Action{produce("p", "x"), consume("c", "x")}}},
			err:    ErrDanglingInput,
		},
		{
			name:   "later producer",
			stages: []Stage{{Name: "a", Actions: []Action{consume("c", "x")}}, {Name: "b", Actions: []Action{produce("p", "x")}}},
			err:    ErrDanglingInput,
		},
		{
			name:   "two producers",
			stages: []Stage{{Name: "a", Actions: []Action{produce("p1", "x")}}, {Name: "b", Actions: []Action{produce("p2", "x")}}},
			err:    ErrDuplicateOutput,
		},
		{
			name:   "duplicate stage",
			stages: []Stage{{Name: "a", Actions: []Action{produce("p", "x")}}, {Name: "a", Actions: []Action{consume("c", "x")}}},
			err:    ErrDuplicateStage,
		},
		{
			name:   "empty stage",
			stages: []Stage{{Name: "a"}},
			err:    ErrEmptyStage,
		},
		{
			name:   "unnamed stage",
			stages: []Stage{{Actions: []Action{produce("p", "x")}}},
			err:    ErrUnnamedStage,
		},
		{
			name: "no stages",
			err:  ErrNoStages,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Pipeline{Stages: tt.stages})
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestBuildNameTooLong(t *testing.T) {
	in := testInput(t)
	id, err := identity.Resolve(identity.Params{
		AccountID:        "111111111111",
		Region:           "ap-northeast-1",
		SourceAccountID:  "222222222222",
		ForeignRoleARN:   "arn:aws:iam::222222222222:role/codeCommitRole",
		SlackWorkspaceID: "T0000000000",
		SlackChannelID:   "C0000000000",
		ResourceName:     strings.Repeat("a", 90),
	})
	require.NoError(t, err)
	in.Identity = id

	_, err = Build(in)
	assert.ErrorIs(t, err, ErrNameTooLong)
	assert.ErrorIs(t, err, identity.ErrNameTooLong)
}
