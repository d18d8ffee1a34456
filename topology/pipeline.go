// Package topology describes the stages of the delivery pipeline and checks
// that artifacts flow between them in a single forward direction.
package topology

import (
	"errors"
	"fmt"

	"github.com/30Piraten/pipeline-iac/identity"
)

// Artifact names shared between stages.
const (
	SourceOutput = "sourceOutput"
	BuildOutput  = "buildOutput"
)

// MaxPipelineNameLength is the CodePipeline limit for pipeline names.
const MaxPipelineNameLength = 100

var (
	ErrNameTooLong     = identity.ErrNameTooLong
	ErrDanglingInput   = errors.New("dangling input reference")
	ErrDuplicateOutput = errors.New("artifact has more than one producer")
	ErrDuplicateStage  = errors.New("duplicate stage name")
	ErrEmptyStage      = errors.New("stage has no actions")
	ErrUnnamedStage    = errors.New("stage has no name")
	ErrNoStages        = errors.New("pipeline has no stages")
)

// Category is the CodePipeline action category.
type Category string

const (
	CategorySource   Category = "Source"
	CategoryBuild    Category = "Build"
	CategoryTest     Category = "Test"
	CategoryDeploy   Category = "Deploy"
	CategoryApproval Category = "Approval"
	CategoryInvoke   Category = "Invoke"
)

// Action is one step of a stage. Inputs and Outputs are artifact names.
type Action struct {
	Name          string
	Category      Category
	Owner         string
	Provider      string
	Version       string
	RunOrder      int
	Inputs        []string
	Outputs       []string
	RoleARN       string
	Configuration map[string]string
}

// Stage is an ordered group of actions.
type Stage struct {
	Name    string
	Actions []Action
}

// ArtifactStore is where CodePipeline keeps artifacts between stages.
type ArtifactStore struct {
	BucketName string
	KeyRef     string
}

// Pipeline is the complete pipeline declaration.
type Pipeline struct {
	Name          string
	RoleARN       string
	Store         ArtifactStore
	Stages        []Stage
	Notifications Subscription
}

// BuildInput collects what Build needs from the earlier synthesis steps.
type BuildInput struct {
	Identity         identity.Identity
	RoleARN          string
	BucketName       string
	KeyRef           string
	BuildProjectName string
	Events           []Event
	Targets          []Target

	// ExtraStages run after Build, in order. The deploy stage plugs in here.
	ExtraStages []Stage
}

// PipelineName is the CodePipeline name for resourceName.
func PipelineName(resourceName string) string {
	return "codePipeline-" + resourceName
}

// BuildProjectName is the CodeBuild project name for resourceName.
func BuildProjectName(resourceName string) string {
	return "codeBuild-" + resourceName
}

// Build returns the Source → Build pipeline followed by in.ExtraStages.
func Build(in BuildInput) (Pipeline, error) {
	id := in.Identity
	name := PipelineName(id.ResourceName())
	if len(name) > MaxPipelineNameLength {
		return Pipeline{}, fmt.Errorf("%w: pipeline %q is %d characters, limit %d", ErrNameTooLong, name, len(name), MaxPipelineNameLength)
	}

	events := in.Events
	if events == nil {
		events = DefaultEvents()
	}

	// The repository lives in the source account, so the action runs
	// under the foreign role.
	source := Stage{
		Name: "Source",
		Actions: []Action{{
			Name:     "sourceAction-" + id.ResourceName(),
			Category: CategorySource,
			Owner:    "AWS",
			Provider: "CodeCommit",
			Version:  "1",
			RunOrder: 1,
			Outputs:  []string{SourceOutput},
			RoleARN:  id.ForeignRoleARN(),
			Configuration: map[string]string{
				"RepositoryName":       id.ResourceName(),
				"BranchName":           string(id.Branch()),
				"PollForSourceChanges": "true",
			},
		}},
	}
	build := Stage{
		Name: "Build",
		Actions: []Action{{
			Name:     "buildAction-" + id.ResourceName(),
			Category: CategoryBuild,
			Owner:    "AWS",
			Provider: "CodeBuild",
			Version:  "1",
			RunOrder: 1,
			Inputs:   []string{SourceOutput},
			Outputs:  []string{BuildOutput},
			Configuration: map[string]string{
				"ProjectName": in.BuildProjectName,
			},
		}},
	}

	p := Pipeline{
		Name:    name,
		RoleARN: in.RoleARN,
		Store: ArtifactStore{
			BucketName: in.BucketName,
			KeyRef:     in.KeyRef,
		},
		Stages: append([]Stage{source, build}, cloneStages(in.ExtraStages)...),
		Notifications: Subscription{
			Name:       "Notify-" + id.ResourceName(),
			DetailType: DetailFull,
			Events:     dedupeEvents(events),
			Targets:    append([]Target(nil), in.Targets...),
		},
	}
	if err := Validate(p); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}

// cloneStages copies stages so later changes by the caller do not reach the
// pipeline.
func cloneStages(stages []Stage) []Stage {
	out := make([]Stage, 0, len(stages))
	for _, s := range stages {
		actions := make([]Action, 0, len(s.Actions))
		for _, a := range s.Actions {
			a.Inputs = append([]string(nil), a.Inputs...)
			a.Outputs = append([]string(nil), a.Outputs...)
			if a.Configuration != nil {
				cfg := make(map[string]string, len(a.Configuration))
				for k, v := range a.Configuration {
					cfg[k] = v
				}
				a.Configuration = cfg
			}
			actions = append(actions, a)
		}
		out = append(out, Stage{Name: s.Name, Actions: actions})
	}
	return out
}

// Validate checks stage names and the artifact graph: each artifact has
// one producer, and every input was produced by an earlier stage.
func Validate(p Pipeline) error {
	if len(p.Stages) == 0 {
		return ErrNoStages
	}

	stages := map[string]struct{}{}
	producers := map[string]string{}
	for _, stage := range p.Stages {
		if stage.Name == "" {
			return ErrUnnamedStage
		}
		if _, ok := stages[stage.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateStage, stage.Name)
		}
		stages[stage.Name] = struct{}{}
		if len(stage.Actions) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyStage, stage.Name)
		}

		// Inputs must come from earlier stages, so outputs of this stage
		// are recorded only after all of its inputs are checked.
		for _, a := range stage.Actions {
			for _, in := range a.Inputs {
				if _, ok := producers[in]; !ok {
					return fmt.Errorf("%w: %s/%s reads %q", ErrDanglingInput, stage.Name, a.Name, in)
				}
			}
		}
		for _, a := range stage.Actions {
			for _, out := range a.Outputs {
				if prev, ok := producers[out]; ok {
					return fmt.Errorf("%w: %q written by %s and %s", ErrDuplicateOutput, out, prev, a.Name)
				}
				producers[out] = a.Name
			}
		}
	}
	return nil
}

// Without returns a copy of p with the named stage removed.
func (p Pipeline) Without(stage string) Pipeline {
	out := p
	out.Stages = nil
	for _, s := range p.Stages {
		if s.Name != stage {
			out.Stages = append(out.Stages, s)
		}
	}
	return out
}

// Stage returns the stage called name.
func (p Pipeline) Stage(name string) (Stage, bool) {
	for _, s := range p.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// StageNames lists stage names in execution order.
func (p Pipeline) StageNames() []string {
	out := make([]string, 0, len(p.Stages))
	for _, s := range p.Stages {
		out = append(out, s.Name)
	}
	return out
}
