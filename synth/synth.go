// Package synth runs the single synthesis pass: identity, roles, key,
// bucket, then pipeline. Later steps only see identifiers produced by
// earlier ones, and any failure aborts the pass without a partial result.
package synth

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/30Piraten/pipeline-iac/artifacts"
	"github.com/30Piraten/pipeline-iac/identity"
	"github.com/30Piraten/pipeline-iac/policy"
	"github.com/30Piraten/pipeline-iac/roles"
	"github.com/30Piraten/pipeline-iac/topology"
)

// DefaultBuildImage is the CodeBuild image the build project runs.
const DefaultBuildImage = "aws/codebuild/amazonlinux2-x86_64-standard:4.0"

// Logical identifiers of the synthesized resources.
const (
	RefPipelineRole      = "PipelineRole"
	RefBuildRole         = "BuildRole"
	RefArtifactKey       = artifacts.KeyRef
	RefArtifactBucket    = artifacts.BucketRef
	RefBuildProject      = "BuildProject"
	RefPipeline          = "Pipeline"
	RefSlackChannel      = "SlackChannel"
	RefNotificationTopic = "NotificationTopic"
)

// BuildProject is the CodeBuild project run by the Build stage.
type BuildProject struct {
	Name             string
	Image            string
	Privileged       bool
	RoleARN          string
	EncryptionKeyRef string
}

// SlackChannel is the chat destination for pipeline notifications.
type SlackChannel struct {
	Name        string
	WorkspaceID string
	ChannelID   string
}

// NotificationTopic is an optional SNS topic that also receives pipeline
// notifications and build failure alarms.
type NotificationTopic struct {
	Name   string
	ARN    string
	Policy policy.Document
}

// Services allowed to publish to the notification topic.
const (
	NotificationsService = "codestar-notifications.amazonaws.com"
	AlarmsService        = "cloudwatch.amazonaws.com"
)

var topicNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

func newNotificationTopic(id identity.Identity, name string) (*NotificationTopic, error) {
	if !topicNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: topic name %q", identity.ErrInvalidParameter, name)
	}
	arn := policy.TopicARN(id.Partition(), id.Region(), id.AccountID(), name)
	return &NotificationTopic{
		Name: name,
		ARN:  arn,
		Policy: policy.NewDocument(policy.Statement{
			Sid:    "AllowServicePublish",
			Effect: policy.Allow,
			Principals: []policy.Principal{
				policy.Service(NotificationsService),
				policy.Service(AlarmsService),
			},
			Actions:   []policy.Action{policy.SNSPublish},
			Resources: []string{arn},
		}),
	}, nil
}

// Definition is the complete output of a synthesis pass.
type Definition struct {
	Identity     identity.Identity
	PipelineRole roles.ServiceRole
	BuildRole    roles.ServiceRole
	Key          artifacts.EncryptionKey
	Bucket       artifacts.ArtifactBucket
	Project      BuildProject
	Pipeline     topology.Pipeline
	Slack        SlackChannel
	Topic        *NotificationTopic
	Refs         *Refs
}

type options struct {
	buildImage  string
	events      []topology.Event
	extraStages []topology.Stage
	topicName   string
	logger      *slog.Logger
}

// Option configures Synthesize.
type Option func(*options)

// WithBuildImage overrides DefaultBuildImage.
func WithBuildImage(image string) Option {
	return func(o *options) {
		if image != "" {
			o.buildImage = image
		}
	}
}

// WithEvents replaces the default notification events.
func WithEvents(events ...topology.Event) Option {
	return func(o *options) {
		if len(events) > 0 {
			o.events = events
		}
	}
}

// WithExtraStages appends stages after Build.
func WithExtraStages(stages ...topology.Stage) Option {
	return func(o *options) {
		o.extraStages = append(o.extraStages, stages...)
	}
}

// WithNotificationTopic adds an SNS topic target named name.
func WithNotificationTopic(name string) Option {
	return func(o *options) {
		o.topicName = name
	}
}

// WithLogger sets the logger for synthesis steps.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Synthesize builds the Definition for id.
func Synthesize(id identity.Identity, opts ...Option) (*Definition, error) {
	o := options{
		buildImage: DefaultBuildImage,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.With("resource", id.ResourceName())

	refs := newRefs()

	// Role policies embed the bucket name, so derive it before the roles.
	bucketName, err := artifacts.ArtifactBucketName(id.ResourceName())
	if err != nil {
		return nil, fmt.Errorf("artifact bucket: %w", err)
	}

	pipelineRole, err := roles.BuildPipelineRole(id, bucketName)
	if err != nil {
		return nil, fmt.Errorf("pipeline role: %w", err)
	}
	buildRole, err := roles.BuildBuildRole(id, bucketName)
	if err != nil {
		return nil, fmt.Errorf("build role: %w", err)
	}
	refs.add(RefPipelineRole)
	refs.add(RefBuildRole)
	log.Debug("roles built", "pipelineRole", pipelineRole.Name, "buildRole", buildRole.Name)

	key := artifacts.BuildArtifactKeyPolicy(id, pipelineRole.ARN, buildRole.ARN)
	refs.add(RefArtifactKey, RefPipelineRole, RefBuildRole)
	log.Debug("artifact key built", "alias", key.Alias)

	bucket, err := artifacts.BuildArtifactBucket(id, key.ID)
	if err != nil {
		return nil, fmt.Errorf("artifact bucket: %w", err)
	}
	if err := artifacts.CheckBucketPolicy(bucket.Policy); err != nil {
		return nil, fmt.Errorf("artifact bucket: %w", err)
	}
	refs.add(RefArtifactBucket, RefArtifactKey)
	log.Debug("artifact bucket built", "bucket", bucket.Name)

	project := BuildProject{
		Name:             topology.BuildProjectName(id.ResourceName()),
		Image:            o.buildImage,
		Privileged:       true,
		RoleARN:          buildRole.ARN,
		EncryptionKeyRef: key.ID,
	}
	refs.add(RefBuildProject, RefBuildRole, RefArtifactKey)

	slack := SlackChannel{
		Name:        "slackChannel-" + id.ResourceName(),
		WorkspaceID: id.SlackWorkspaceID(),
		ChannelID:   id.SlackChannelID(),
	}
	refs.add(RefSlackChannel)
	targets := []topology.Target{{Type: topology.TargetSlack, Ref: RefSlackChannel}}

	var topic *NotificationTopic
	if o.topicName != "" {
		topic, err = newNotificationTopic(id, o.topicName)
		if err != nil {
			return nil, fmt.Errorf("notification topic: %w", err)
		}
		refs.add(RefNotificationTopic)
		targets = append(targets, topology.Target{Type: topology.TargetSNS, Ref: RefNotificationTopic})
	}

	pipeline, err := topology.Build(topology.BuildInput{
		Identity:         id,
		RoleARN:          pipelineRole.ARN,
		BucketName:       bucket.Name,
		KeyRef:           key.ID,
		BuildProjectName: project.Name,
		Events:           o.events,
		Targets:          targets,
		ExtraStages:      o.extraStages,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	pipelineDeps := []string{RefPipelineRole, RefArtifactBucket, RefArtifactKey, RefBuildProject}
	for _, t := range targets {
		pipelineDeps = append(pipelineDeps, t.Ref)
	}
	refs.add(RefPipeline, pipelineDeps...)
	log.Debug("pipeline built", "pipeline", pipeline.Name, "stages", pipeline.StageNames())

	def := &Definition{
		Identity:     id,
		PipelineRole: pipelineRole,
		BuildRole:    buildRole,
		Key:          key,
		Bucket:       bucket,
		Project:      project,
		Pipeline:     pipeline,
		Slack:        slack,
		Topic:        topic,
		Refs:         refs,
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	log.Info("synthesized pipeline definition", "pipeline", pipeline.Name, "bucket", bucket.Name)
	return def, nil
}

func (d *Definition) validate() error {
	type namedDoc struct {
		name string
		doc  policy.Document
	}
	docs := []namedDoc{
		{"pipeline role policy", d.PipelineRole.Policy},
		{"pipeline role trust policy", d.PipelineRole.TrustPolicy()},
		{"build role policy", d.BuildRole.Policy},
		{"build role trust policy", d.BuildRole.TrustPolicy()},
		{"key policy", d.Key.Policy},
		{"bucket policy", d.Bucket.Policy},
	}
	if d.Topic != nil {
		docs = append(docs, namedDoc{"topic policy", d.Topic.Policy})
	}
	for _, x := range docs {
		if err := x.doc.Validate(); err != nil {
			return fmt.Errorf("%s: %w", x.name, err)
		}
	}
	return d.Refs.check()
}
