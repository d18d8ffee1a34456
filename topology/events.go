package topology

import (
	"errors"
	"fmt"
	"strings"
)

// Event is a CodePipeline notification event type ID.
type Event string

const (
	ActionExecutionSucceeded Event = "codepipeline-pipeline-action-execution-succeeded"
	ActionExecutionFailed    Event = "codepipeline-pipeline-action-execution-failed"
	ActionExecutionCanceled  Event = "codepipeline-pipeline-action-execution-canceled"
	ActionExecutionStarted   Event = "codepipeline-pipeline-action-execution-started"

	StageExecutionStarted   Event = "codepipeline-pipeline-stage-execution-started"
	StageExecutionSucceeded Event = "codepipeline-pipeline-stage-execution-succeeded"
	StageExecutionResumed   Event = "codepipeline-pipeline-stage-execution-resumed"
	StageExecutionCanceled  Event = "codepipeline-pipeline-stage-execution-canceled"
	StageExecutionFailed    Event = "codepipeline-pipeline-stage-execution-failed"

	PipelineExecutionFailed     Event = "codepipeline-pipeline-pipeline-execution-failed"
	PipelineExecutionCanceled   Event = "codepipeline-pipeline-pipeline-execution-canceled"
	PipelineExecutionStarted    Event = "codepipeline-pipeline-pipeline-execution-started"
	PipelineExecutionResumed    Event = "codepipeline-pipeline-pipeline-execution-resumed"
	PipelineExecutionSucceeded  Event = "codepipeline-pipeline-pipeline-execution-succeeded"
	PipelineExecutionSuperseded Event = "codepipeline-pipeline-pipeline-execution-superseded"

	ManualApprovalFailed    Event = "codepipeline-pipeline-manual-approval-failed"
	ManualApprovalNeeded    Event = "codepipeline-pipeline-manual-approval-needed"
	ManualApprovalSucceeded Event = "codepipeline-pipeline-manual-approval-succeeded"
)

var ErrUnknownEvent = errors.New("unknown notification event")

// eventNames maps operator-facing names to event IDs.
var eventNames = map[string]Event{
	"ACTION_EXECUTION_SUCCEEDED":    ActionExecutionSucceeded,
	"ACTION_EXECUTION_FAILED":       ActionExecutionFailed,
	"ACTION_EXECUTION_CANCELED":     ActionExecutionCanceled,
	"ACTION_EXECUTION_STARTED":      ActionExecutionStarted,
	"STAGE_EXECUTION_STARTED":       StageExecutionStarted,
	"STAGE_EXECUTION_SUCCEEDED":     StageExecutionSucceeded,
	"STAGE_EXECUTION_RESUMED":       StageExecutionResumed,
	"STAGE_EXECUTION_CANCELED":      StageExecutionCanceled,
	"STAGE_EXECUTION_FAILED":        StageExecutionFailed,
	"PIPELINE_EXECUTION_FAILED":     PipelineExecutionFailed,
	"PIPELINE_EXECUTION_CANCELED":   PipelineExecutionCanceled,
	"PIPELINE_EXECUTION_STARTED":    PipelineExecutionStarted,
	"PIPELINE_EXECUTION_RESUMED":    PipelineExecutionResumed,
	"PIPELINE_EXECUTION_SUCCEEDED":  PipelineExecutionSucceeded,
	"PIPELINE_EXECUTION_SUPERSEDED": PipelineExecutionSuperseded,
	"MANUAL_APPROVAL_FAILED":        ManualApprovalFailed,
	"MANUAL_APPROVAL_NEEDED":        ManualApprovalNeeded,
	"MANUAL_APPROVAL_SUCCEEDED":     ManualApprovalSucceeded,
}

// DefaultEvents is the event list the Slack channel subscribes to unless
// NOTIFY_EVENTS overrides it.
func DefaultEvents() []Event {
	return []Event{
		ActionExecutionFailed,
		ActionExecutionSucceeded,
		ManualApprovalFailed,
		ManualApprovalSucceeded,
		PipelineExecutionFailed,
		PipelineExecutionSucceeded,
		StageExecutionSucceeded,
	}
}

// ParseEvents accepts either the upper-case names or the event IDs.
// Duplicates are dropped, first occurrence wins.
func ParseEvents(names []string) ([]Event, error) {
	out := make([]Event, 0, len(names))
	for _, raw := range names {
		n := strings.TrimSpace(raw)
		if n == "" {
			continue
		}
		e, ok := eventNames[strings.ToUpper(n)]
		if !ok {
			e = Event(n)
			if !e.Valid() {
				return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, raw)
			}
		}
		out = append(out, e)
	}
	return dedupeEvents(out), nil
}

// Valid reports whether e is a declared event ID.
func (e Event) Valid() bool {
	for _, known := range eventNames {
		if known == e {
			return true
		}
	}
	return false
}

func dedupeEvents(events []Event) []Event {
	seen := make(map[Event]struct{}, len(events))
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// TargetType is a CodeStar Notifications target type.
type TargetType string

const (
	TargetSlack TargetType = "AWSChatbotSlack"
	TargetSNS   TargetType = "SNS"
)

// DetailFull includes the full event payload in notifications.
const DetailFull = "FULL"

// Target is a notification destination referenced by logical identifier.
type Target struct {
	Type TargetType
	Ref  string
}

// Subscription forwards pipeline events to its targets.
type Subscription struct {
	Name       string
	DetailType string
	Events     []Event
	Targets    []Target
}

// EventIDs returns the events as strings, in order.
func (s Subscription) EventIDs() []string {
	out := make([]string, 0, len(s.Events))
	for _, e := range s.Events {
		out = append(out, string(e))
	}
	return out
}
