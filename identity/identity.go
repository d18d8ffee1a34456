// Package identity validates the raw parameters supplied by the deployment
// tooling and turns them into an immutable Identity. It is the only place
// the branch, account IDs and foreign role ARN are checked.
package identity

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/30Piraten/pipeline-iac/policy"
)

// DefaultResourceName is the CodeCommit repository name in the source
// account; every derived resource name is built from it.
const DefaultResourceName = "codepipeline-iac"

var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrInvalidBranch    = errors.New("invalid branch")
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNameTooLong is returned by every builder whose derived resource
	// name exceeds the service limit. Names are never truncated.
	ErrNameTooLong = errors.New("name too long")
)

var (
	accountPattern      = regexp.MustCompile(`^[0-9]{12}$`)
	regionPattern       = regexp.MustCompile(`^[a-z]{2}(-gov)?-[a-z]+-[0-9]$`)
	resourceNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*$`)
)

// Params are the unvalidated inputs.
type Params struct {
	AccountID        string
	Region           string
	SourceAccountID  string
	Branch           string
	ForeignRoleARN   string
	SlackWorkspaceID string
	SlackChannelID   string
	ResourceName     string
}

// Identity is the validated form of Params.
type Identity struct {
	accountID        string
	region           string
	partition        string
	sourceAccountID  string
	branch           Branch
	foreignRoleARN   string
	slackWorkspaceID string
	slackChannelID   string
	resourceName     string
}

func (i Identity) AccountID() string        { return i.accountID }
func (i Identity) Region() string           { return i.region }
func (i Identity) Partition() string        { return i.partition }
func (i Identity) SourceAccountID() string  { return i.sourceAccountID }
func (i Identity) Branch() Branch           { return i.branch }
func (i Identity) ForeignRoleARN() string   { return i.foreignRoleARN }
func (i Identity) SlackWorkspaceID() string { return i.slackWorkspaceID }
func (i Identity) SlackChannelID() string   { return i.slackChannelID }
func (i Identity) ResourceName() string     { return i.resourceName }

// AccountRoot is the root principal ARN of the pipeline account.
func (i Identity) AccountRoot() string {
	return policy.AccountRoot(i.partition, i.accountID)
}

// SourceAccountRoot is the root principal ARN of the source account.
func (i Identity) SourceAccountRoot() string {
	return policy.AccountRoot(i.partition, i.sourceAccountID)
}

// Resolve validates p. Required fields are checked first, in declaration
// order, then the branch, then the format of each value.
func Resolve(p Params) (Identity, error) {
	if p.Branch == "" {
		p.Branch = string(BranchMain)
	}
	if p.ResourceName == "" {
		p.ResourceName = DefaultResourceName
	}

	required := []struct {
		name  string
		value string
	}{
		{"accountId", p.AccountID},
		{"region", p.Region},
		{"sourceAccountId", p.SourceAccountID},
		{"foreignRoleArn", p.ForeignRoleARN},
		{"slackWorkspaceId", p.SlackWorkspaceID},
		{"slackChannelId", p.SlackChannelID},
	}
	for _, r := range required {
		if r.value == "" {
			return Identity{}, fmt.Errorf("%w: %s", ErrMissingParameter, r.name)
		}
	}

	branch, err := ParseBranch(p.Branch)
	if err != nil {
		return Identity{}, err
	}

	if !accountPattern.MatchString(p.AccountID) {
		return Identity{}, fmt.Errorf("%w: accountId %q is not a 12 digit account ID", ErrInvalidParameter, p.AccountID)
	}
	if !accountPattern.MatchString(p.SourceAccountID) {
		return Identity{}, fmt.Errorf("%w: sourceAccountId %q is not a 12 digit account ID", ErrInvalidParameter, p.SourceAccountID)
	}
	if !regionPattern.MatchString(p.Region) {
		return Identity{}, fmt.Errorf("%w: region %q", ErrInvalidParameter, p.Region)
	}
	if !resourceNamePattern.MatchString(p.ResourceName) {
		return Identity{}, fmt.Errorf("%w: resourceName %q must be lowercase letters, digits, dots or hyphens", ErrInvalidParameter, p.ResourceName)
	}

	partition := policy.PartitionForRegion(p.Region)
	role, err := policy.ParseRoleARN(p.ForeignRoleARN)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: foreignRoleArn: %v", ErrInvalidParameter, err)
	}
	if role.Partition != partition {
		return Identity{}, fmt.Errorf("%w: foreignRoleArn partition %q does not match region partition %q", ErrInvalidParameter, role.Partition, partition)
	}

	return Identity{
		accountID:        p.AccountID,
		region:           p.Region,
		partition:        partition,
		sourceAccountID:  p.SourceAccountID,
		branch:           branch,
		foreignRoleARN:   p.ForeignRoleARN,
		slackWorkspaceID: p.SlackWorkspaceID,
		slackChannelID:   p.SlackChannelID,
		resourceName:     p.ResourceName,
	}, nil
}
