// Package artifacts builds the resource policies of the artifact store: the
// KMS key that encrypts pipeline artifacts and the S3 bucket holding them.
package artifacts

import (
	"github.com/30Piraten/pipeline-iac/identity"
	"github.com/30Piraten/pipeline-iac/policy"
)

// KeyRef is the logical identifier of the artifact key.
const KeyRef = "ArtifactKey"

// EncryptionKey is the customer managed key shared by the pipeline, the
// build project and the source account.
type EncryptionKey struct {
	ID          string
	Alias       string
	Description string
	Rotation    bool
	Policy      policy.Document
}

// BuildArtifactKeyPolicy returns the key with its three-statement policy:
// administration for the local root, key usage for the pipeline role,
// build role and source root, and grant management for the same three
// principals restricted to grants for AWS resources.
func BuildArtifactKeyPolicy(id identity.Identity, pipelineRoleARN, buildRoleARN string) EncryptionKey {
	keys := policy.KeysARN(id.Partition(), id.Region(), id.AccountID())
	users := []policy.Principal{
		policy.ARN(pipelineRoleARN),
		policy.ARN(buildRoleARN),
		policy.ARN(id.SourceAccountRoot()),
	}

	admin := policy.Statement{
		Effect:     policy.Allow,
		Principals: []policy.Principal{policy.ARN(id.AccountRoot())},
		Actions:    []policy.Action{policy.KMSAll},
		Resources:  []string{keys},
	}
	usage := policy.Statement{
		Effect:     policy.Allow,
		Principals: users,
		Actions: []policy.Action{
			policy.KMSEncrypt,
			policy.KMSDecrypt,
			policy.KMSReEncryptAny,
			policy.KMSGenerateDataKeyAny,
			policy.KMSDescribeKey,
		},
		Resources: []string{keys},
	}
	grants := policy.Statement{
		Effect:     policy.Allow,
		Principals: users,
		Actions:    []policy.Action{policy.KMSCreateGrant, policy.KMSListGrants, policy.KMSRevokeGrant},
		Resources:  []string{keys},
		Conditions: []policy.Condition{policy.IsTrue(policy.KMSGrantIsForAWSResource)},
	}

	return EncryptionKey{
		ID:          KeyRef,
		Alias:       "alias/" + id.ResourceName() + "-artifacts",
		Description: "Encrypts pipeline artifacts for " + id.ResourceName(),
		Rotation:    true,
		Policy:      policy.NewDocument(admin, usage, grants),
	}
}
