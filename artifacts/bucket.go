package artifacts

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/30Piraten/pipeline-iac/identity"
	"github.com/30Piraten/pipeline-iac/policy"
)

const (
	// BucketRef is the logical identifier of the artifact bucket.
	BucketRef = "ArtifactBucket"

	// MaxBucketNameLength is the S3 limit for bucket names.
	MaxBucketNameLength = 63

	// denyInsecureSid matches the Sid CDK uses for its own SSL guard.
	denyInsecureSid = "DenyInsecureConnections"
)

var (
	ErrNameTooLong       = identity.ErrNameTooLong
	ErrInvalidBucketName = errors.New("invalid bucket name")
	ErrMissingGuard      = errors.New("bucket policy is missing a deny guard")
)

var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*[a-z0-9]$`)

// ArtifactBucket is the S3 bucket the pipeline stores artifacts in. The
// key is referenced by identifier, the bucket does not own it.
type ArtifactBucket struct {
	Name             string
	EncryptionKeyRef string
	Versioned        bool
	BlockPublic      bool
	Policy           policy.Document
}

// ArtifactBucketName derives <resourceName>s3bucket.
func ArtifactBucketName(resourceName string) (string, error) {
	name := resourceName + "s3bucket"
	if len(name) > MaxBucketNameLength {
		return "", fmt.Errorf("%w: bucket %q is %d characters, limit %d", ErrNameTooLong, name, len(name), MaxBucketNameLength)
	}
	if !bucketNamePattern.MatchString(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidBucketName, name)
	}
	return name, nil
}

// BuildArtifactBucket builds the bucket and its policy for id.
func BuildArtifactBucket(id identity.Identity, keyRef string) (ArtifactBucket, error) {
	name, err := ArtifactBucketName(id.ResourceName())
	if err != nil {
		return ArtifactBucket{}, err
	}
	return ArtifactBucket{
		Name:             name,
		EncryptionKeyRef: keyRef,
		Versioned:        true,
		BlockPublic:      true,
		Policy:           BuildArtifactBucketPolicy(id.Partition(), name, id.SourceAccountRoot(), id.AccountRoot()),
	}, nil
}

// BuildArtifactBucketPolicy returns, in order: deny unencrypted uploads,
// deny requests without TLS, allow the source account, allow the local
// account.
func BuildArtifactBucketPolicy(partition, bucketName, sourceAccountRoot, localAccountRoot string) policy.Document {
	bucketARN := policy.BucketARN(partition, bucketName)
	objectsARN := policy.BucketObjectsARN(partition, bucketName)
	access := []policy.Action{policy.S3GetAny, policy.S3PutAny, policy.S3ListBucket}

	return policy.NewDocument(
		policy.Statement{
			Effect:     policy.Deny,
			Principals: []policy.Principal{policy.Any()},
			Actions:    []policy.Action{policy.S3PutObject},
			Resources:  []string{objectsARN},
			Conditions: []policy.Condition{policy.NotEquals(policy.S3ServerSideEncryption, "aws:kms")},
		},
		policy.Statement{
			Sid:        denyInsecureSid,
			Effect:     policy.Deny,
			Principals: []policy.Principal{policy.Any()},
			Actions:    []policy.Action{policy.S3All},
			Resources:  []string{objectsARN, bucketARN},
			Conditions: []policy.Condition{policy.IsFalse(policy.AWSSecureTransport)},
		},
		policy.Statement{
			Effect:     policy.Allow,
			Principals: []policy.Principal{policy.ARN(sourceAccountRoot)},
			Actions:    access,
			Resources:  []string{objectsARN, bucketARN},
		},
		policy.Statement{
			Effect:     policy.Allow,
			Principals: []policy.Principal{policy.ARN(localAccountRoot)},
			Actions:    access,
			Resources:  []string{objectsARN, bucketARN},
		},
	)
}

// CheckBucketPolicy reports ErrMissingGuard unless doc denies both
// non-KMS uploads and insecure transport to every principal.
func CheckBucketPolicy(doc policy.Document) error {
	var encryption, transport bool
	for _, s := range doc.Statements() {
		if s.Effect != policy.Deny || !appliesToEveryone(s) {
			continue
		}
		if (s.HasAction(policy.S3PutObject) || s.HasAction(policy.S3All)) &&
			s.HasCondition(policy.NotEquals(policy.S3ServerSideEncryption, "aws:kms")) {
			encryption = true
		}
		if s.HasAction(policy.S3All) && s.HasCondition(policy.IsFalse(policy.AWSSecureTransport)) {
			transport = true
		}
	}
	switch {
	case !encryption:
		return fmt.Errorf("%w: no deny on %s != aws:kms", ErrMissingGuard, policy.S3ServerSideEncryption)
	case !transport:
		return fmt.Errorf("%w: no deny on %s = false", ErrMissingGuard, policy.AWSSecureTransport)
	}
	return nil
}

func appliesToEveryone(s policy.Statement) bool {
	for _, p := range s.Principals {
		if p.IsAny() {
			return true
		}
	}
	return false
}
