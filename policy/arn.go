package policy

import (
	"errors"
	"fmt"
	"strings"
)

// LogGroupPrefix is the log group namespace CodeBuild writes to.
const LogGroupPrefix = "/aws/codebuild/"

var ErrMalformedARN = errors.New("malformed ARN")

// PartitionForRegion maps a region name to its AWS partition.
func PartitionForRegion(region string) string {
	switch {
	case strings.HasPrefix(region, "cn-"):
		return "aws-cn"
	case strings.HasPrefix(region, "us-gov-"):
		return "aws-us-gov"
	default:
		return "aws"
	}
}

func AccountRoot(partition, account string) string {
	return fmt.Sprintf("arn:%s:iam::%s:root", partition, account)
}

func RoleARN(partition, account, name string) string {
	return fmt.Sprintf("arn:%s:iam::%s:role/%s", partition, account, name)
}

func BucketARN(partition, bucket string) string {
	return fmt.Sprintf("arn:%s:s3:::%s", partition, bucket)
}

func BucketObjectsARN(partition, bucket string) string {
	return BucketARN(partition, bucket) + "/*"
}

func CodeBuildProjectsARN(partition, region, account string) string {
	return fmt.Sprintf("arn:%s:codebuild:%s:%s:project/*", partition, region, account)
}

func CodeBuildLogGroupsARN(partition, region, account string) string {
	return fmt.Sprintf("arn:%s:logs:%s:%s:log-group:%s*", partition, region, account, LogGroupPrefix)
}

func KeysARN(partition, region, account string) string {
	return fmt.Sprintf("arn:%s:kms:%s:%s:key/*", partition, region, account)
}

func RepositoryARN(partition, region, account, name string) string {
	return fmt.Sprintf("arn:%s:codecommit:%s:%s:%s", partition, region, account, name)
}

func PipelineARN(partition, region, account, name string) string {
	return fmt.Sprintf("arn:%s:codepipeline:%s:%s:%s", partition, region, account, name)
}

func TopicARN(partition, region, account, name string) string {
	return fmt.Sprintf("arn:%s:sns:%s:%s:%s", partition, region, account, name)
}

// RoleRef is the parsed form of an IAM role ARN.
type RoleRef struct {
	Partition string
	Account   string
	Name      string
}

// ParseRoleARN splits arn:<partition>:iam::<account>:role/<path/name>.
func ParseRoleARN(arn string) (RoleRef, error) {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" || parts[2] != "iam" || parts[3] != "" {
		return RoleRef{}, fmt.Errorf("%w: %q", ErrMalformedARN, arn)
	}
	if parts[1] == "" || parts[4] == "" {
		return RoleRef{}, fmt.Errorf("%w: %q", ErrMalformedARN, arn)
	}
	name, ok := strings.CutPrefix(parts[5], "role/")
	if !ok || name == "" {
		return RoleRef{}, fmt.Errorf("%w: %q is not a role", ErrMalformedARN, arn)
	}
	return RoleRef{Partition: parts[1], Account: parts[4], Name: name}, nil
}
