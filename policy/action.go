// Package policy models IAM policy documents as plain data.
//
// Actions, condition operators and condition keys are closed sets: every
// value the pipeline emits is declared here, and Document.Validate rejects
// anything else before a template is produced.
package policy

import "fmt"

// Effect is the outcome of a matching statement.
type Effect string

const (
	Allow Effect = "Allow"
	Deny  Effect = "Deny"
)

// Action is an IAM action name.
type Action string

const (
	STSAssumeRole Action = "sts:AssumeRole"

	S3All                 Action = "s3:*"
	S3GetAny              Action = "s3:Get*"
	S3PutAny              Action = "s3:Put*"
	S3ListBucket          Action = "s3:ListBucket"
	S3PutObject           Action = "s3:PutObject"
	S3GetObject           Action = "s3:GetObject"
	S3GetObjectVersion    Action = "s3:GetObjectVersion"
	S3GetBucketVersioning Action = "s3:GetBucketVersioning"

	CodeBuildBatchGetBuilds Action = "codebuild:BatchGetBuilds"
	CodeBuildStartBuild     Action = "codebuild:StartBuild"

	LogsCreateLogGroup  Action = "logs:CreateLogGroup"
	LogsCreateLogStream Action = "logs:CreateLogStream"
	LogsPutLogEvents    Action = "logs:PutLogEvents"

	KMSAll                Action = "kms:*"
	KMSEncrypt            Action = "kms:Encrypt"
	KMSDecrypt            Action = "kms:Decrypt"
	KMSReEncryptAny       Action = "kms:ReEncrypt*"
	KMSGenerateDataKeyAny Action = "kms:GenerateDataKey*"
	KMSDescribeKey        Action = "kms:DescribeKey"
	KMSCreateGrant        Action = "kms:CreateGrant"
	KMSListGrants         Action = "kms:ListGrants"
	KMSRevokeGrant        Action = "kms:RevokeGrant"

	SNSPublish Action = "sns:Publish"
)

var knownActions = map[Action]struct{}{
	STSAssumeRole:           {},
	S3All:                   {},
	S3GetAny:                {},
	S3PutAny:                {},
	S3ListBucket:            {},
	S3PutObject:             {},
	S3GetObject:             {},
	S3GetObjectVersion:      {},
	S3GetBucketVersioning:   {},
	CodeBuildBatchGetBuilds: {},
	CodeBuildStartBuild:     {},
	LogsCreateLogGroup:      {},
	LogsCreateLogStream:     {},
	LogsPutLogEvents:        {},
	KMSAll:                  {},
	KMSEncrypt:              {},
	KMSDecrypt:              {},
	KMSReEncryptAny:         {},
	KMSGenerateDataKeyAny:   {},
	KMSDescribeKey:          {},
	KMSCreateGrant:          {},
	KMSListGrants:           {},
	KMSRevokeGrant:          {},
	SNSPublish:              {},
}

// Valid reports whether a is one of the declared actions.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// ParseAction converts s into a declared Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}
