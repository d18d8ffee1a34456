package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentJSON(t *testing.T) {
	doc := NewDocument(
		Statement{
			Effect:     Deny,
			Principals: []Principal{Any()},
			Actions:    []Action{S3PutObject},
			Resources:  []string{"arn:aws:s3:::b/*"},
			Conditions: []Condition{NotEquals(S3ServerSideEncryption, "aws:kms")},
		},
		Statement{
			Sid:        "Grants",
			Effect:     Allow,
			Principals: []Principal{ARN("arn:aws:iam::111111111111:root"), ARN("arn:aws:iam::222222222222:root")},
			Actions:    []Action{KMSCreateGrant, KMSCreateGrant},
			Resources:  []string{"*"},
			Conditions: []Condition{IsTrue(KMSGrantIsForAWSResource)},
		},
	)

	out, err := doc.JSON()
	require.NoError(t, err)

	want := `{"Statement":[` +
		`{"Action":"s3:PutObject","Condition":{"StringNotEquals":{"s3:x-amz-server-side-encryption":"aws:kms"}},"Effect":"Deny","Principal":{"AWS":"*"},"Resource":"arn:aws:s3:::b/*"},` +
		`{"Action":"kms:CreateGrant","Condition":{"Bool":{"kms:GrantIsForAWSResource":true}},"Effect":"Allow","Principal":{"AWS":["arn:aws:iam::111111111111:root","arn:aws:iam::222222222222:root"]},"Resource":"*","Sid":"Grants"}` +
		`],"Version":"2012-10-17"}`
	assert.JSONEq(t, want, string(out))
	assert.Equal(t, want, string(out))
}

func TestDocumentJSONIsStable(t *testing.T) {
	build := func() Document {
		return NewDocument(Statement{
			Effect:     Allow,
			Principals: []Principal{Service("codebuild.amazonaws.com")},
			Actions:    []Action{STSAssumeRole},
		})
	}
	a, err := build().JSON()
	require.NoError(t, err)
	b, err := build().JSON()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDocumentValidate(t *testing.T) {
	tests := []struct {
		name string
		stmt Statement
		err  error
	}{
		{
			name: "ok",
			stmt: Statement{Effect: Allow, Actions: []Action{S3GetObject}},
		},
		{
			name: "unknown action",
			stmt: Statement{Effect: Allow, Actions: []Action{"s3:GetObjekt"}},
			err:  ErrUnknownAction,
		},
		{
			name: "no actions",
			stmt: Statement{Effect: Allow},
			err:  ErrEmptyStatement,
		},
		{
			name: "bad effect",
			stmt: Statement{Effect: "Maybe", Actions: []Action{S3GetObject}},
			err:  ErrInvalidEffect,
		},
		{
			name: "unknown condition key",
			stmt: Statement{Effect: Allow, Actions: []Action{S3GetObject}, Conditions: []Condition{{Operator: Bool, Key: "aws:SecureTransprot", Value: "true"}}},
			err:  ErrInvalidCondition,
		},
		{
			name: "non boolean bool value",
			stmt: Statement{Effect: Allow, Actions: []Action{S3GetObject}, Conditions: []Condition{{Operator: Bool, Key: AWSSecureTransport, Value: "yes"}}},
			err:  ErrInvalidCondition,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDocument(tt.stmt).Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDocumentIsImmutable(t *testing.T) {
	stmt := Statement{Effect: Allow, Actions: []Action{S3GetObject}, Resources: []string{"a"}}
	doc := NewDocument(stmt)
	stmt.Resources[0] = "b"

	got := doc.Statements()
	assert.Equal(t, []string{"a"}, got[0].Resources)

	got[0].Resources[0] = "c"
	assert.Equal(t, []string{"a"}, doc.Statements()[0].Resources)
}

func TestGranting(t *testing.T) {
	doc := NewDocument(
		Statement{Effect: Allow, Actions: []Action{KMSDecrypt, KMSEncrypt}},
		Statement{Effect: Deny, Actions: []Action{KMSDecrypt}},
		Statement{Effect: Allow, Actions: []Action{KMSCreateGrant}},
	)
	assert.Len(t, doc.Granting(Allow, KMSDecrypt), 1)
	assert.Len(t, doc.Granting(Deny, KMSDecrypt), 1)
	assert.Empty(t, doc.Granting(Deny, KMSCreateGrant))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("kms:Decrypt")
	require.NoError(t, err)
	assert.Equal(t, KMSDecrypt, a)

	_, err = ParseAction("kms:Decrpyt")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
