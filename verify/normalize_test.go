package verify

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquivalent(t *testing.T) {
	base := `{"Version":"2012-10-17","Statement":[
		{"Effect":"Allow","Principal":{"AWS":"arn:aws:iam::111111111111:root"},"Action":"s3:GetObject","Resource":"arn:aws:s3:::b/*"},
		{"Effect":"Deny","Principal":"*","Action":"s3:*","Resource":["arn:aws:s3:::b","arn:aws:s3:::b/*"],"Condition":{"Bool":{"aws:SecureTransport":false}}}
	]}`

	tests := []struct {
		name  string
		other string
		same  bool
	}{
		{
			name:  "lists and strings",
			other: `{"Version":"2012-10-17","Statement":[
				{"Effect":"Allow","Principal":{"AWS":["arn:aws:iam::111111111111:root"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::b/*"]},
				{"Effect":"Deny","Principal":{"AWS":"*"},"Action":"s3:*","Resource":["arn:aws:s3:::b/*","arn:aws:s3:::b"],"Condition":{"Bool":{"aws:SecureTransport":"false"}}}
			]}`,
			same: true,
		},
		{
			name:  "statement order",
			other: `{"Version":"2012-10-17","Statement":[
				{"Effect":"Deny","Principal":"*","Action":"s3:*","Resource":["arn:aws:s3:::b","arn:aws:s3:::b/*"],"Condition":{"Bool":{"aws:SecureTransport":"false"}}},
				{"Sid":"","Effect":"Allow","Principal":{"AWS":"arn:aws:iam::111111111111:root"},"Action":"s3:GetObject","Resource":"arn:aws:s3:::b/*"}
			]}`,
			same: true,
		},
		{
			name:  "widened action",
			other: `{"Version":"2012-10-17","Statement":[
				{"Effect":"Allow","Principal":{"AWS":"arn:aws:iam::111111111111:root"},"Action":"s3:*","Resource":"arn:aws:s3:::b/*"},
				{"Effect":"Deny","Principal":"*","Action":"s3:*","Resource":["arn:aws:s3:::b","arn:aws:s3:::b/*"],"Condition":{"Bool":{"aws:SecureTransport":false}}}
			]}`,
			same: false,
		},
		{
			name:  "missing guard",
			other: `{"Version":"2012-10-17","Statement":[
				{"Effect":"Allow","Principal":{"AWS":"arn:aws:iam::111111111111:root"},"Action":"s3:GetObject","Resource":"arn:aws:s3:::b/*"}
			]}`,
			same: false,
		},
		{
			name:  "url encoded",
			other: url.QueryEscape(base),
			same:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			same, err := Equivalent(base, tt.other)
			require.NoError(t, err)
			assert.Equal(t, tt.same, same)
		})
	}
}

func TestNormalizeSingleStatement(t *testing.T) {
	a, err := Normalize(`{"Version":"2012-10-17","Statement":{"Effect":"Allow","Action":"sts:AssumeRole","Principal":{"Service":"codebuild.amazonaws.com"}}}`)
	require.NoError(t, err)
	b, err := Normalize(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":["sts:AssumeRole"],"Principal":{"Service":["codebuild.amazonaws.com"]}}]}`)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"not json":       `{"Version"`,
		"bad statement":  `{"Version":"2012-10-17","Statement":"x"}`,
		"unknown field":  `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Actions":"s3:*"}]}`,
		"bad principal":  `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":"me"}]}`,
		"numeric action": `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":3}]}`,
		"flat condition": `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Condition":{"Bool":true}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(doc)
			assert.ErrorIs(t, err, ErrInvalidPolicy)
		})
	}
}
