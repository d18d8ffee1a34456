package policy

// ConditionOperator is an IAM condition operator.
type ConditionOperator string

const (
	Bool            ConditionOperator = "Bool"
	StringEquals    ConditionOperator = "StringEquals"
	StringNotEquals ConditionOperator = "StringNotEquals"
)

// ConditionKey is a global or service-specific condition context key.
type ConditionKey string

const (
	KMSGrantIsForAWSResource ConditionKey = "kms:GrantIsForAWSResource"
	S3ServerSideEncryption   ConditionKey = "s3:x-amz-server-side-encryption"
	AWSSecureTransport       ConditionKey = "aws:SecureTransport"
)

var (
	knownOperators = map[ConditionOperator]struct{}{
		Bool:            {},
		StringEquals:    {},
		StringNotEquals: {},
	}
	knownKeys = map[ConditionKey]struct{}{
		KMSGrantIsForAWSResource: {},
		S3ServerSideEncryption:   {},
		AWSSecureTransport:       {},
	}
)

// Condition is a single operator/key/value test. Values of Bool conditions
// are "true" or "false" and render as JSON booleans.
type Condition struct {
	Operator ConditionOperator
	Key      ConditionKey
	Value    string
}

// IsTrue builds a Bool condition requiring key to be true.
func IsTrue(key ConditionKey) Condition {
	return Condition{Operator: Bool, Key: key, Value: "true"}
}

// IsFalse builds a Bool condition matching when key is false.
func IsFalse(key ConditionKey) Condition {
	return Condition{Operator: Bool, Key: key, Value: "false"}
}

// NotEquals builds a StringNotEquals condition.
func NotEquals(key ConditionKey, value string) Condition {
	return Condition{Operator: StringNotEquals, Key: key, Value: value}
}

// Valid reports whether the operator and key are declared and, for Bool,
// whether the value is a boolean literal.
func (c Condition) Valid() bool {
	if _, ok := knownOperators[c.Operator]; !ok {
		return false
	}
	if _, ok := knownKeys[c.Key]; !ok {
		return false
	}
	if c.Operator == Bool {
		return c.Value == "true" || c.Value == "false"
	}
	return c.Value != ""
}

func (c Condition) rendered() interface{} {
	if c.Operator == Bool {
		return c.Value == "true"
	}
	return c.Value
}
