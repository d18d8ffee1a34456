package policy

type principalKind int

const (
	kindAWS principalKind = iota
	kindService
)

// Principal is an identity a statement applies to.
type Principal struct {
	kind  principalKind
	value string
}

// Any matches every principal ({"AWS": "*"}).
func Any() Principal {
	return Principal{kind: kindAWS, value: "*"}
}

// ARN is an AWS principal named by ARN: an account root or a role.
func ARN(arn string) Principal {
	return Principal{kind: kindAWS, value: arn}
}

// Service is an AWS service principal such as codebuild.amazonaws.com.
func Service(name string) Principal {
	return Principal{kind: kindService, value: name}
}

// String returns the ARN, service name, or "*".
func (p Principal) String() string {
	return p.value
}

// IsAny reports whether p matches every principal.
func (p Principal) IsAny() bool {
	return p.kind == kindAWS && p.value == "*"
}

// IsService reports whether p is a service principal.
func (p Principal) IsService() bool {
	return p.kind == kindService
}

func (k principalKind) field() string {
	if k == kindService {
		return "Service"
	}
	return "AWS"
}
