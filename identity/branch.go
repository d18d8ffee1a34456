package identity

import "fmt"

// Branch is a branch the pipeline is allowed to deploy from.
type Branch string

const (
	BranchMain    Branch = "main"
	BranchDevelop Branch = "develop"
	BranchStaging Branch = "staging"
)

var branches = []Branch{BranchMain, BranchDevelop, BranchStaging}

// Branches lists the allowed branches in declaration order.
func Branches() []Branch {
	return append([]Branch(nil), branches...)
}

// ParseBranch returns ErrInvalidBranch for anything outside Branches.
func ParseBranch(s string) (Branch, error) {
	for _, b := range branches {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q (allowed: %v)", ErrInvalidBranch, s, branches)
}
