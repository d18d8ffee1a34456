package verify

import (
	"fmt"
	"io"
)

// Finding is one difference between the deployed and expected state.
type Finding struct {
	Resource string
	Message  string
}

func (f Finding) String() string {
	return f.Resource + ": " + f.Message
}

// Report collects findings in the order they were checked.
type Report struct {
	Findings []Finding
	Checked  []string
}

// OK reports whether no drift was found.
func (r *Report) OK() bool { return len(r.Findings) == 0 }

func (r *Report) addf(resource, format string, args ...interface{}) {
	r.Findings = append(r.Findings, Finding{Resource: resource, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) checked(resource string) {
	r.Checked = append(r.Checked, resource)
}

// Write prints one line per finding, or a summary line when there are none.
func (r *Report) Write(w io.Writer) error {
	if r.OK() {
		_, err := fmt.Fprintf(w, "no drift in %d resources\n", len(r.Checked))
		return err
	}
	for _, f := range r.Findings {
		if _, err := fmt.Fprintln(w, f.String()); err != nil {
			return err
		}
	}
	return nil
}
