package provider

import "strings"

var (
	confirmationSignals = []string{
		"thank you",
		"thanks for applying",
		"application received",
		"application submitted",
		"we will review",
		"we'll be in touch",
		"successfully submitted",
		"has been submitted",
		"submitted successfully",
		"success:",
		"the application was submitted",
		"no longer visible",
	}
	failureSignals = []string{
		"not found",
		"job not found",
		"unable to submit",
		"could not",
		"failed",
		"error",
		"captcha",
		"without the resume",
		"missing required",
		"validation",
		"spam",
		"failure:",
	}
)

// Verdict is what an agent final output says about the submission.
type Verdict struct {
	Confirmed bool
	// Failures are the failure signals found.
	Failures []string
}

// Failed is true when there are failure signals and no confirmation.
func (v Verdict) Failed() bool { return !v.Confirmed && len(v.Failures) > 0 }

// ScanOutput looks for confirmation and failure signals in an agent output.
func ScanOutput(output string) Verdict {
	out := strings.ToLower(output)

	var v Verdict
	for _, s := range confirmationSignals {
		if strings.Contains(out, s) {
			v.Confirmed = true
			break
		}
	}
	for _, s := range failureSignals {
		if strings.Contains(out, s) {
			v.Failures = append(v.Failures, s)
		}
	}

	return v
}
