// Package solver turns a problem statement into a verified, step-by-step
// solution: propose strategies, generate steps along the best one, verify
// every step and adapt the strategy once when verification fails.
package solver

import "fmt"

// Step is one unit of a worked solution. FinalAnswer is set only on the
// synthetic trailing step produced from a "final_answer" marker.
type Step struct {
	Explanation         string   `json:"explanation"`
	Calculation         string   `json:"calculation"`
	Verification        string   `json:"verification"`
	FinalAnswer         string   `json:"final_answer,omitempty"`
	IsCorrect           bool     `json:"is_correct"`
	VerificationDetails []Detail `json:"verification_details,omitempty"`
}

// String renders the step in the same marker format the generator asks the
// model for. It is what the verifier sends for checking.
func (s Step) String() string {
	return fmt.Sprintf("{\n    %s \"%s\",\n    %s \"%s\",\n    %s \"%s\"\n}",
		markerExplanation, s.Explanation,
		markerCalculation, s.Calculation,
		markerVerification, s.Verification)
}

// Detail is one verification category with the model's note on it.
type Detail struct {
	Category string `json:"category"`
	Note     string `json:"note"`
	OK       bool   `json:"ok"`
}

// Verdict is a parsed verification answer.
type Verdict struct {
	Overall bool
	Details []Detail
}

// set stores d, replacing an earlier detail with the same category in place.
func (v *Verdict) set(d Detail) {
	for i := range v.Details {
		if v.Details[i].Category == d.Category {
			v.Details[i] = d
			return
		}
	}
	v.Details = append(v.Details, d)
}

// VerifiedStep wraps a step with its verification outcome.
type VerifiedStep struct {
	Step      *Step `json:"step"`
	IsCorrect bool  `json:"is_correct"`
}

type State string

const (
	StatePropose  State = "propose"
	StateGenerate State = "generate"
	StateVerify   State = "verify"
	StateAdapt    State = "adapt"
	StateFinalize State = "finalize"
	StateError    State = "error"
)

// Result is everything one solve produced. Raw is set by the direct
// strategy, Steps by the verified one.
type Result struct {
	Problem  string         `json:"problem"`
	Strategy string         `json:"strategy"`
	Paths    []string       `json:"paths,omitempty"`
	Path     string         `json:"path,omitempty"`
	Steps    []VerifiedStep `json:"steps,omitempty"`
	Raw      string         `json:"raw,omitempty"`
	Adapted  bool           `json:"adapted"`
	Trace    []State        `json:"trace,omitempty"`
}

func (r *Result) enter(s State) { r.Trace = append(r.Trace, s) }

// Text renders the result for the user.
func (r *Result) Text() string {
	if r.Strategy == ModeDirect {
		return FormatRaw(r.Raw)
	}
	return FormatSolution(r.Steps)
}

func allCorrect(steps []VerifiedStep) bool {
	for _, s := range steps {
		if !s.IsCorrect {
			return false
		}
	}
	return true
}

func incorrect(steps []VerifiedStep) []VerifiedStep {
	var out []VerifiedStep
	for _, s := range steps {
		if !s.IsCorrect {
			out = append(out, s)
		}
	}
	return out
}
