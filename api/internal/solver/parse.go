package solver

import (
	"fmt"
	"strings"
)

const (
	markerExplanation  = `"explanation":`
	markerCalculation  = `"calculation":`
	markerVerification = `"verification":`
	markerFinalAnswer  = `"final_answer":`

	// FinalAnswerLabel and FinalAnswerCheck fill the synthetic last step.
	FinalAnswerLabel = "Финальный ответ уравнения"
	FinalAnswerCheck = "Проверка подстановкой в исходное уравнение"
)

// ParsePaths splits a proposer answer into numbered strategies. A line
// starting with a digit and holding ". " in its first five characters opens a new
// strategy; anything before the first such line is dropped. Without any
// numbered line the whole answer is a single strategy.
func ParsePaths(text string) []string {
	var (
		paths []string
		cur   []string
		seen  bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isPathMarker(line) {
			if seen {
				paths = append(paths, strings.Join(cur, "\n"))
			}
			cur = []string{line}
			seen = true
			continue
		}
		if seen {
			cur = append(cur, line)
		}
	}
	if !seen {
		return []string{text}
	}
	return append(paths, strings.Join(cur, "\n"))
}

func isPathMarker(line string) bool {
	if line == "" || line[0] < '0' || line[0] > '9' {
		return false
	}
	head := []rune(line)
	if len(head) > 5 {
		head = head[:5]
	}
	return strings.Contains(string(head), ". ")
}

// ParseSteps reads generator output line by line. Only the quoted markers
// matter, so the answer does not have to be valid JSON.
func ParseSteps(text string) []Step {
	var (
		steps    []Step
		cur      *Step
		final    string
		hasFinal bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if v, ok := valueAfter(line, markerFinalAnswer); ok {
			final, hasFinal = v, true
			continue
		}
		if v, ok := valueAfter(line, markerExplanation); ok {
			if cur != nil {
				steps = append(steps, *cur)
			}
			cur = &Step{Explanation: v}
			continue
		}
		if v, ok := valueAfter(line, markerCalculation); ok {
			if cur == nil {
				cur = &Step{}
			}
			cur.Calculation = v
			continue
		}
		if v, ok := valueAfter(line, markerVerification); ok {
			if cur == nil {
				cur = &Step{}
			}
			cur.Verification = v
		}
	}
	if cur != nil {
		steps = append(steps, *cur)
	}
	if hasFinal {
		steps = append(steps, Step{
			Explanation:  FinalAnswerLabel,
			Calculation:  final,
			Verification: FinalAnswerCheck,
			FinalAnswer:  final,
		})
	}
	return steps
}

func valueAfter(line, marker string) (string, bool) {
	i := strings.Index(line, marker)
	if i < 0 {
		return "", false
	}
	v := strings.TrimSpace(line[i+len(marker):])
	return strings.TrimSpace(strings.Trim(v, `",`)), true
}

// MarshalSteps writes steps back in the generator's marker format. A step
// carrying a final answer is written as a final_answer block.
func MarshalSteps(steps []Step) string {
	var b strings.Builder
	for _, s := range steps {
		if s.FinalAnswer != "" {
			fmt.Fprintf(&b, "{\n    %s \"%s\"\n}\n", markerFinalAnswer, s.FinalAnswer)
			continue
		}
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseVerdict reads a verifier answer. Every "key: value" line other than
// the VERIFICATION header becomes a detail; FINAL_VERDICT sets Overall.
func ParseVerdict(text string) Verdict {
	var v Verdict
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch {
		case strings.Contains(key, "FINAL_VERDICT"):
			v.Overall = isCorrect(value)
		case strings.Contains(key, "VERIFICATION"):
		default:
			category := strings.TrimSpace(strings.TrimLeft(key, "-•* "))
			if category == "" {
				continue
			}
			v.set(Detail{Category: category, Note: value, OK: isCorrect(value)})
		}
	}
	return v
}

func isCorrect(value string) bool {
	u := strings.ToUpper(value)
	return strings.Contains(u, "CORRECT") && !strings.Contains(u, "INCORRECT")
}
