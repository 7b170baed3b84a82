package turnloop

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// PlanStep is one proposed operation in a plan: a type tag and a human
// description.
type PlanStep struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Plan is an ordered set of proposed operations requiring confirmation
// before execution.
type Plan struct {
	ID       string     `json:"id"`
	Steps    []PlanStep `json:"steps"`
	Warnings []string   `json:"warnings,omitempty"`
}

var planStepPattern = regexp.MustCompile(`^\s*\d+\.\s*\[(\w+)\]\s*(.+)$`)

// ParsePlan parses machine-generated plan text of the form:
//
//	1. [write] Create notes.txt with the summary
//	2. [run] Execute the build
//	warning: step 2 modifies build output
//
// Lines that are neither numbered steps, warnings, nor blank make the plan
// malformed.
func ParsePlan(text string) (*Plan, error) {
	plan := &Plan{ID: uuid.New().String()}

	for lineNo, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := planStepPattern.FindStringSubmatch(line); m != nil {
			plan.Steps = append(plan.Steps, PlanStep{
				Type:        strings.ToLower(m[1]),
				Description: strings.TrimSpace(m[2]),
			})
			continue
		}

		if rest, ok := cutPrefixFold(trimmed, "warning:"); ok {
			plan.Warnings = append(plan.Warnings, strings.TrimSpace(rest))
			continue
		}

		return nil, fmt.Errorf("malformed plan line %d: %q", lineNo+1, trimmed)
	}

	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan contains no steps")
	}
	return plan, nil
}

// cutPrefixFold is strings.CutPrefix with ASCII case folding on the prefix.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) {
		return s, false
	}
	if strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
