package turnloop

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// BuildContextPrefix renders the hidden context block prepended to a turn's
// request. It is sent to the model but never shown in the conversation.
func BuildContextPrefix(workspacePath, extra string) string {
	var sb strings.Builder
	sb.WriteString("<context>\n")
	if workspacePath != "" {
		fmt.Fprintf(&sb, "Workspace: %s\n", workspacePath)
	}
	fmt.Fprintf(&sb, "Platform: %s\n", runtime.GOOS)
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	sb.WriteString("</context>\n\n")
	sb.WriteString(CallSyntaxGuide())
	if extra != "" {
		sb.WriteString("\n\n")
		sb.WriteString(extra)
	}
	return sb.String()
}

// CallSyntaxGuide describes the call syntax the extractor recognizes, so the
// model emits operations the orchestrator can detect.
func CallSyntaxGuide() string {
	var sb strings.Builder
	sb.WriteString("<operations>\n")
	sb.WriteString("To request an operation, write it as a function call on its own line, with every argument as a quoted string:\n")
	for _, method := range SupportedMethods() {
		shape := callShapes[method]
		args := make([]string, len(shape.params))
		for i, name := range shape.params {
			if i >= shape.minArgs {
				args[i] = name + "?"
			} else {
				args[i] = name
			}
		}
		fmt.Fprintf(&sb, "- %s(%s)\n", method, strings.Join(args, ", "))
	}
	sb.WriteString("Operations run only after the user confirms them, in the order written.\n")
	sb.WriteString("</operations>")
	return sb.String()
}
