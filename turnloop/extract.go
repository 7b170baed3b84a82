package turnloop

import (
	"sort"
	"strings"

	"github.com/parleyagent/parley/capability"
)

// callShape describes the positional argument layout of a supported method.
type callShape struct {
	skill   string
	params  []string
	minArgs int
}

// callShapes is the fixed method set the extractor recognizes. Params are
// positional; minArgs is the count of required leading arguments.
var callShapes = map[string]callShape{
	"write_file":   {capability.SkillFilesystem, []string{"path", "content"}, 2},
	"read_file":    {capability.SkillFilesystem, []string{"path"}, 1},
	"search_files": {capability.SkillFilesystem, []string{"query", "path"}, 1},
	"delete_file":  {capability.SkillFilesystem, []string{"path"}, 1},
	"list_files":   {capability.SkillFilesystem, []string{"path"}, 0},
	"run_command":  {capability.SkillShell, []string{"command"}, 1},
	"fetch_url":    {capability.SkillNetwork, []string{"url"}, 1},
}

// SupportedMethods returns the method names the extractor recognizes, sorted.
func SupportedMethods() []string {
	names := make([]string, 0, len(callShapes))
	for name := range callShapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExtractCalls scans text for operation requests written in call syntax,
// like write_file("notes.txt", "Hello"), and returns them in source order.
// Repeated identical matches are all kept.
//
// Extraction is monotonic over growing text: a call found in a prefix is
// found again in every longer text containing that prefix unchanged, so the
// function is safe to re-run on each streaming increment. For the same
// reason, matches inside the argument strings of other calls are not
// suppressed.
func ExtractCalls(text string) []ToolCall {
	type candidate struct {
		pos    int
		method string
	}
	var candidates []candidate
	for method := range callShapes {
		needle := method + "("
		from := 0
		for {
			idx := strings.Index(text[from:], needle)
			if idx < 0 {
				break
			}
			pos := from + idx
			if pos == 0 || !isWordByte(text[pos-1]) {
				candidates = append(candidates, candidate{pos: pos, method: method})
			}
			from = pos + len(needle)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].pos < candidates[j].pos })

	var calls []ToolCall
	for _, cand := range candidates {
		shape := callShapes[cand.method]
		args, ok := parseCallArgs(text, cand.pos+len(cand.method)+1)
		if !ok || len(args) < shape.minArgs {
			continue
		}
		params := make(map[string]any, len(shape.params))
		for i, name := range shape.params {
			if i >= len(args) {
				break
			}
			params[name] = args[i]
		}
		calls = append(calls, ToolCall{Skill: shape.skill, Method: cand.method, Params: params})
	}
	return calls
}

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// parseCallArgs reads a parenthesized argument list starting just after the
// opening paren. It reports false when the list is unterminated or malformed,
// which also covers a call still being streamed.
func parseCallArgs(text string, start int) ([]string, bool) {
	args := []string{}
	i := start
	n := len(text)

	for {
		i = skipSpace(text, i)
		if i >= n {
			return nil, false
		}
		if text[i] == ')' {
			if len(args) == 0 {
				return args, true
			}
			return nil, false // dangling comma
		}

		var arg string
		var ok bool
		if text[i] == '"' || text[i] == '\'' {
			arg, i, ok = scanQuoted(text, i)
		} else {
			arg, i, ok = scanBare(text, i)
		}
		if !ok {
			return nil, false
		}
		args = append(args, arg)

		i = skipSpace(text, i)
		if i >= n {
			return nil, false
		}
		switch text[i] {
		case ',':
			i++
		case ')':
			return args, true
		default:
			return nil, false
		}
	}
}

func skipSpace(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case ' ', '\t', '\r', '\n':
			i++
		default:
			return i
		}
	}
	return i
}

// scanQuoted reads a quoted argument, decoding backslash escapes.
func scanQuoted(text string, start int) (string, int, bool) {
	quote := text[start]
	var sb strings.Builder
	i := start + 1
	for i < len(text) {
		ch := text[i]
		if ch == '\\' && i+1 < len(text) {
			switch next := text[i+1]; next {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '"', '\'':
				sb.WriteByte(next)
			default:
				sb.WriteByte('\\')
				sb.WriteByte(next)
			}
			i += 2
			continue
		}
		if ch == quote {
			return sb.String(), i + 1, true
		}
		sb.WriteByte(ch)
		i++
	}
	return "", 0, false // unterminated
}

// scanBare reads an unquoted argument up to a comma or closing paren. Bare
// arguments stay on one line.
func scanBare(text string, start int) (string, int, bool) {
	for i := start; i < len(text); i++ {
		switch text[i] {
		case ',', ')':
			arg := strings.TrimSpace(text[start:i])
			if arg == "" {
				return "", 0, false
			}
			return arg, i, true
		case '\n':
			return "", 0, false
		}
	}
	return "", 0, false
}
