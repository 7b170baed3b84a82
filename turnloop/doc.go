// Package turnloop drives one turn of an interactive agent conversation:
// submitting an instruction, ingesting the streamed response, detecting
// operation requests embedded in that response, executing them against the
// capability layer, and exposing live progress for display.
//
// Three concerns interleave under a single-turn consistency contract:
// incremental text streaming, textual extraction of structured intents from
// unstructured output, and sequential side-effecting execution with
// partial-failure recovery. Every failure resolves into conversation
// content; nothing propagates past the turn boundary and nothing is retried
// behind the user's back.
//
// # Architecture
//
// The package is organized around these core concepts:
//
//   - Store: The conversation state store owning the ordered, append-only
//     message list everything else mutates.
//   - ExtractCalls: Pure function turning accumulated response text into
//     structured call records, safe to re-run on every streaming increment.
//   - Ingestor: Consumes the response stream, accumulates text, re-runs
//     extraction per increment, and honors per-turn cancellation.
//   - Pipeline: Executes detected calls one at a time in order, stopping at
//     the first failure, at most once per message.
//   - ClassifyActivity: Maps runtime events and pending work to a small
//     symbolic state machine for progress display.
//   - TaskBridge: Secondary mode tracking longer-running, service-side
//     tasks with percentage progress on a single placeholder message.
//   - Orchestrator: Ties the above together for one conversation.
//
// # Quick Start
//
//	client, _ := modelroute.NewClientFromEnv()
//	ws, _ := capability.NewWorkspace("/path/to/project")
//	reg := capability.NewRegistry()
//	capability.RegisterLocalSkills(reg, ws)
//
//	conv := turnloop.New(client, reg, turnloop.DefaultConfig())
//	defer conv.Close()
//
//	msg, _ := conv.Submit(ctx, "Create notes.txt containing Hello")
//	if len(msg.ToolCalls) > 0 {
//	    result, _ := conv.ExecuteCalls(ctx, msg.ID)
//	    fmt.Println(result.Summary())
//	}
package turnloop
