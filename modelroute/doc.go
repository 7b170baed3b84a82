// Package modelroute provides the model routing layer: a provider-agnostic
// client over the gollm library (github.com/teilomillet/gollm) that turns any
// supported LLM provider into a uniform stream of started, chunk, finished,
// and error events.
//
// # Architecture
//
// The package is built in three layers:
//
//   - ProviderAdapter interface and shared types (Request, Response, StreamEvent)
//   - Provider utilities: retry with backoff, error classification
//   - Client: provider registration, catalog-based routing, middleware
//
// # Quick Start
//
//	adapter, _ := modelroute.NewGollmAdapter("anthropic", os.Getenv("ANTHROPIC_API_KEY"))
//	client := modelroute.NewClient(modelroute.WithProvider("anthropic", adapter))
//
//	events, _ := client.Stream(ctx, modelroute.Request{
//	    Model:    "claude-sonnet-4-5",
//	    Messages: []modelroute.Message{modelroute.UserMessage("Hello")},
//	})
//	for ev := range events {
//	    if ev.Type == modelroute.EventChunk {
//	        fmt.Print(ev.Content)
//	    }
//	}
//
// Collect drains a stream into a single Response when incremental delivery
// is not needed:
//
//	resp, err := modelroute.Collect(ctx, events)
//
// # Stream Contract
//
// Every healthy stream is exactly one started event, zero or more chunk
// events (the last content-bearing chunk has IsFinal set), then one finished
// event naming the finish reason and total chunk count. A failed stream ends
// with a single error event instead; no events follow it. Adapters close the
// channel after the terminal event.
//
// # Model Catalog
//
// A built-in catalog of known models drives provider resolution and helps
// select valid model identifiers:
//
//	info := modelroute.GetModelInfo("claude-sonnet-4-5")
//	models := modelroute.ListModels("anthropic")
//	latest := modelroute.GetLatestModel("openai", "streaming")
package modelroute
