// Package processing turns chat requests into orchestrator input and shapes
// provider output into chat replies.
//
// Request intake (PrepareRequest):
//
//   - the message array is decoded and prior conversation is spliced in
//     after the first message
//   - the request's config is merged over the generation defaults key by
//     key and range checked
//   - image parts are checked: data: URLs are rejected and URLs need a
//     scheme and a host
//   - a function_name with non-empty args short-circuits to a function call
//     reply without contacting any provider
//   - a system prompt is prepended when the conversation has none
//   - a json_schema response format is compiled and a system instruction
//     embedding the schema is inserted first
//
// Response shaping (ProcessResponse) validates the reply against the
// requested schema and fills token usage when the upstream did not report
// it.
//
// # Sub-packages
//
//   - extract: JSON and code-block extraction from model output
//   - schema: JSON schema compilation and validation
//   - tokens: character-based token estimation
//
// # Usage
//
//	proc := processing.NewProcessor(routing.GenerationFromConfig(cfg.Generation))
//
//	prepared, err := proc.PrepareRequest(&chatReq)
//	if err != nil {
//		// *RequestError: respond 400
//	}
//	if prepared.FunctionCall != nil {
//		// reply with the function call
//	}
//
//	result, err := orchestrator.CompleteWithFallback(ctx, prepared.Messages, prepared.Generation)
//	reply, err := proc.ProcessResponse(prepared, result.Response, result.Model)
//
// A Processor is safe for concurrent use. Generation defaults can be swapped
// at runtime with SetDefaults.
package processing
