package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/provider"
)

// Callbacks forwards stream progress to the caller while the accumulator
// records it. Either field may be nil.
type Callbacks struct {
	OnDelta    func(text string)
	OnFunction func(name string)
}

// Consume drives one provider stream into the accumulator. Text deltas are
// appended and forwarded immediately; tool-call fragments are assembled
// across chunks and finalized when the stream ends. On provider error the
// accumulator transitions to Failed and the error is returned for the
// caller's fallback logic.
func Consume(ctx context.Context, client provider.CompletionClient, req *provider.ChatRequest, acc *Accumulator, cb Callbacks) error {
	if err := acc.Start(); err != nil {
		return err
	}

	var fnName strings.Builder
	var fnArgs strings.Builder
	detected := false

	// detect marks the function once the name is fully assembled. The
	// provider sends the complete name before any argument fragment, so the
	// first argument fragment (or the end of the stream) closes the name.
	detect := func() error {
		if detected || fnName.Len() == 0 {
			return nil
		}
		detected = true
		if err := acc.MarkFunctionDetected(fnName.String()); err != nil {
			return err
		}
		if cb.OnFunction != nil {
			cb.OnFunction(fnName.String())
		}
		return nil
	}

	usage, err := client.CreateChatCompletionStream(ctx, req, func(chunk *provider.StreamChunk) error {
		for _, choice := range chunk.Choices {
			if choice.Delta == nil {
				continue
			}
			if choice.Delta.Content != "" {
				if err := acc.AppendDelta(choice.Delta.Content); err != nil {
					return err
				}
				if cb.OnDelta != nil {
					cb.OnDelta(choice.Delta.Content)
				}
			}
			for _, tc := range choice.Delta.ToolCalls {
				if tc.Function.Name != "" {
					fnName.WriteString(tc.Function.Name)
				}
				if tc.Function.Arguments != "" {
					if err := detect(); err != nil {
						return err
					}
					fnArgs.WriteString(tc.Function.Arguments)
				}
			}
		}
		return nil
	})

	if err != nil {
		_ = acc.Fail(err)
		return err
	}

	// A call that never carried arguments is detected at end of stream.
	if err := detect(); err != nil {
		return err
	}

	if acc.Call() != nil {
		args := map[string]domain.Value{}
		if fnArgs.Len() > 0 {
			decoded, decodeErr := domain.DecodeArguments(json.RawMessage(fnArgs.String()))
			if decodeErr != nil {
				// Malformed arguments degrade to an empty map; the handler's
				// defensive defaults take over.
				log.Printf("WARN: failed to decode tool call arguments: %v", decodeErr)
			} else {
				args = decoded
			}
		}
		if err := acc.FinalizeFunction(args); err != nil {
			return err
		}
	}

	return acc.Finish(usage)
}
