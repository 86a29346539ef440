// Package generator runs the bounded tool-calling loop against the model.
//
// A query gets at most two tool rounds. Each round sends the conversation
// with tools attached and tool requests returned unexecuted; requested tools
// are executed here and their results appended as a tool message. After the
// second round the model gets exactly one final call without tools, so every
// query terminates in at most three model calls regardless of how eagerly the
// model asks for tools.
package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// systemPrompt is the static instruction set. Conversation history, when
// present, is appended under a "Previous conversation:" heading.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content, with tools to search course content and fetch course outlines.

Tool usage:
- Use search_course_content for questions about specific course content or detailed educational materials.
- Use get_course_outline for questions about a course's structure, lesson list, or links.
- Prefer one well-targeted tool call per question; refine with a second call only when the first result is insufficient.
- If a tool yields no results, state that clearly without speculating.

Responses:
- Answer general knowledge questions from your own knowledge without tools.
- Be brief, concise and focused. No meta-commentary about searching or your reasoning process.
- Provide only the direct answer.`

// Fixed degradation strings. The caller displays these verbatim.
const (
	// noToolResultsMessage is returned when a round requested tools but no
	// results could be collected at all.
	noToolResultsMessage = "I encountered an error while processing your request."

	// fallbackErrorMessage is the last resort when even the tools-free
	// retry fails.
	fallbackErrorMessage = "I encountered an error processing your request. Please try again."
)

// maxToolRounds bounds how many times the model may request tools per query.
const maxToolRounds = 2

// ToolExecutor dispatches a named tool call. Implemented by tools.Manager.
type ToolExecutor interface {
	ExecuteTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// roundState tracks progress through the bounded loop.
type roundState int

const (
	stateRound1 roundState = iota
	stateRound2
	stateSynthesis
)

// Config contains required parameters for the Generator.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	Logger    *slog.Logger
}

// Generator produces answers with bounded tool use. It is stateless across
// calls; all per-query state lives on the stack.
type Generator struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// New creates a Generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Genkit == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{g: cfg.Genkit, modelName: cfg.ModelName, logger: logger}, nil
}

// GenerateResponse answers a query, optionally using tools and conversation
// history. It never returns an error: any failure degrades to a usable
// string, ultimately the fixed apology.
//
// Model call budget: a query with 0, 1 or 2 tool rounds costs exactly 1, 2
// or 3 model calls.
func (gen *Generator) GenerateResponse(ctx context.Context, query, history string, toolRefs []ai.ToolRef, executor ToolExecutor) string {
	system := systemPrompt
	if history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	messages := []*ai.Message{ai.NewUserMessage(ai.NewTextPart(query))}
	useTools := len(toolRefs) > 0 && executor != nil

	state := stateRound1
	for round := 1; ; round++ {
		opts := []ai.GenerateOption{
			ai.WithModelName(gen.modelName),
			ai.WithSystem(system),
			ai.WithMessages(messages...),
		}
		if state != stateSynthesis && useTools {
			opts = append(opts,
				ai.WithTools(toolRefs...),
				ai.WithReturnToolRequests(true),
			)
		}

		resp, err := genkit.Generate(ctx, gen.g, opts...)
		if err != nil {
			return gen.fallback(ctx, query, system, err)
		}

		requests := resp.ToolRequests()
		if state == stateSynthesis || len(requests) == 0 {
			return resp.Text()
		}

		gen.logger.Debug("model requested tools",
			"round", round, "requests", len(requests))

		messages = append(messages, resp.Message)

		parts := gen.executeRequests(ctx, executor, requests)
		if len(parts) == 0 {
			return noToolResultsMessage
		}
		messages = append(messages, ai.NewMessage(ai.RoleTool, nil, parts...))

		if round >= maxToolRounds {
			// Tool budget exhausted: one final tools-free call.
			state = stateSynthesis
		} else {
			state = stateRound2
		}
	}
}

// executeRequests runs every requested tool. A failing call does not abort
// the round: its error is substituted as that tool's result so the model can
// react to it.
func (gen *Generator) executeRequests(ctx context.Context, executor ToolExecutor, requests []*ai.ToolRequest) []*ai.Part {
	parts := make([]*ai.Part, 0, len(requests))
	for _, req := range requests {
		args, _ := req.Input.(map[string]any)

		output, err := executor.ExecuteTool(ctx, req.Name, args)
		if err != nil {
			gen.logger.Warn("tool execution failed", "tool", req.Name, "error", err)
			output = fmt.Sprintf("Tool execution error: %v", err)
		}

		parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: output,
		}))
	}
	return parts
}

// fallback retries once without tools, keeping the original query and the
// composed system prompt with its conversation history, then gives up with
// the fixed apology.
func (gen *Generator) fallback(ctx context.Context, query, system string, genErr error) string {
	gen.logger.Warn("generation failed, retrying without tools", "error", genErr)

	resp, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName(gen.modelName),
		ai.WithSystem(system),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(query))),
	)
	if err != nil {
		gen.logger.Error("fallback generation failed", "error", err)
		return fallbackErrorMessage
	}
	return resp.Text()
}
