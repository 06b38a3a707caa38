// Package agent bundles a remote model with the tools it may call into one
// callable unit that answers prompts about attached media.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/labstack/gommon/log"
	"github.com/video-summary/backend/internal/logging"
	"github.com/video-summary/backend/internal/models"
)

var (
	ErrEmptyResponse    = errors.New("model returned an empty response")
	ErrTooManyToolCalls = errors.New("model kept calling tools without answering")
)

// Session is a multi-turn conversation with the remote model.
// *genai.ChatSession satisfies it.
type Session interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// ChatSpec describes the conversation an agent needs.
type ChatSpec struct {
	Model             string
	SystemInstruction string
	Tools             []*genai.Tool
}

// ModelProvider opens chat sessions against a hosted model.
type ModelProvider interface {
	StartChat(spec ChatSpec) Session
}

// Options configures an Agent.
type Options struct {
	Name          string
	Model         string
	Markdown      bool
	MaxToolRounds int
	Instructions  []string
}

// Agent holds no per-request state and is safe for concurrent use.
type Agent struct {
	name      string
	model     string
	system    string
	maxRounds int
	provider  ModelProvider
	tools     map[string]Tool
	genTools  []*genai.Tool
	logger    *log.Logger
}

// New builds an agent.
func New(provider ModelProvider, opts Options, tools ...Tool) (*Agent, error) {
	if provider == nil {
		return nil, errors.New("agent: model provider is required")
	}
	if opts.Name == "" {
		return nil, errors.New("agent: name is required")
	}
	if opts.Model == "" {
		return nil, errors.New("agent: model is required")
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 5
	}

	a := &Agent{
		name:      opts.Name,
		model:     opts.Model,
		maxRounds: opts.MaxToolRounds,
		provider:  provider,
		tools:     make(map[string]Tool, len(tools)),
		logger:    logging.New("agent"),
	}

	var decls []*genai.FunctionDeclaration
	for _, tool := range tools {
		decl := tool.Declaration()
		if _, dup := a.tools[decl.Name]; dup {
			return nil, fmt.Errorf("agent: duplicate tool %q", decl.Name)
		}
		a.tools[decl.Name] = tool
		decls = append(decls, decl)
	}
	if len(decls) > 0 {
		a.genTools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	a.system = systemInstruction(opts)
	return a, nil
}

func systemInstruction(opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your name is %s.", opts.Name)
	for _, line := range opts.Instructions {
		b.WriteString("\n")
		b.WriteString(line)
	}
	if opts.Markdown {
		b.WriteString("\nUse markdown to format your answers.")
	}
	return b.String()
}

// Name returns the agent identity.
func (a *Agent) Name() string { return a.name }

// Model returns the model id the agent runs on.
func (a *Agent) Model() string { return a.model }

// Tools returns the names of the registered tools.
func (a *Agent) Tools() []string {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	return names
}

// Run sends the prompt with its attachments and blocks until the model gives
// a complete text answer. Tool calls requested by the model are executed in
// between.
func (a *Agent) Run(ctx context.Context, prompt string, attachments []*models.RemoteFile) (*models.AnalysisResult, error) {
	session := a.provider.StartChat(ChatSpec{
		Model:             a.model,
		SystemInstruction: a.system,
		Tools:             a.genTools,
	})

	parts := make([]genai.Part, 0, len(attachments)+1)
	for _, f := range attachments {
		parts = append(parts, genai.FileData{MIMEType: f.MIMEType, URI: f.URI})
	}
	parts = append(parts, genai.Text(prompt))

	toolCalls := 0
	for round := 0; ; round++ {
		resp, err := session.SendMessage(ctx, parts...)
		if err != nil {
			return nil, fmt.Errorf("generating content: %w", err)
		}

		calls := functionCalls(resp)
		if len(calls) == 0 {
			text := responseText(resp)
			if strings.TrimSpace(text) == "" {
				return nil, ErrEmptyResponse
			}
			return &models.AnalysisResult{Text: text, Model: a.model, ToolCalls: toolCalls}, nil
		}

		if round >= a.maxRounds {
			return nil, fmt.Errorf("%w (%d rounds)", ErrTooManyToolCalls, round)
		}

		parts = make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			toolCalls++
			parts = append(parts, genai.FunctionResponse{
				Name:     call.Name,
				Response: a.callTool(ctx, call),
			})
		}
	}
}

// callTool runs one tool. Failures are reported to the model instead of
// aborting the run so it can answer from the video alone.
func (a *Agent) callTool(ctx context.Context, call genai.FunctionCall) map[string]any {
	tool, ok := a.tools[call.Name]
	if !ok {
		a.logger.Warnf("model requested unknown tool %q", call.Name)
		return map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)}
	}

	a.logger.Infof("calling tool %s with %v", call.Name, call.Args)
	out, err := tool.Call(ctx, call.Args)
	if err != nil {
		a.logger.Warnf("tool %s failed: %v", call.Name, err)
		return map[string]any{"error": err.Error()}
	}
	return out
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	for _, part := range firstCandidateParts(resp) {
		switch p := part.(type) {
		case genai.FunctionCall:
			calls = append(calls, p)
		case *genai.FunctionCall:
			calls = append(calls, *p)
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, part := range firstCandidateParts(resp) {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

func firstCandidateParts(resp *genai.GenerateContentResponse) []genai.Part {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return nil
	}
	return c.Content.Parts
}
