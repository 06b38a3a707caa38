package gemini

import (
	"github.com/google/generative-ai-go/genai"
	"github.com/video-summary/backend/internal/agent"
)

// Provider opens chat sessions on the client for the agent.
type Provider struct {
	client *Client
}

// NewProvider creates a Provider.
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

// StartChat configures a fresh model per conversation, so concurrent runs
// never share model settings or history.
func (p *Provider) StartChat(spec agent.ChatSpec) agent.Session {
	model := p.client.genai.GenerativeModel(spec.Model)
	model.Tools = spec.Tools
	if spec.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(spec.SystemInstruction))
	}
	return model.StartChat()
}
