// Package gemini adapts the Gemini generateContent API to contract.ModelSession.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	toolx "github.com/tanpawarit/laia-quote-agent/agent/tool"
	"google.golang.org/genai"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// Generator is the part of genai.Models used by a session.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var _ Generator = (*genai.Models)(nil)

// Factory starts chat sessions that share one generator and tool set.
type Factory struct {
	gen    Generator
	model  string
	config *genai.GenerateContentConfig
}

var _ contractx.ModelSessionFactory = (*Factory)(nil)

func NewFactory(gen Generator, model string, config *genai.GenerateContentConfig) (*Factory, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: gemini generator is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: gemini model is required", contractx.ErrValidation)
	}
	if config == nil {
		config = &genai.GenerateContentConfig{}
	}
	cfg := *config
	cfg.Tools = []*genai.Tool{{FunctionDeclarations: FunctionDeclarations(toolx.Specs())}}

	return &Factory{gen: gen, model: strings.TrimSpace(model), config: &cfg}, nil
}

func (f *Factory) StartSession(_ context.Context, history []contractx.Turn) (contractx.ModelSession, error) {
	s := &session{
		factory:    f,
		contents:   make([]*genai.Content, 0, len(history)+4),
		transcript: make([]contractx.Turn, 0, len(history)+1),
	}
	for _, turn := range history {
		role := roleUser
		if turn.Role == contractx.RoleModel {
			role = roleModel
		}
		s.contents = append(s.contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
		s.transcript = append(s.transcript, turn)
	}
	return s, nil
}

type session struct {
	factory    *Factory
	contents   []*genai.Content
	transcript []contractx.Turn
}

func (s *session) SendText(ctx context.Context, text string) (contractx.ModelReply, error) {
	s.contents = append(s.contents, &genai.Content{
		Role:  roleUser,
		Parts: []*genai.Part{{Text: text}},
	})
	s.transcript = append(s.transcript, contractx.Turn{Role: contractx.RoleUser, Text: text})
	return s.generate(ctx)
}

// SendToolResults answers every pending function call in one user content.
func (s *session) SendToolResults(ctx context.Context, results []contractx.ToolResult) (contractx.ModelReply, error) {
	parts := make([]*genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				ID:       r.CallID,
				Name:     r.Name,
				Response: r.Response(),
			},
		})
	}
	s.contents = append(s.contents, &genai.Content{Role: roleUser, Parts: parts})
	return s.generate(ctx)
}

func (s *session) Transcript() []contractx.Turn {
	out := make([]contractx.Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *session) generate(ctx context.Context) (contractx.ModelReply, error) {
	resp, err := s.factory.gen.GenerateContent(ctx, s.factory.model, s.contents, s.factory.config)
	if err != nil {
		return contractx.ModelReply{}, fmt.Errorf("%w: gemini generate: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		log.Warn().Str("model", s.factory.model).Msg("gemini returned no candidates")
		return contractx.ModelReply{}, nil
	}

	content := resp.Candidates[0].Content
	if content.Role == "" {
		content.Role = roleModel
	}
	// The raw content is kept so thought signatures survive into the next request.
	s.contents = append(s.contents, content)
	return replyFromContent(content), nil
}

func replyFromContent(content *genai.Content) contractx.ModelReply {
	var reply contractx.ModelReply
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			reply.ToolCalls = append(reply.ToolCalls, contractx.ToolCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
			continue
		}
		if part.Thought || part.Text == "" {
			continue
		}
		reply.Texts = append(reply.Texts, part.Text)
	}
	return reply
}

// FunctionDeclarations converts the tool registry to Gemini declarations.
func FunctionDeclarations(specs []toolx.Spec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		props := make(map[string]*genai.Schema, len(s.Params))
		for _, p := range s.Params {
			schema := &genai.Schema{Type: schemaType(p.Type), Description: p.Desc}
			if p.Type == toolx.TypeArray {
				schema.Items = &genai.Schema{Type: schemaType(p.Items)}
			}
			props[p.Name] = schema
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   s.RequiredNames(),
			},
		})
	}
	return out
}

func schemaType(t toolx.ParamType) genai.Type {
	switch t {
	case toolx.TypeInteger:
		return genai.TypeInteger
	case toolx.TypeBoolean:
		return genai.TypeBoolean
	case toolx.TypeArray:
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}
