package intent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/formpilot/structured"
)

const (
	selectFormToolName        = "select_form"
	selectFormToolDescription = "Pick the form the user asks to fill, or none."
	noForm                    = "none"
)

// DefaultSelectFormSystemPrompt has one %s, filled with the tool name.
const DefaultSelectFormSystemPrompt = `You help an elderly Vietnamese user start filling an administrative form.

The user describes what they need in their own words, often without the official form name, for example "tôi mất căn cước" or "con tôi cần đi làm". Pick the single form from the list that serves the request.

Answer with the form_id exactly as listed. Answer "none" when no form fits or the message is not a request for a form.

Call the '%s' tool with the result.`

type selectFormOutput struct {
	FormID string `json:"form_id" jsonschema:"required,description=The form_id of the chosen form or none"`
}

type ToolBasedSelector struct {
	chain *structured.Chain[*Request, selectFormOutput]
}

func NewToolBasedSelector(chatModel model.ToolCallingChatModel, opts ...structured.ChainOption) (*ToolBasedSelector, error) {
	chain, err := structured.NewChain[*Request, selectFormOutput](
		chatModel,
		buildSelectFormPrompt,
		selectFormToolName,
		selectFormToolDescription,
		opts...,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedSelector{chain: chain}, nil
}

func (s *ToolBasedSelector) SelectForm(ctx context.Context, req *Request) (string, error) {
	result, err := s.chain.Invoke(ctx, req)
	if err != nil {
		return "", err
	}
	if result == nil || result.FormID == "" || result.FormID == noForm {
		return "", nil
	}
	for _, f := range req.Forms {
		if f.ID == result.FormID {
			return f.ID, nil
		}
	}
	slog.Warn("Model picked an unknown form", "form_id", result.FormID)
	return "", nil
}

func buildSelectFormPrompt(ctx context.Context, req *Request) ([]*schema.Message, error) {
	forms, err := sonic.MarshalIndent(req.Forms, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode form list: %w", err)
	}
	content := fmt.Sprintf("Available forms:\n```json\n%s\n```\n\nUser request: %s", forms, req.Query)
	return []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(DefaultSelectFormSystemPrompt, selectFormToolName)),
		schema.UserMessage(content),
	}, nil
}
