package command

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/formpilot/structured"
)

const (
	parseReplyToolName        = "parse_confirmation_reply"
	parseReplyToolDescription = "Classify the user's answer to a yes/no confirmation question: accept, reject, cancel or unknown."
)

type parseReplyOutput struct {
	Reply Reply `json:"reply" jsonschema:"required,enum=accept,enum=reject,enum=cancel,enum=unknown,description=The user's decision"`
}

// ToolBasedParser asks a chat model to classify replies the keyword lists miss.
type ToolBasedParser struct {
	chain *structured.Chain[*Request, parseReplyOutput]
}

func NewToolBasedParser(chatModel model.ToolCallingChatModel, opts ...structured.ChainOption) (*ToolBasedParser, error) {
	chain, err := structured.NewChain[*Request, parseReplyOutput](
		chatModel,
		buildParseReplyPrompt,
		parseReplyToolName,
		parseReplyToolDescription,
		opts...,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedParser{chain: chain}, nil
}

func (p *ToolBasedParser) ParseReply(ctx context.Context, req *Request) (Reply, error) {
	result, err := p.chain.Invoke(ctx, req)
	if err != nil {
		return Unknown, err
	}
	if result == nil || !result.Reply.Valid() {
		return Unknown, fmt.Errorf("invalid reply returned by %s", parseReplyToolName)
	}
	return result.Reply, nil
}

func buildParseReplyPrompt(ctx context.Context, req *Request) ([]*schema.Message, error) {
	systemPrompt := fmt.Sprintf(`You help an elderly Vietnamese user confirm a value they typed into a form.

The assistant asked a yes/no question about the value. Read the question together with the user's answer and choose:
- accept: the user confirms the value is correct ("đúng", "vâng", "ừ", "đúng rồi cháu").
- reject: the user says the value is wrong or wants to type it again ("sai", "không", "nhập lại").
- cancel: the user explicitly wants to stop filling the whole form ("hủy", "thôi không làm nữa").
- unknown: anything else.

Call the '%s' tool with the result.`, parseReplyToolName)

	content := fmt.Sprintf("Question: %s\nValue: %s\nAnswer: %s", req.Question, req.Value, req.Answer)
	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(content),
	}, nil
}
