package structured

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/sethvargo/go-retry"
)

type PromptBuilder[TInput any] func(ctx context.Context, input TInput) ([]*schema.Message, error)

// ErrNoToolCall is returned when the model answers without calling the tool.
var ErrNoToolCall = errors.New("no tool call in model response")

// Chain forces a chat model to answer through a single tool whose arguments
// decode into TOutput.
type Chain[TInput, TOutput any] struct {
	PromptBuilder PromptBuilder[TInput]
	ChatModel     model.ToolCallingChatModel
	ToolInfo      *schema.ToolInfo

	attempts    uint64
	backoffBase time.Duration
}

type ChainOption func(*chainOptions)

type chainOptions struct {
	attempts    uint64
	backoffBase time.Duration
}

// WithRetry retries failed model calls. attempts counts the first call.
func WithRetry(attempts uint64, base time.Duration) ChainOption {
	return func(o *chainOptions) {
		o.attempts = attempts
		o.backoffBase = base
	}
}

func NewChain[TInput, TOutput any](
	chatModel model.ToolCallingChatModel,
	promptBuilder PromptBuilder[TInput],
	toolName string,
	toolDesc string,
	opts ...ChainOption,
) (*Chain[TInput, TOutput], error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	toolInfo, err := utils.GoStruct2ToolInfo[TOutput](toolName, toolDesc)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	options := chainOptions{attempts: 1, backoffBase: time.Second}
	for _, opt := range opts {
		opt(&options)
	}
	if options.attempts == 0 {
		options.attempts = 1
	}
	return &Chain[TInput, TOutput]{
		PromptBuilder: promptBuilder,
		ChatModel:     chatModel,
		ToolInfo:      toolInfo,
		attempts:      options.attempts,
		backoffBase:   options.backoffBase,
	}, nil
}

func (s *Chain[TInput, TOutput]) Invoke(ctx context.Context, input TInput) (*TOutput, error) {
	messages, err := s.PromptBuilder(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("build prompt failed: %w", err)
	}

	var response *schema.Message
	err = retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		resp, callErr := s.ChatModel.Generate(ctx, messages,
			model.WithTools([]*schema.ToolInfo{s.ToolInfo}),
			model.WithToolChoice(schema.ToolChoiceForced, s.ToolInfo.Name),
		)
		if callErr != nil {
			return retry.RetryableError(fmt.Errorf("call model failed: %w", callErr))
		}
		response = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return DecodeToolCall[TOutput](response)
}

func (s *Chain[TInput, TOutput]) backoff() retry.Backoff {
	base := s.backoffBase
	if base <= 0 {
		base = time.Second
	}
	return retry.WithMaxRetries(s.attempts-1, retry.NewExponential(base))
}

// DecodeToolCall decodes the arguments of the first tool call in msg.
func DecodeToolCall[TOutput any](msg *schema.Message) (*TOutput, error) {
	if msg == nil || len(msg.ToolCalls) == 0 {
		content := ""
		if msg != nil {
			content = msg.Content
		}
		return nil, fmt.Errorf("%w: %s", ErrNoToolCall, content)
	}
	var result TOutput
	if err := sonic.UnmarshalString(msg.ToolCalls[0].Function.Arguments, &result); err != nil {
		return nil, fmt.Errorf("parse ToolCall arguments failed: %w", err)
	}
	return &result, nil
}

func (s *Chain[TInput, TOutput]) GetToolInfo() *schema.ToolInfo {
	return s.ToolInfo
}
