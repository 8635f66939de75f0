// Package agent exposes a form-filling conversation as an eino adk agent.
package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
)

var _ adk.Agent = (*Agent)(nil)

type Agent struct {
	name        string
	description string
	flow        *FormFlow
}

func NewAgent(name, description string, flow *FormFlow) *Agent {
	return &Agent{
		name:        name,
		description: description,
		flow:        flow,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

// Run answers the last user message of the input. The conversation is taken
// from the context, see WithConversation.
func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			if e := recover(); e != nil {
				gen.Send(&adk.AgentEvent{Err: fmt.Errorf("recover from panic: %v", e)})
			}
			gen.Close()
		}()
		msg := lastUserMessage(input.Messages)
		if msg == nil {
			gen.Send(&adk.AgentEvent{Err: fmt.Errorf("no user message in input")})
			return
		}
		resp, err := a.flow.Invoke(ctx, msg.Content)
		if err != nil {
			gen.Send(&adk.AgentEvent{Err: fmt.Errorf("form flow failed: %w", err)})
			return
		}
		gen.Send(&adk.AgentEvent{
			AgentName: a.name,
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					Message: schema.AssistantMessage(resp.Message, nil),
					Role:    schema.Assistant,
				},
				CustomizedOutput: resp,
			},
		})
	}()
	return iter
}

func lastUserMessage(msgs []adk.Message) *schema.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i] != nil && msgs[i].Role == schema.User {
			return msgs[i]
		}
	}
	return nil
}
