package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tbxark/formpilot/command"
	"github.com/tbxark/formpilot/engine"
	"github.com/tbxark/formpilot/form"
	"github.com/tbxark/formpilot/intent"
	"github.com/tbxark/formpilot/types"
)

const (
	MessageCancelled   = "Cháu đã huỷ phiên điền đơn. Khi cần bác cứ gọi cháu nhé."
	MessageFinished    = "Cháu đã lưu đơn của bác. Cảm ơn bác ạ!"
	MessageNeedYesNo   = "Bác trả lời giúp cháu \"đúng\" hoặc \"không\" ạ."
	MessageAskFinalize = "Nếu mọi thứ đã đúng, bác trả lời \"đúng\" để hoàn tất ạ."
)

// Engine is the part of engine.Engine a conversation drives.
type Engine interface {
	Forms() []form.Summary
	StartSession(ctx context.Context, formQuery string) (*engine.Result, error)
	SubmitAnswer(ctx context.Context, sessionID, raw string) (*engine.Result, error)
	ConfirmDecision(ctx context.Context, sessionID string, accepted bool) (*engine.Result, error)
	Current(ctx context.Context, sessionID string) (*engine.Result, error)
	Preview(ctx context.Context, sessionID string) (*engine.PreviewResult, error)
	Finish(ctx context.Context, sessionID string) error
}

var _ Engine = (*engine.Engine)(nil)

// Response is what a conversation says back after one user message.
type Response struct {
	Message   string
	SessionID string
	Result    *engine.Result
	Preview   *engine.PreviewResult
	// Closed is set once the session was finished or cancelled.
	Closed bool
}

// FormFlow turns free-text messages into engine calls. The first message of
// a conversation picks the form; later ones answer fields, confirm flagged
// values and finally approve the preview.
type FormFlow struct {
	engine   Engine
	parser   command.Parser
	selector intent.Selector
	sessions scoped[string]
}

type FlowOption func(*FormFlow)

// WithParser classifies confirmation replies. Keyword matching is the default.
func WithParser(p command.Parser) FlowOption {
	return func(f *FormFlow) {
		if p != nil {
			f.parser = p
		}
	}
}

// WithSelector picks a form when the first message names none of the
// catalog ids, aliases or titles.
func WithSelector(s intent.Selector) FlowOption {
	return func(f *FormFlow) {
		f.selector = s
	}
}

// WithBindings stores which session each conversation is filling.
func WithBindings(c Cache[string]) FlowOption {
	return func(f *FormFlow) {
		if c != nil {
			f.sessions.cache = c
		}
	}
}

func NewFormFlow(e Engine, opts ...FlowOption) *FormFlow {
	f := &FormFlow{
		engine:   e,
		parser:   command.NewLocalParser(),
		sessions: scoped[string]{cache: NewMemoryCache[string](), namespace: "agent:session"},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SessionID returns the session bound to the conversation in ctx.
func (f *FormFlow) SessionID(ctx context.Context) (string, bool, error) {
	return f.sessions.Get(ctx)
}

func (f *FormFlow) Invoke(ctx context.Context, input string) (*Response, error) {
	input = strings.TrimSpace(input)
	sessionID, ok, err := f.sessions.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session binding: %w", err)
	}
	if !ok {
		return f.start(ctx, input)
	}

	current, err := f.engine.Current(ctx, sessionID)
	if errors.Is(err, types.ErrSessionNotFound) {
		slog.Info("Bound session expired", "conversation", conversationOrDefault(ctx), "session_id", sessionID)
		if err := f.sessions.Del(ctx); err != nil {
			return nil, err
		}
		return f.start(ctx, input)
	}
	if err != nil {
		return nil, err
	}
	if isCancelCommand(input) {
		return f.close(ctx, sessionID, MessageCancelled)
	}

	switch current.Stage {
	case types.StageAsk:
		res, err := f.engine.SubmitAnswer(ctx, sessionID, input)
		if err != nil {
			return nil, err
		}
		return f.reply(ctx, res)
	case types.StageConfirm:
		return f.confirm(ctx, current, input)
	default:
		return f.finalize(ctx, current, input)
	}
}

func (f *FormFlow) start(ctx context.Context, input string) (*Response, error) {
	if input == "" || isCancelCommand(input) {
		return &Response{Message: f.formMenu("Bác muốn điền mẫu đơn nào ạ?")}, nil
	}
	res, err := f.engine.StartSession(ctx, input)
	if errors.Is(err, types.ErrFormNotFound) && f.selector != nil {
		res, err = f.startSelected(ctx, input)
	}
	if errors.Is(err, types.ErrFormNotFound) {
		return &Response{Message: f.formMenu("Cháu chưa tìm thấy mẫu đơn phù hợp.")}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := f.sessions.Set(ctx, res.SessionID); err != nil {
		return nil, fmt.Errorf("bind session: %w", err)
	}
	out, err := f.reply(ctx, res)
	if err != nil {
		return nil, err
	}
	out.Message = fmt.Sprintf("Mình cùng điền \"%s\" nhé.\n%s", res.FormTitle, out.Message)
	return out, nil
}

func (f *FormFlow) startSelected(ctx context.Context, input string) (*engine.Result, error) {
	id, err := f.selector.SelectForm(ctx, &intent.Request{Query: input, Forms: f.engine.Forms()})
	if err != nil {
		slog.Warn("Form selection failed", "error", err)
	}
	if id == "" {
		return nil, types.ErrFormNotFound
	}
	slog.Info("Form selected from request", "form_id", id)
	return f.engine.StartSession(ctx, id)
}

func (f *FormFlow) confirm(ctx context.Context, current *engine.Result, input string) (*Response, error) {
	reply, err := f.parser.ParseReply(ctx, &command.Request{
		Question: current.Message,
		Value:    current.PendingValue,
		Answer:   input,
	})
	if err != nil {
		slog.Warn("Reply parsing failed", "session_id", current.SessionID, "error", err)
		reply = command.Unknown
	}
	switch reply {
	case command.Accept, command.Reject:
		res, err := f.engine.ConfirmDecision(ctx, current.SessionID, reply == command.Accept)
		if err != nil {
			return nil, err
		}
		return f.reply(ctx, res)
	case command.Cancel:
		return f.close(ctx, current.SessionID, MessageCancelled)
	default:
		return &Response{
			Message:   MessageNeedYesNo + "\n" + current.Text(),
			SessionID: current.SessionID,
			Result:    current,
		}, nil
	}
}

// finalize handles messages after every field is resolved: approval
// finishes the session, anything else shows the preview again.
func (f *FormFlow) finalize(ctx context.Context, current *engine.Result, input string) (*Response, error) {
	reply, err := f.parser.ParseReply(ctx, &command.Request{Question: MessageAskFinalize, Answer: input})
	if err != nil {
		reply = command.Unknown
	}
	switch reply {
	case command.Accept:
		return f.close(ctx, current.SessionID, MessageFinished)
	case command.Cancel:
		return f.close(ctx, current.SessionID, MessageCancelled)
	default:
		return f.reply(ctx, current)
	}
}

// reply renders res and, once the form is complete, the preview with it.
func (f *FormFlow) reply(ctx context.Context, res *engine.Result) (*Response, error) {
	out := &Response{Message: res.Text(), SessionID: res.SessionID, Result: res}
	if !res.Done {
		return out, nil
	}
	preview, err := f.engine.Preview(ctx, res.SessionID)
	if err != nil {
		var incomplete *engine.IncompleteError
		if errors.As(err, &incomplete) {
			out.Message = incomplete.Error()
			return out, nil
		}
		return nil, err
	}
	out.Preview = preview
	out.Message = res.Message + "\n" + RenderPreview(preview) + "\n" + MessageAskFinalize
	return out, nil
}

func (f *FormFlow) close(ctx context.Context, sessionID, message string) (*Response, error) {
	if err := f.engine.Finish(ctx, sessionID); err != nil && !errors.Is(err, types.ErrSessionNotFound) {
		return nil, err
	}
	if err := f.sessions.Del(ctx); err != nil {
		return nil, err
	}
	return &Response{Message: message, SessionID: sessionID, Closed: true}, nil
}

func (f *FormFlow) formMenu(lead string) string {
	var sb strings.Builder
	sb.WriteString(lead)
	sb.WriteString(" Các mẫu hiện có:")
	for _, s := range f.engine.Forms() {
		fmt.Fprintf(&sb, "\n- %s", s.Title)
	}
	return sb.String()
}

// RenderPreview lists the collected answers followed by the prose summary.
func RenderPreview(p *engine.PreviewResult) string {
	var sb strings.Builder
	sb.WriteString("Bác xem lại thông tin:")
	for _, row := range p.Rows {
		value := row.Value
		if value == "" {
			value = "(bỏ trống)"
		}
		fmt.Fprintf(&sb, "\n- %s: %s", row.Label, value)
	}
	if p.Prose != "" {
		sb.WriteString("\n\n")
		sb.WriteString(p.Prose)
	}
	return sb.String()
}

// isCancelCommand accepts only slash commands while a field is being
// answered, so that a name such as "Huy" is not taken as a cancel.
func isCancelCommand(input string) bool {
	rest, ok := strings.CutPrefix(input, "/")
	return ok && command.IsCancel(rest)
}
