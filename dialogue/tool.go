package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/formpilot/form"
	"github.com/tbxark/formpilot/structured"
	"github.com/tbxark/formpilot/types"
)

// DefaultQuestionSystemPrompt asks for elder-friendly Vietnamese questions.
const DefaultQuestionSystemPrompt = `Bạn là trợ lý thân thiện giúp người cao tuổi điền form bằng tiếng Việt.

Yêu cầu về câu hỏi:
- Xưng hô "cháu" với "bác", giọng điệu ấm áp, kính trọng.
- Mỗi câu hỏi rất ngắn, chỉ một ý, dễ nghe (khoảng 8–16 từ).
- Dùng từ phổ thông, tránh thuật ngữ. Tránh câu ghép dài.
- Trường không bắt buộc: nói rõ "(không bắt buộc, bác có thể bỏ qua)".
- Nếu có ví dụ, ghi ví dụ ngắn vào "example", không kèm chữ "Ví dụ:".
- Viết sẵn câu nhắc lại (reprompt) lịch sự, khích lệ, không đổ lỗi.

Gọi công cụ '%s' với một câu hỏi cho mỗi trường, giữ nguyên "name".`

// DefaultPreviewSystemPrompt asks for a label/value table and a short prose summary.
const DefaultPreviewSystemPrompt = `Từ các câu trả lời đã hoàn tất, tạo:
1) preview: mảng các cặp {label gốc, value}, giữ nguyên thứ tự trường trong form.
2) prose: một đoạn văn hành chính ngắn, mạch lạc, kính trọng (không markdown), tổng hợp nội dung để in.

Yêu cầu:
- Không bịa thêm thông tin, không suy diễn. Bỏ qua trường trống/không bắt buộc nếu người dùng chưa cung cấp.
- Giữ dấu tiếng Việt, dùng câu ngắn, rõ ý.

Gọi công cụ '%s' với kết quả.`

const (
	questionsToolName = "questions_response"
	previewToolName   = "preview_response"
)

type questionsOutput struct {
	Questions []Question `json:"questions" jsonschema:"required,description=One question per form field in form order"`
}

type toolOptions struct {
	systemPrompt string
	chainOpts    []structured.ChainOption
}

type ToolOption func(*toolOptions)

// WithSystemPrompt overrides the system prompt. A "%s" in it is replaced
// with the tool name.
func WithSystemPrompt(prompt string) ToolOption {
	return func(o *toolOptions) {
		o.systemPrompt = prompt
	}
}

func WithChainOptions(opts ...structured.ChainOption) ToolOption {
	return func(o *toolOptions) {
		o.chainOpts = append(o.chainOpts, opts...)
	}
}

func newToolOptions(defaultPrompt string, opts []ToolOption) toolOptions {
	o := toolOptions{systemPrompt: defaultPrompt}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func systemMessage(prompt, toolName string) *schema.Message {
	if strings.Contains(prompt, "%s") {
		prompt = fmt.Sprintf(prompt, toolName)
	}
	return schema.SystemMessage(prompt)
}

// ToolBasedGenerator asks a chat model to word the questions for a whole form.
// Fields the model leaves out keep the fallback wording.
type ToolBasedGenerator struct {
	chain *structured.Chain[*form.Form, questionsOutput]
}

func NewToolBasedGenerator(chatModel model.ToolCallingChatModel, opts ...ToolOption) (*ToolBasedGenerator, error) {
	o := newToolOptions(DefaultQuestionSystemPrompt, opts)
	chain, err := structured.NewChain[*form.Form, questionsOutput](
		chatModel,
		func(ctx context.Context, f *form.Form) ([]*schema.Message, error) {
			content, err := formatFormMetadata(f)
			if err != nil {
				return nil, err
			}
			return []*schema.Message{
				systemMessage(o.systemPrompt, questionsToolName),
				schema.UserMessage(content),
			}, nil
		},
		questionsToolName,
		"Return the question wording for every field of the form.",
		o.chainOpts...,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedGenerator{chain: chain}, nil
}

func (g *ToolBasedGenerator) Questions(ctx context.Context, f *form.Form) ([]Question, error) {
	out, err := g.chain.Invoke(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("generate questions for %s: %w", f.ID, err)
	}
	byName := make(map[string]Question, len(out.Questions))
	for _, q := range out.Questions {
		byName[q.Name] = q
	}
	questions := make([]Question, len(f.Fields))
	for i, field := range f.Fields {
		fallback := FallbackQuestion(field.FieldDefinition)
		q, ok := byName[field.Name]
		if !ok {
			questions[i] = fallback
			continue
		}
		if strings.TrimSpace(q.Ask) == "" {
			q.Ask = fallback.Ask
		}
		if strings.TrimSpace(q.Reprompt) == "" {
			q.Reprompt = fallback.Reprompt
		}
		q.Example = CleanExample(q.Example)
		if q.Example == "" {
			q.Example = fallback.Example
		}
		questions[i] = q
	}
	return questions, nil
}

type previewInput struct {
	form    *form.Form
	answers map[string]string
}

// ToolBasedPreviewer asks a chat model for the preview table and prose.
type ToolBasedPreviewer struct {
	chain *structured.Chain[previewInput, Preview]
}

func NewToolBasedPreviewer(chatModel model.ToolCallingChatModel, opts ...ToolOption) (*ToolBasedPreviewer, error) {
	o := newToolOptions(DefaultPreviewSystemPrompt, opts)
	chain, err := structured.NewChain[previewInput, Preview](
		chatModel,
		func(ctx context.Context, in previewInput) ([]*schema.Message, error) {
			content, err := formatAnswers(in.form, in.answers)
			if err != nil {
				return nil, err
			}
			return []*schema.Message{
				systemMessage(o.systemPrompt, previewToolName),
				schema.UserMessage(content),
			}, nil
		},
		previewToolName,
		"Return the preview rows and a short prose summary of the completed form.",
		o.chainOpts...,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedPreviewer{chain: chain}, nil
}

func (p *ToolBasedPreviewer) Preview(ctx context.Context, f *form.Form, answers map[string]string) (*Preview, error) {
	out, err := p.chain.Invoke(ctx, previewInput{form: f, answers: answers})
	if err != nil {
		return nil, fmt.Errorf("generate preview for %s: %w", f.ID, err)
	}
	if len(out.Rows) == 0 {
		return nil, fmt.Errorf("generate preview for %s: empty preview", f.ID)
	}
	rows := make([]types.PreviewRow, 0, len(out.Rows))
	for _, r := range out.Rows {
		rows = append(rows, types.PreviewRow{Label: strings.TrimSpace(r.Label), Value: strings.TrimSpace(r.Value)})
	}
	return &Preview{Rows: rows, Prose: strings.TrimSpace(out.Prose)}, nil
}
