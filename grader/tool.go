package grader

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/formpilot/structured"
)

const (
	gradeToolName        = "grade_field_value"
	gradeToolDescription = "Decide whether a valid form value looks unusual and needs a yes/no confirmation from the user."
)

// SystemPrompt instructs the model to grade one field value.
const SystemPrompt = `Bạn đánh giá một giá trị của trường form.

Nguyên tắc:
- Nếu giá trị hợp lệ nhưng có dấu hiệu bất thường (ví dụ: tuổi < 18 hoặc > 90, địa chỉ quá ngắn, email miền lạ, số điện thoại sai định dạng/độ dài, họ tên chứa chữ số, ngày sinh ngoài khoảng), đặt is_suspicious=true.
- Tạo một câu hỏi xác nhận rất ngắn, lịch sự, dễ trả lời "đúng/sai"; không phỏng đoán.
- Nếu có thể, đưa ra một gợi ý sửa ngắn gọn, thực tế trong "hint".
- Không lặp lại toàn bộ hướng dẫn; không thêm ký tự trang trí.

Gọi công cụ '%s' với kết quả.`

type gradeOutput struct {
	IsSuspicious    bool   `json:"is_suspicious" jsonschema:"required,description=True when the value is valid but unusual"`
	ConfirmQuestion string `json:"confirm_question,omitempty" jsonschema:"description=Short polite yes/no confirmation question in Vietnamese"`
	Hint            string `json:"hint,omitempty" jsonschema:"description=Optional short correction hint"`
}

// ToolBasedGrader asks a chat model to grade the value through a forced tool call.
type ToolBasedGrader struct {
	chain *structured.Chain[*Request, gradeOutput]
}

func NewToolBasedGrader(chatModel model.ToolCallingChatModel, opts ...structured.ChainOption) (*ToolBasedGrader, error) {
	chain, err := structured.NewChain[*Request, gradeOutput](
		chatModel,
		buildGradePrompt,
		gradeToolName,
		gradeToolDescription,
		opts...,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedGrader{chain: chain}, nil
}

func (g *ToolBasedGrader) Grade(ctx context.Context, req *Request) (*Verdict, error) {
	out, err := g.chain.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("grade %s: %w", req.Field.Name, err)
	}
	return &Verdict{
		Suspicious: out.IsSuspicious,
		Message:    out.ConfirmQuestion,
		Hint:       out.Hint,
	}, nil
}

func buildGradePrompt(ctx context.Context, req *Request) ([]*schema.Message, error) {
	content := fmt.Sprintf("Field: %s (%s)\nType: %s\nValue: %s\nContext: %s",
		req.Field.Name, req.Field.DisplayLabel(), fieldType(req), req.Value, req.FormID)
	return []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(SystemPrompt, gradeToolName)),
		schema.UserMessage(content),
	}, nil
}

func fieldType(req *Request) string {
	if req.Field.Type == "" {
		return "string"
	}
	return string(req.Field.Type)
}
