package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/formpilot/form"
	"github.com/tbxark/formpilot/structured/structuredtest"
	"github.com/tbxark/formpilot/types"
)

func testForm(t *testing.T) *form.Form {
	t.Helper()
	f, err := form.Compile(form.Definition{
		ID:    "don_xin_viec",
		Title: "Đơn xin việc",
		Fields: []types.FieldDefinition{
			{Name: "full_name", Label: "Họ và tên", Example: "Ví dụ: Nguyễn Văn An"},
			{Name: "email", Label: "Email", Type: types.FieldEmail, Required: types.Bool(false)},
		},
	})
	require.NoError(t, err)
	return f
}

func TestLocalGenerator(t *testing.T) {
	questions, err := LocalGenerator{}.Questions(context.Background(), testForm(t))
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, Question{
		Name:     "full_name",
		Ask:      "Bác cho cháu xin họ và tên ạ.",
		Reprompt: "Cháu xin phép chưa nghe rõ, bác nhắc lại họ và tên giúp cháu với ạ.",
		Example:  "Nguyễn Văn An",
	}, questions[0])
	assert.Equal(t, "Bác cho cháu xin email ạ. (không bắt buộc, bác có thể bỏ qua).", questions[1].Ask)
	assert.Empty(t, questions[1].Example)
}

func TestCleanExample(t *testing.T) {
	assert.Equal(t, "0912345678", CleanExample("Ví dụ: 0912345678"))
	assert.Equal(t, "0912345678", CleanExample("Ví dụ : 0912345678"))
	assert.Equal(t, "", CleanExample("  "))
}

func TestToolBasedGenerator(t *testing.T) {
	fake := &structuredtest.ChatModel{Arguments: `{"questions":[
		{"name":"full_name","ask":"Bác tên là gì ạ?","reprompt":"Bác nói lại tên giúp cháu nhé.","example":"Ví dụ: Trần Thị Bình"},
		{"name":"unknown","ask":"?","reprompt":"?"}
	]}`}
	g, err := NewToolBasedGenerator(fake)
	require.NoError(t, err)

	questions, err := g.Questions(context.Background(), testForm(t))
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "Bác tên là gì ạ?", questions[0].Ask)
	assert.Equal(t, "Trần Thị Bình", questions[0].Example)
	assert.Equal(t, FallbackQuestion(testForm(t).Fields[1].FieldDefinition), questions[1])

	prompt := fake.LastPrompt()
	require.Len(t, prompt, 2)
	assert.Contains(t, prompt[0].Content, "questions_response")
	assert.Contains(t, prompt[1].Content, `"form_id": "don_xin_viec"`)
}

func TestFailbackGenerator(t *testing.T) {
	broken, err := NewToolBasedGenerator(&structuredtest.ChatModel{Err: errors.New("quota")})
	require.NoError(t, err)

	questions, err := NewFailbackGenerator(broken, LocalGenerator{}).Questions(context.Background(), testForm(t))
	require.NoError(t, err)
	assert.Equal(t, "Bác cho cháu xin họ và tên ạ.", questions[0].Ask)

	_, err = NewFailbackGenerator(broken).Questions(context.Background(), testForm(t))
	assert.Error(t, err)
}

func TestCachedGenerator(t *testing.T) {
	fake := &structuredtest.ChatModel{Arguments: `{"questions":[
		{"name":"full_name","ask":"Bác tên là gì ạ?","reprompt":"Bác nói lại tên giúp cháu nhé."},
		{"name":"email","ask":"Bác có email không ạ?","reprompt":"Bác đọc lại email giúp cháu."}
	]}`}
	remote, err := NewToolBasedGenerator(fake)
	require.NoError(t, err)
	g, err := NewCachedGenerator(remote, 4)
	require.NoError(t, err)
	f := testForm(t)

	first, err := g.Questions(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "Bác cho cháu xin họ và tên ạ.", first[0].Ask, "miss answers with fallback wording")

	g.Wait()
	second, err := g.Questions(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "Bác tên là gì ạ?", second[0].Ask)
	assert.Equal(t, 1, fake.Calls())
}

func TestCachedGeneratorRemoteFailure(t *testing.T) {
	remote, err := NewToolBasedGenerator(&structuredtest.ChatModel{Err: errors.New("down")})
	require.NoError(t, err)
	g, err := NewCachedGenerator(remote, 0)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		questions, err := g.Questions(context.Background(), testForm(t))
		require.NoError(t, err)
		assert.Equal(t, "Bác cho cháu xin họ và tên ạ.", questions[0].Ask)
		g.Wait()
	}
}

func TestLocalPreviewer(t *testing.T) {
	p, err := LocalPreviewer{}.Preview(context.Background(), testForm(t), map[string]string{"full_name": "Nguyễn Văn An"})
	require.NoError(t, err)
	assert.Equal(t, []types.PreviewRow{
		{Label: "Họ và tên", Value: "Nguyễn Văn An"},
		{Label: "Email", Value: ""},
	}, p.Rows)
	assert.Equal(t, "Họ và tên: Nguyễn Văn An Email: ", p.Prose)
}

func TestToolBasedPreviewer(t *testing.T) {
	fake := &structuredtest.ChatModel{Arguments: `{"preview":[{"label":"Họ và tên","value":" Nguyễn Văn An "}],"prose":"Tôi tên là Nguyễn Văn An."}`}
	p, err := NewToolBasedPreviewer(fake)
	require.NoError(t, err)

	out, err := p.Preview(context.Background(), testForm(t), map[string]string{"full_name": "Nguyễn Văn An"})
	require.NoError(t, err)
	assert.Equal(t, []types.PreviewRow{{Label: "Họ và tên", Value: "Nguyễn Văn An"}}, out.Rows)
	assert.Equal(t, "Tôi tên là Nguyễn Văn An.", out.Prose)
	assert.Contains(t, fake.LastPrompt()[1].Content, "Form title: Đơn xin việc")

	empty, err := NewToolBasedPreviewer(&structuredtest.ChatModel{Arguments: `{"preview":[],"prose":""}`})
	require.NoError(t, err)
	out, err = NewFailbackPreviewer(empty, LocalPreviewer{}).Preview(context.Background(), testForm(t), map[string]string{})
	require.NoError(t, err)
	assert.Len(t, out.Rows, 2)
}
