package intent

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

func testRequest(t *testing.T, query string) (*form.MemoryRegistry, *Request) {
	t.Helper()
	reg, err := form.Build([]form.Definition{
		{
			ID:      "to_khai_cccd",
			Title:   "Tờ khai căn cước công dân",
			Aliases: []string{"căn cước", "cccd"},
			Fields:  []types.FieldDefinition{{Name: "full_name", Label: "Họ và tên"}},
		},
		{
			ID:     "don_xin_viec",
			Title:  "Đơn xin việc",
			Fields: []types.FieldDefinition{{Name: "full_name", Label: "Họ và tên"}},
		},
	})
	require.NoError(t, err)
	return reg, &Request{Query: query, Forms: reg.List()}
}

func TestRegistrySelector(t *testing.T) {
	reg, req := testRequest(t, "tôi bị mất CCCD")
	id, err := RegistrySelector{Registry: reg}.SelectForm(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "to_khai_cccd", id)

	req.Query = "con tôi cần đi làm"
	id, err = RegistrySelector{Registry: reg}.SelectForm(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestToolBasedSelector(t *testing.T) {
	fake := &structuredtest.ChatModel{Arguments: `{"form_id":"don_xin_viec"}`}
	s, err := NewToolBasedSelector(fake)
	require.NoError(t, err)
	_, req := testRequest(t, "con tôi cần đi làm")

	id, err := s.SelectForm(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "don_xin_viec", id)
	prompt := fake.LastPrompt()
	assert.Contains(t, prompt[0].Content, "select_form")
	assert.Contains(t, prompt[1].Content, `"form_id": "to_khai_cccd"`)
	assert.Contains(t, prompt[1].Content, "User request: con tôi cần đi làm")

	for _, args := range []string{`{"form_id":"none"}`, `{"form_id":"giay_khai_sinh"}`} {
		s, err := NewToolBasedSelector(&structuredtest.ChatModel{Arguments: args})
		require.NoError(t, err)
		id, err := s.SelectForm(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, id, args)
	}
}

func TestFailbackSelector(t *testing.T) {
	reg, req := testRequest(t, "con tôi cần đi làm")
	broken, err := NewToolBasedSelector(&structuredtest.ChatModel{Err: errors.New("quota")})
	require.NoError(t, err)
	picker, err := NewToolBasedSelector(&structuredtest.ChatModel{Arguments: `{"form_id":"don_xin_viec"}`})
	require.NoError(t, err)

	id, err := NewFailbackSelector(RegistrySelector{Registry: reg}, broken, picker).SelectForm(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "don_xin_viec", id)

	id, err = NewFailbackSelector(RegistrySelector{Registry: reg}, broken).SelectForm(context.Background(), req)
	assert.Error(t, err)
	assert.Empty(t, id)
}
