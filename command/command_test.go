package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/formpilot/structured/structuredtest"
)

func TestLocalParser(t *testing.T) {
	tests := []struct {
		answer string
		want   Reply
	}{
		{"đúng", Accept},
		{"Đúng rồi cháu ạ", Accept},
		{"ĐÚNG", Accept},
		{"dung roi", Accept},
		{"Vâng.", Accept},
		{"ừ", Accept},
		{"có", Accept},
		{"yes", Accept},
		{"OK!", Accept},
		{"sai", Reject},
		{"sai rồi", Reject},
		{"không", Reject},
		{"Không đúng", Reject},
		{"chưa đúng đâu", Reject},
		{"dạ không", Reject},
		{"no", Reject},
		{"hủy", Cancel},
		{"Thoát", Cancel},
		{"dừng lại", Cancel},
		{"", Unknown},
		{"con mèo", Unknown},
		{"năm mươi", Unknown},
	}
	p := NewLocalParser()
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, err := p.ParseReply(context.Background(), &Request{Answer: tt.answer})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "chua dung", Fold("  Chưa   ĐÚNG!! "))
	assert.Equal(t, "nguyen van an", Fold("Nguyễn Văn An"))
}

func TestIsCancel(t *testing.T) {
	assert.True(t, IsCancel("Hủy bỏ"))
	assert.True(t, IsCancel("cancel"))
	assert.False(t, IsCancel("Nguyễn Văn Hùng"))
}

func TestToolBasedParser(t *testing.T) {
	fake := &structuredtest.ChatModel{Arguments: `{"reply":"accept"}`}
	p, err := NewToolBasedParser(fake)
	require.NoError(t, err)

	got, err := p.ParseReply(context.Background(), &Request{Question: "Bác 5 tuổi thật ạ?", Value: "5", Answer: "chuẩn rồi"})
	require.NoError(t, err)
	assert.Equal(t, Accept, got)
	assert.Contains(t, fake.LastPrompt()[1].Content, "Answer: chuẩn rồi")

	bad, err := NewToolBasedParser(&structuredtest.ChatModel{Arguments: `{"reply":"maybe"}`})
	require.NoError(t, err)
	_, err = bad.ParseReply(context.Background(), &Request{Answer: "hmm"})
	assert.Error(t, err)
}

func TestFailbackParser(t *testing.T) {
	model, err := NewToolBasedParser(&structuredtest.ChatModel{Arguments: `{"reply":"reject"}`})
	require.NoError(t, err)
	broken, err := NewToolBasedParser(&structuredtest.ChatModel{Err: errors.New("down")})
	require.NoError(t, err)
	ctx := context.Background()

	got, err := NewFailbackParser(NewLocalParser(), model).ParseReply(ctx, &Request{Answer: "đúng"})
	require.NoError(t, err)
	assert.Equal(t, Accept, got)

	got, err = NewFailbackParser(NewLocalParser(), model).ParseReply(ctx, &Request{Answer: "nhập lại giúp bác"})
	require.NoError(t, err)
	assert.Equal(t, Reject, got)

	got, err = NewFailbackParser(NewLocalParser(), broken).ParseReply(ctx, &Request{Answer: "hmm"})
	require.NoError(t, err)
	assert.Equal(t, Unknown, got)

	_, err = NewFailbackParser(broken).ParseReply(ctx, &Request{Answer: "hmm"})
	assert.Error(t, err)
}
