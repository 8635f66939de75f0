package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalog = "../../forms/form_samples.json"

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	for _, name := range []string{"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "REDIS_URL"} {
		t.Setenv(name, "")
	}
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env-file", "", "--catalog", catalog, "--log-level", "error"}, args...))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestFormsCommand(t *testing.T) {
	out := run(t, "", "forms")
	assert.Contains(t, out, "Đơn xin việc")
	assert.Contains(t, out, "(to_khai_cap_lai_cccd)")
	assert.Contains(t, out, "7 trường")
}

func TestChatCommand(t *testing.T) {
	out := run(t, "Nguyễn Văn An\n/huỷ\n", "chat", "tôi muốn làm đơn xin việc")
	assert.Contains(t, out, `Mình cùng điền "Đơn xin việc" nhé.`)
	assert.Contains(t, out, "[2/7]")
	assert.Contains(t, out, "Cháu đã huỷ phiên điền đơn.")
}

func TestChatRejectsBadFlags(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env-file", "", "--catalog", catalog, "--store", "etcd", "forms"})
	assert.Error(t, cmd.Execute())
}
