package patch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testField struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
}

type testDoc struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Tags   []string    `json:"tags,omitempty"`
	Fields []testField `json:"fields"`
}

func TestPointerPaths(t *testing.T) {
	paths := PointerPaths[testDoc]("id")
	assert.ElementsMatch(t, []string{
		"/title",
		"/tags", "/tags/-",
		"/fields", "/fields/-", "/fields/-/name", "/fields/-/label",
	}, paths)
}

func TestApply(t *testing.T) {
	base := testDoc{
		ID:    "base",
		Title: "Đơn cũ",
		Fields: []testField{
			{Name: "full_name", Label: "Họ tên"},
			{Name: "phone"},
		},
	}
	allowed := PointerPaths[testDoc]("id")

	t.Run("overlay", func(t *testing.T) {
		got, err := Apply(base, []Operation{
			{Op: OperationReplace, Path: "/title", Value: "Đơn mới"},
			{Op: OperationReplace, Path: "/fields/1/label", Value: "Số điện thoại"},
			{Op: OperationAdd, Path: "/fields/-", Value: map[string]any{"name": "email"}},
			{Op: OperationRemove, Path: "/tags"},
		}, allowed)
		require.NoError(t, err)

		want := testDoc{
			ID:    "base",
			Title: "Đơn mới",
			Fields: []testField{
				{Name: "full_name", Label: "Họ tên"},
				{Name: "phone", Label: "Số điện thoại"},
				{Name: "email"},
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, "", base.Fields[1].Label, "input must not be mutated")
	})

	t.Run("disallowed path", func(t *testing.T) {
		_, err := Apply(base, []Operation{{Op: OperationReplace, Path: "/id", Value: "other"}}, allowed)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"/id"`)
	})

	t.Run("move needs allowed from", func(t *testing.T) {
		_, err := Apply(base, []Operation{{Op: OperationMove, Path: "/title"}}, allowed)
		assert.Error(t, err)
	})

	t.Run("no operations", func(t *testing.T) {
		got, err := Apply(base, nil, allowed)
		require.NoError(t, err)
		assert.Equal(t, base, got)
	})

	t.Run("failed test operation", func(t *testing.T) {
		_, err := Apply(base, []Operation{{Op: OperationTest, Path: "/title", Value: "khác"}}, allowed)
		assert.Error(t, err)
	})
}

func TestValidatePatchOperations(t *testing.T) {
	allowed := map[string]bool{"/fields/-/label": true, "/labels/*": true, "/fields/-": true}
	for _, op := range []Operation{
		{Op: OperationReplace, Path: "/fields/12/label"},
		{Op: OperationAdd, Path: "/fields/-"},
		{Op: OperationAdd, Path: "/labels/vi"},
		{Op: OperationCopy, From: "/fields/0/label", Path: "/fields/1/label"},
	} {
		assert.NoError(t, ValidatePatchOperations([]Operation{op}, allowed), op.Path)
	}
	for _, op := range []Operation{
		{Op: OperationReplace, Path: "/fields/x/label"},
		{Op: OperationReplace, Path: "/fields/0/name"},
		{Op: OperationAdd, Path: "/labels/vi/short"},
		{Op: OperationMove, From: "/title", Path: "/fields/0/label"},
	} {
		assert.Error(t, ValidatePatchOperations([]Operation{op}, allowed), op.Path)
	}
	assert.NoError(t, ValidatePatchOperations([]Operation{{Op: OperationRemove, Path: "/anything"}}, nil))
}
