package form

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/formpilot/patch"
	"github.com/tbxark/formpilot/types"
)

func TestLoadCatalogJSON(t *testing.T) {
	reg, err := LoadCatalog("testdata/catalog.json")
	require.NoError(t, err)

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "don_xin_viec", list[0].ID)
	assert.Equal(t, 7, list[0].Fields)

	f, err := reg.Get("don_xin_viec")
	require.NoError(t, err)
	email := f.Fields[4]
	assert.Equal(t, "email", email.Name)
	assert.False(t, email.IsRequired())
	assert.True(t, f.Fields[0].IsRequired())
	assert.Equal(t, "Nguyễn Văn An", f.Fields[0].Normalizers.Apply("  nguyễn   văn  an "))

	ok, _ := f.Fields[3].Validators.Check("0912345678")
	assert.True(t, ok)
	phone := f.Fields[3].Normalizers.Apply(" 0912 345 678 ")
	assert.Equal(t, "0912345678", phone)
	ok, _ = f.Fields[3].Validators.Check("0912 345 678")
	assert.False(t, ok)
	ok, reason := f.Fields[3].Validators.Check("12345")
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestOverlay(t *testing.T) {
	reg, err := LoadCatalog("testdata/catalog.json")
	require.NoError(t, err)

	child, err := reg.Get("to_khai_cap_lai_cccd")
	require.NoError(t, err)
	assert.Equal(t, "Tờ khai cấp lại căn cước", child.Title)
	require.Len(t, child.Fields, 5)
	assert.Equal(t, "Nơi thường trú hiện nay", child.Fields[3].Label)
	assert.Equal(t, "reason", child.Fields[4].Name)

	base, err := reg.Get("to_khai_cccd")
	require.NoError(t, err)
	assert.Equal(t, "Nơi thường trú", base.Fields[3].Label)

	ok, _ := child.Fields[2].Validators.Check("001060012345")
	assert.True(t, ok)
}

func TestLoadCatalogYAML(t *testing.T) {
	reg, err := LoadCatalog("testdata/catalog.yaml")
	require.NoError(t, err)
	f, err := reg.Get("don_dang_ky_tam_tru")
	require.NoError(t, err)
	require.Len(t, f.Fields, 3)
	assert.False(t, f.Fields[2].IsRequired())
	assert.Equal(t, types.FieldDate, f.Fields[1].Type)
}

func TestLoadCatalogDir(t *testing.T) {
	reg, err := LoadCatalog("testdata/dir")
	require.NoError(t, err)
	require.Len(t, reg.List(), 2)

	f, err := reg.Get("phieu_tai_kham")
	require.NoError(t, err)
	assert.Equal(t, "Phiếu tái khám", f.Title)
	require.Len(t, f.Fields, 2)
	assert.Equal(t, "visit_date", f.Fields[1].Name)
	assert.Equal(t, types.FieldDate, f.Fields[1].Type)
}

func TestLoadCatalogErrors(t *testing.T) {
	t.Run("overlay outside allowed paths", func(t *testing.T) {
		_, err := LoadCatalog("testdata/bad_patch.json")
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "child", cfgErr.Form)
	})

	t.Run("unknown normalizer", func(t *testing.T) {
		_, err := LoadCatalog("testdata/bad_normalizer.json")
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "a", cfgErr.Field)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCatalog("testdata/missing.json")
		assert.Error(t, err)
	})

	t.Run("missing form id", func(t *testing.T) {
		_, err := ParseCatalog([]byte(`{"forms":[{"title":"x","fields":[]}]}`), "json")
		assert.Error(t, err)
	})

	t.Run("invalid field type", func(t *testing.T) {
		_, err := ParseCatalog([]byte(`{"forms":[{"form_id":"x","fields":[{"name":"a","type":"money"}]}]}`), "json")
		assert.Error(t, err)
	})
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
	}{
		{"duplicate form", []Definition{{ID: "a"}, {ID: "a"}}},
		{"duplicate field", []Definition{{ID: "a", Fields: []types.FieldDefinition{{Name: "x"}, {Name: "x"}}}}},
		{"unknown base", []Definition{{ID: "a", Extends: "b"}}},
		{"cycle", []Definition{{ID: "a", Extends: "b"}, {ID: "b", Extends: "a"}}},
		{"patch without extends", []Definition{{ID: "a", Patch: []patch.Operation{{Op: patch.OperationReplace, Path: "/title", Value: "x"}}}}},
		{"bad regex", []Definition{{ID: "a", Fields: []types.FieldDefinition{{Name: "x", Pattern: "("}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.defs)
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestResolve(t *testing.T) {
	reg, err := LoadCatalog("testdata/catalog.json")
	require.NoError(t, err)

	tests := []struct {
		query string
		want  string
	}{
		{"don_xin_viec", "don_xin_viec"},
		{"  DON_XIN_VIEC ", "don_xin_viec"},
		{"tôi muốn xin việc", "don_xin_viec"},
		{"Cháu làm giúp bác đơn xin việc", "don_xin_viec"},
		{"làm cccd", "to_khai_cccd"},
		{"bác bị mất căn cước", "to_khai_cccd"},
		{"tờ khai cấp lại căn cước", "to_khai_cccd"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			f, err := reg.Resolve(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.ID)
		})
	}

	_, err = reg.Resolve("nonexistent_form_12345")
	assert.True(t, errors.Is(err, types.ErrFormNotFound))
	_, err = reg.Resolve("   ")
	assert.ErrorIs(t, err, types.ErrFormNotFound)
	_, err = reg.Get("nope")
	assert.ErrorIs(t, err, types.ErrFormNotFound)
}
