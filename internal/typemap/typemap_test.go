package typemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborq/arborq/internal/sqlir"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	assert.Equal(t, "ltree", r.Descriptor(sqlir.TypePath).Name)
	assert.Equal(t, "lquery[]", r.Descriptor(sqlir.TypeQueryArray).Name)
	assert.Equal(t, "boolean", r.Descriptor(sqlir.TypeBool).Name)

	// Descriptors are resolved once and shared.
	assert.Same(t, r.Descriptor(sqlir.TypePath), r.Descriptor(sqlir.TypePath))
}

func TestNew_Overrides(t *testing.T) {
	r, err := New(&Overrides{Types: map[string]string{
		"ltree":  "ext.ltree",
		"lquery": "ext.lquery",
	}})
	require.NoError(t, err)

	assert.Equal(t, "ext.ltree", r.Descriptor(sqlir.TypePath).Name)
	assert.Equal(t, "ext.lquery", r.Descriptor(sqlir.TypeQuery).Name)
	assert.Equal(t, "ltree[]", r.Descriptor(sqlir.TypePathArray).Name, "unrelated types keep defaults")
}

func TestNew_FailsAtConstruction(t *testing.T) {
	t.Run("unknown override key", func(t *testing.T) {
		_, err := New(&Overrides{Types: map[string]string{"tree": "x"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown type")
	})

	t.Run("empty backend name", func(t *testing.T) {
		_, err := New(&Overrides{Types: map[string]string{"ltree": ""}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty backend name")
	})
}

func TestDescriptor_PanicsOnUnresolvedType(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	assert.Panics(t, func() {
		r.Descriptor(sqlir.LogicalType(99))
	})
}

func TestApply(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	col := &sqlir.ColumnExpr{Name: "path"}
	tagged := r.Apply(col, sqlir.TypePath)
	assert.Equal(t, sqlir.TypePath, tagged.ResultType())
	assert.Same(t, r.Descriptor(sqlir.TypePath), tagged.Descriptor())

	// Idempotent re-application.
	again := r.Apply(tagged, sqlir.TypePath)
	assert.Equal(t, tagged.ResultType(), again.ResultType())
	assert.Same(t, tagged.Descriptor(), again.Descriptor())
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte("types:\n  ltree: myschema.ltree\n"), 0o644))

	o, err := LoadOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, "myschema.ltree", o.Types["ltree"])

	_, err = LoadOverrides(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("types: [not, a, map]\n"), 0o644))
	_, err = LoadOverrides(bad)
	assert.Error(t, err)
}
