package confkit_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"marketcache-api/pkg/confkit"
)

func TestResolvePath(t *testing.T) {
	t.Setenv("CONFKIT_DIR", "sub")

	tests := []struct {
		name string
		base string
		file string
		want string
	}{
		{name: "absolute path", base: "/base", file: "/abs/market.yaml", want: "/abs/market.yaml"},
		{name: "relative path", base: "/base", file: "market.yaml", want: "/base/market.yaml"},
		{name: "env expansion", base: "/base", file: "${CONFKIT_DIR}/llm.yaml", want: "/base/sub/llm.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, confkit.ResolvePath(tt.base, tt.file))
		})
	}
}

func TestSectionHydrate(t *testing.T) {
	t.Run("empty file is a no-op", func(t *testing.T) {
		var section confkit.Section[string]
		err := section.Hydrate("/base", func(string) (*string, error) {
			t.Fatal("loader must not be called")
			return nil, nil
		})
		require.NoError(t, err)
		require.False(t, section.Configured())
	})

	t.Run("loads relative to base", func(t *testing.T) {
		section := confkit.Section[string]{File: "market.yaml"}
		value := "loaded"
		err := section.Hydrate("/etc/app", func(p string) (*string, error) {
			require.Equal(t, "/etc/app/market.yaml", p)
			return &value, nil
		})
		require.NoError(t, err)
		require.True(t, section.Configured())
		require.Equal(t, "/etc/app/market.yaml", section.File)
	})

	t.Run("loader error propagates", func(t *testing.T) {
		section := confkit.Section[string]{File: "broken.yaml"}
		err := section.Hydrate("/etc/app", func(string) (*string, error) {
			return nil, errors.New("boom")
		})
		require.EqualError(t, err, "boom")
		require.False(t, section.Configured())
	})
}

func TestGetenvAndRedact(t *testing.T) {
	t.Setenv("CONFKIT_PRESENT", "  value ")
	require.Equal(t, "value", confkit.Getenv("CONFKIT_PRESENT", "fallback"))
	require.Equal(t, "fallback", confkit.Getenv("CONFKIT_MISSING_VAR", "fallback"))

	require.Equal(t, "<unset>", confkit.Redact(""))
	require.Equal(t, "****", confkit.Redact("abc"))
	require.Equal(t, "****7890", confkit.Redact("sk-1234567890"))
}

func TestProjectRootFindsGoMod(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o600))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	got, err := confkit.ProjectRoot()
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotResolved, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	require.Equal(t, want, gotResolved)
}
