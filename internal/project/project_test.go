package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanDetectsPythonRequirements(t *testing.T) {
	ClearCache()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"),
		[]byte("django==4.2.0\n# comment\nrequests>=2.0\n"), 0o644))

	p, err := Scan(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Contains(t, p.Languages, "python")
	assert.Equal(t, "pip", p.PackageManager)
	assert.Equal(t, "4.2.0", p.Deps["django"])
	assert.Contains(t, p.Frameworks, "Django")
}

func TestScanDetectsNodePackageJSON(t *testing.T) {
	ClearCache()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"),
		[]byte(`{"dependencies":{"express":"^4.18.0"},"devDependencies":{"jest":"^29.0.0"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yarn.lock"), []byte(""), 0o644))

	p, err := Scan(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Contains(t, p.Languages, "js")
	assert.Equal(t, "yarn", p.PackageManager)
	assert.Equal(t, "^4.18.0", p.Deps["express"])
	assert.Contains(t, p.Frameworks, "Express")
}

func TestScanDetectsGoMod(t *testing.T) {
	ClearCache()
	dir := t.TempDir()
	content := "module example.com/x\n\ngo 1.23\n\nrequire (\n\tgithub.com/gin-gonic/gin v1.9.1\n)\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte(content), 0o644))

	p, err := Scan(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Contains(t, p.Languages, "go")
	assert.Equal(t, "go modules", p.PackageManager)
	assert.Equal(t, "v1.9.1", p.Deps["github.com/gin-gonic/gin"])
}

func TestScanDetectsEntryPointsAndStructure(t *testing.T) {
	ClearCache()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte(""), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "node_modules"), 0o755))

	p, err := Scan(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Contains(t, p.EntryPoints, "main.py")
	assert.Contains(t, p.Structure, "src")
	assert.NotContains(t, p.Structure, "node_modules")
}

func TestScanIsCached(t *testing.T) {
	ClearCache()
	dir := t.TempDir()

	first, err := Scan(context.Background(), dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("flask\n"), 0o644))
	second, err := Scan(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	ClearCache()
	third, err := Scan(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Contains(t, third.Languages, "python")
}

func TestScanMissingRootReturnsError(t *testing.T) {
	ClearCache()
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}
