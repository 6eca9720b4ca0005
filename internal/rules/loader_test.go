package rules

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Builtin(t *testing.T) {
	cat, err := NewLoader(Sources{Builtin: true}, nil).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"api", "bash", "embedded-c", "go", "python", "rust"}, cat.Names())

	bash, err := cat.Get("bash")
	require.NoError(t, err)
	assert.Equal(t, "builtin:bash.flight.yaml", bash.Source())
	n1, ok := bash.Rule("N1")
	require.True(t, ok)
	assert.Equal(t, SeverityNever, n1.Severity())

	api, err := cat.Get("api")
	require.NoError(t, err)
	assert.NotNil(t, api.Classifier())

	spec, ok := cat.Spec("bash")
	require.True(t, ok)
	assert.Equal(t, "bash", spec.Domain)
}

func TestLoader_CollidingIDsAcrossDomains(t *testing.T) {
	cat, err := NewLoader(Sources{Builtin: true}, nil).Load(context.Background())
	require.NoError(t, err)

	bash, _ := cat.Get("bash")
	python, _ := cat.Get("python")
	b, ok := bash.Rule("N1")
	require.True(t, ok)
	p, ok := python.Rule("N1")
	require.True(t, ok)
	assert.NotEqual(t, b.Title(), p.Title())
}

func TestLoader_DirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "team")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "bash.flight.yaml"), []byte(`
domain: bash
version: "9.9.9"
rules:
  X1:
    title: custom
    severity: SHOULD
    check: {type: grep, pattern: foo}
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.yaml"), []byte("not: a catalog"), 0o600))

	l := NewLoader(Sources{Builtin: true, Dirs: []string{dir, filepath.Join(dir, "missing")}}, nil)
	cat, err := l.Load(context.Background())
	require.NoError(t, err)

	bash, err := cat.Get("bash")
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", bash.Version())
	assert.Equal(t, 1, bash.Len())
}

func TestLoader_BrokenCatalogIsFatal(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.flight.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
domain: bad
rules:
  N1:
    title: broken
    severity: NEVER
    check: {type: grep, pattern: "(x"}
`), 0o600))

	_, err := NewLoader(Sources{Files: []string{file}}, nil).Load(context.Background())
	var rce *RuleConfigError
	require.ErrorAs(t, err, &rce)
	assert.Equal(t, "bad", rce.Domain)
	assert.Equal(t, "N1", rce.RuleID)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(Sources{Files: []string{"/nonexistent/x.flight.yaml"}}, nil).Load(context.Background())
	assert.Error(t, err)
}

func TestLoader_URLs(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/remote.flight.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("domain: remote\nrules:\n  R1: {title: t, severity: MUST, check: {type: grep, pattern: r}}\n"))
	}))
	defer srv.Close()

	l := NewLoader(Sources{URLs: []string{srv.URL + "/remote.flight.yaml"}}, nil)
	l.httpClient = srv.Client()
	cat, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"remote"}, cat.Names())

	l = NewLoader(Sources{URLs: []string{srv.URL + "/missing"}}, nil)
	l.httpClient = srv.Client()
	_, err = l.Load(context.Background())
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = NewLoader(Sources{URLs: []string{"http://example.com/x.flight.yaml"}}, nil).Load(context.Background())
	assert.ErrorContains(t, err, "only https")
}

func TestCatalog_UnknownDomain(t *testing.T) {
	cat := NewCatalog()
	_, err := cat.Get("none")
	var ude *UnknownDomainError
	require.ErrorAs(t, err, &ude)
	assert.Contains(t, err.Error(), "catalog is empty")

	set, err := NewRuleSet(SetDef{Name: "manual"})
	require.NoError(t, err)
	cat.AddSet(set)
	_, err = cat.Get("other")
	assert.ErrorContains(t, err, "available: manual")
	_, ok := cat.Spec("manual")
	assert.False(t, ok)
	assert.Len(t, cat.Sets(), 1)
}

func TestIsCatalogFile(t *testing.T) {
	assert.True(t, IsCatalogFile("bash.flight.yaml"))
	assert.True(t, IsCatalogFile("bash.flight.yml"))
	assert.True(t, IsCatalogFile("bash.flight"))
	assert.False(t, IsCatalogFile("bash.yaml"))
}
