package rules

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

//go:embed domains/*.flight.yaml
var builtinDomains embed.FS

// maxCatalogBytes caps catalogs fetched over the network.
const maxCatalogBytes = 1 << 20

// Document is the raw content of one catalog file.
type Document struct {
	Source string
	Data   []byte
}

// Sources lists where catalogs are read from. Later sources override
// earlier ones when they define the same domain.
type Sources struct {
	Builtin bool
	Dirs    []string
	Files   []string
	URLs    []string
}

// Loader reads domain catalogs from the configured sources.
type Loader struct {
	sources    Sources
	httpClient *http.Client
	log        *slog.Logger
}

// NewLoader creates a catalog loader.
func NewLoader(sources Sources, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		sources: sources,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With("component", "catalog"),
	}
}

// Load reads and compiles every catalog. Any broken catalog aborts the load.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	docs, err := l.Documents(ctx)
	if err != nil {
		return nil, err
	}

	cat := NewCatalog()
	for _, doc := range docs {
		spec, err := ParseDomain(doc.Data, doc.Source)
		if err != nil {
			return nil, err
		}
		if err := cat.Add(spec); err != nil {
			return nil, err
		}
		l.log.Debug("loaded domain", "domain", spec.Domain, "source", doc.Source, "rules", len(spec.Rules))
	}
	return cat, nil
}

// Documents returns the raw catalogs in load order without compiling them.
func (l *Loader) Documents(ctx context.Context) ([]Document, error) {
	var docs []Document

	if l.sources.Builtin {
		builtin, err := BuiltinDocuments()
		if err != nil {
			return nil, fmt.Errorf("loading builtin domains: %w", err)
		}
		docs = append(docs, builtin...)
	}

	for _, dir := range l.sources.Dirs {
		found, err := loadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				l.log.Debug("catalog directory not found", "dir", dir)
				continue
			}
			return nil, fmt.Errorf("loading catalog directory %s: %w", dir, err)
		}
		docs = append(docs, found...)
	}

	for _, file := range l.sources.Files {
		data, err := os.ReadFile(file) //nolint:gosec // Path comes from config
		if err != nil {
			return nil, fmt.Errorf("loading catalog %s: %w", file, err)
		}
		docs = append(docs, Document{Source: file, Data: data})
	}

	for _, url := range l.sources.URLs {
		data, err := l.fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetching catalog %s: %w", url, err)
		}
		docs = append(docs, Document{Source: url, Data: data})
	}

	return docs, nil
}

// BuiltinDocuments returns the catalogs compiled into the binary.
func BuiltinDocuments() ([]Document, error) {
	entries, err := builtinDomains.ReadDir("domains")
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsCatalogFile(entry.Name()) {
			continue
		}
		data, err := builtinDomains.ReadFile(path.Join("domains", entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Source: "builtin:" + entry.Name(), Data: data})
	}
	return docs, nil
}

// IsCatalogFile reports whether a file name looks like a domain catalog.
func IsCatalogFile(name string) bool {
	for _, suffix := range []string{".flight.yaml", ".flight.yml", ".flight"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func loadDir(dir string) ([]Document, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}

	var docs []Document
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsCatalogFile(d.Name()) {
			return nil
		}
		data, err := os.ReadFile(p) //nolint:gosec // Path comes from a configured directory
		if err != nil {
			return err
		}
		docs = append(docs, Document{Source: p, Data: data})
		return nil
	})
	return docs, err
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("only https URLs are allowed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "flightcheck/1.0")
	req.Header.Set("Accept", "application/yaml, text/yaml, application/x-yaml")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxCatalogBytes {
		return nil, fmt.Errorf("catalog exceeds %d bytes", maxCatalogBytes)
	}
	return data, nil
}

// Catalog holds the compiled domains by name.
type Catalog struct {
	entries map[string]*catalogEntry
}

type catalogEntry struct {
	spec *DomainSpec
	set  *RuleSet
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]*catalogEntry)}
}

// Add compiles spec and registers it, replacing any domain of the same name.
func (c *Catalog) Add(spec *DomainSpec) error {
	set, err := spec.Build()
	if err != nil {
		return err
	}
	c.entries[set.Name()] = &catalogEntry{spec: spec, set: set}
	return nil
}

// AddSet registers an already built rule set.
func (c *Catalog) AddSet(set *RuleSet) {
	c.entries[set.Name()] = &catalogEntry{set: set}
}

// Get returns the named rule set.
func (c *Catalog) Get(name string) (*RuleSet, error) {
	if e, ok := c.entries[name]; ok {
		return e.set, nil
	}
	return nil, &UnknownDomainError{Name: name, Known: c.Names()}
}

// Spec returns the catalog form of a domain, if it was loaded from one.
func (c *Catalog) Spec(name string) (*DomainSpec, bool) {
	e, ok := c.entries[name]
	if !ok || e.spec == nil {
		return nil, false
	}
	return e.spec, true
}

// Names returns the domain names in lexical order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sets returns all rule sets ordered by name.
func (c *Catalog) Sets() []*RuleSet {
	names := c.Names()
	sets := make([]*RuleSet, 0, len(names))
	for _, name := range names {
		sets = append(sets, c.entries[name].set)
	}
	return sets
}
