// Package load turns prototype documents on disk into registered prototypes:
// it walks the configured root for *.prototype.yaml files, validates and
// decodes them in parallel, mints path-stable handles, and registers the
// results; a companion watcher keeps the registry in sync with file changes.
package load

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"protoforge/internal/config"
	"protoforge/internal/logging"
	"protoforge/internal/proto"
	"protoforge/internal/registry"
	_ "protoforge/internal/schematics" // registers the built-in schematic decoders
	"protoforge/internal/tree"
)

// Suffix marks prototype documents on disk.
const Suffix = ".prototype.yaml"

// document is the raw YAML shape of one prototype file. Schematic payloads
// stay as YAML nodes until the codec table decodes them.
type document struct {
	ID             string     `yaml:"id"`
	Templates      []string   `yaml:"templates"`
	Children       []childRef `yaml:"children"`
	RequiresEntity *bool      `yaml:"requires_entity"`
	Schematics     yaml.Node  `yaml:"schematics"`
}

type childRef struct {
	Path     string `yaml:"path"`
	MergeKey string `yaml:"merge_key"`
}

// Loader parses prototype documents under one root directory into the store
// and registers them.
type Loader struct {
	root     string
	store    *proto.MemStore
	registry *registry.Registry
	config   tree.Config
	schema   *jsonschema.Schema
}

func NewLoader(cfg *config.Config, store *proto.MemStore, reg *registry.Registry) (*Loader, error) {
	schema, err := compileSchema(cfg.Paths.Schema)
	if err != nil {
		return nil, err
	}
	return &Loader{
		root:     cfg.Paths.Root,
		store:    store,
		registry: reg,
		config:   cfg.TreeConfig(),
		schema:   schema,
	}, nil
}

// Root returns the directory this loader walks.
func (l *Loader) Root() string {
	return l.root
}

// LoadAll discovers, parses, and registers every prototype document under
// the root. Parse failures do not stop other files from loading; all
// failures are joined into the returned error.
func (l *Loader) LoadAll(ctx context.Context) error {
	paths, err := l.discover()
	if err != nil {
		return err
	}
	logging.Get(logging.CategoryLoad).Infof("loading %d prototype documents from %s", len(paths), l.root)

	var (
		mu     sync.Mutex
		errs   []error
		loaded []proto.Handle
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			handle, err := l.LoadFile(path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
				return nil
			}
			loaded = append(loaded, handle)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Registration is sequential: the builder resolves dependencies
	// recursively, so order among the loaded handles does not matter.
	for _, handle := range loaded {
		if l.registry.ContainsHandle(handle) {
			continue
		}
		if err := l.registry.Register(handle, l.store, l.config); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// LoadFile parses and validates one document, stores the prototype under
// its path-derived handle, and queues it for registration.
func (l *Loader) LoadFile(path string) (proto.Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return proto.Handle{}, err
	}

	if err := validateDocument(l.schema, data); err != nil {
		return proto.Handle{}, fmt.Errorf("invalid prototype document: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return proto.Handle{}, err
	}

	handle := l.HandleFor(path)
	p, err := l.toPrototype(&doc, path)
	if err != nil {
		return proto.Handle{}, err
	}

	l.store.Put(handle, p)
	l.registry.Queue().Enqueue(handle, p.ID)
	logging.Get(logging.CategoryLoad).Debugf("parsed %q from %s", string(p.ID), path)
	return handle, nil
}

// HandleFor mints the stable handle for a document path. The handle is
// derived from the root-relative slash path, so reloading the same file
// yields the same handle.
func (l *Loader) HandleFor(path string) proto.Handle {
	return proto.HandleFromPath(l.relPath(path))
}

func (l *Loader) relPath(path string) string {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(filepath.Clean(rel))
}

// toPrototype resolves the document's template and child path references
// (relative to the referencing file) into handles.
func (l *Loader) toPrototype(doc *document, path string) (*proto.Prototype, error) {
	rel := l.relPath(path)
	dir := filepath.Dir(path)

	p := &proto.Prototype{
		ID:             proto.ID(doc.ID),
		Path:           rel,
		RequiresEntity: doc.RequiresEntity == nil || *doc.RequiresEntity,
	}

	for _, ref := range doc.Templates {
		p.Templates = append(p.Templates, l.resolveRef(dir, ref))
	}
	for _, child := range doc.Children {
		p.Children = append(p.Children, proto.Child{
			MergeKey: child.MergeKey,
			Handle:   l.resolveRef(dir, child.Path),
		})
	}

	schematics, err := decodeSchematics(&doc.Schematics)
	if err != nil {
		return nil, err
	}
	p.Schematics = schematics
	return p, nil
}

// resolveRef turns a path reference inside a document into a handle. Bare
// references resolve relative to the referencing file; a leading slash
// anchors at the prototype root.
func (l *Loader) resolveRef(dir, ref string) proto.Handle {
	if strings.HasPrefix(ref, "/") {
		return proto.HandleFromPath(filepath.ToSlash(filepath.Clean(strings.TrimPrefix(ref, "/"))))
	}
	return proto.HandleFromPath(l.relPath(filepath.Join(dir, ref)))
}

// decodeSchematics walks the schematics mapping in document order through
// the codec table.
func decodeSchematics(node *yaml.Node) (*proto.Schematics, error) {
	schematics := proto.NewSchematics()
	if node.Kind == 0 || node.IsZero() {
		return schematics, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("schematics must be a mapping")
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		kind := node.Content[i].Value
		sch, err := proto.DecodeSchematic(kind, node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("schematic %q: %w", kind, err)
		}
		schematics.Insert(sch)
	}
	return schematics, nil
}

// discover collects every document path under the root, sorted for
// deterministic load reporting.
func (l *Loader) discover() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, Suffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
