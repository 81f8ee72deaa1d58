package hcl

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/graph"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/schema"
)

// Loader parses pipeline manifests and builds executable graphs, resolving
// each node's task type through the registry.
type Loader struct {
	reg *registry.Registry
}

// NewLoader creates a Loader backed by the given registry.
func NewLoader(reg *registry.Registry) *Loader {
	return &Loader{reg: reg}
}

// LoadPath loads every pipeline found at path, which may be a single .hcl
// file or a directory searched recursively.
func (l *Loader) LoadPath(ctx context.Context, path string) ([]*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findManifestFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		logger.Warn("No .hcl manifest files found in path", "path", path)
		return nil, nil
	}
	logger.Debug("Found manifest files to load", "files", files)

	parser := hclparse.NewParser()
	var graphs []*graph.Graph
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var manifest File
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &manifest); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode manifest %s: %w", file, diags)
		}

		for _, pb := range manifest.Pipelines {
			g, err := l.buildPipeline(ctx, pb)
			if err != nil {
				return nil, fmt.Errorf("pipeline %q in %s: %w", pb.Name, file, err)
			}
			graphs = append(graphs, g)
		}
	}

	logger.Info("Manifests loaded successfully.", "pipelines", len(graphs))
	return graphs, nil
}

// buildPipeline turns one decoded pipeline block into a validated graph.
func (l *Loader) buildPipeline(ctx context.Context, pb *PipelineBlock) (*graph.Graph, error) {
	opts := []graph.Option{graph.WithLogger(ctxlog.FromContext(ctx))}
	if pb.ContinueOnError {
		opts = append(opts, graph.WithContinueOnError())
	}
	g := graph.New(pb.Name, opts...)

	for _, nb := range pb.Nodes {
		cfg, err := nodeConfig(nb)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nb.ID, err)
		}

		args, err := decodeArguments(nb.Arguments)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nb.ID, err)
		}

		t, err := l.reg.Build(nb.TaskType, args)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nb.ID, err)
		}

		if err := g.AddNode(nb.ID, t, cfg); err != nil {
			return nil, err
		}
	}

	for _, cb := range pb.Connects {
		err := g.Connect(cb.From, cb.To, &graph.ConnectConfig{
			FromOutput: cb.FromOutput,
			ToInput:    cb.ToInput,
		})
		if err != nil {
			return nil, err
		}
	}

	if len(pb.Entry) > 0 {
		if err := g.SetEntryNodes(pb.Entry...); err != nil {
			return nil, err
		}
	}
	if len(pb.Exit) > 0 {
		if err := g.SetExitNodes(pb.Exit...); err != nil {
			return nil, err
		}
	}
	if err := g.Executable(); err != nil {
		return nil, err
	}
	return g, nil
}

// nodeConfig translates a node block's slot declarations into a node config.
// A multi-output node gets slot names only; its per-slot descriptors cannot
// be expressed on the single OutputType.
func nodeConfig(nb *NodeBlock) (*graph.NodeConfig, error) {
	cfg := &graph.NodeConfig{Optional: nb.Optional}

	for _, in := range nb.Inputs {
		cfg.Inputs = append(cfg.Inputs, in.Name)
		st, err := typeExprToSchema(in.Type)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Name, err)
		}
		if st != nil {
			if cfg.InputTypes == nil {
				cfg.InputTypes = make(map[string]*schema.Type)
			}
			cfg.InputTypes[in.Name] = st
		}
	}

	for _, out := range nb.Outputs {
		cfg.Outputs = append(cfg.Outputs, out.Name)
	}
	if len(nb.Outputs) == 1 {
		st, err := typeExprToSchema(nb.Outputs[0].Type)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", nb.Outputs[0].Name, err)
		}
		cfg.OutputType = st
	}

	return cfg, nil
}

// decodeArguments evaluates the attributes of an arguments block into plain
// Go values for the task factory.
func decodeArguments(block *ArgumentsBlock) (map[string]any, error) {
	if block == nil || block.Body == nil {
		return nil, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("arguments: %w", diags)
	}
	if len(attrs) == 0 {
		return nil, nil
	}

	args := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("argument %q: %w", name, diags)
		}
		gv, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		args[name] = gv
	}
	return args, nil
}

// findManifestFiles accepts a single .hcl file or a directory to search
// recursively.
func findManifestFiles(path string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".hcl") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
