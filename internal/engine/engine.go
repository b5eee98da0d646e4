// Package engine ties scanning, graph building, classification, physics and
// interaction into one frame-driven object.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/vaultgraph/internal/apperr"
	"github.com/starford/vaultgraph/internal/classify"
	"github.com/starford/vaultgraph/internal/graph"
	"github.com/starford/vaultgraph/internal/interaction"
	"github.com/starford/vaultgraph/internal/physics"
	"github.com/starford/vaultgraph/internal/render"
	"github.com/starford/vaultgraph/internal/scanner"
	"github.com/starford/vaultgraph/internal/storage"
)

// fitMargin is the padding, in pixels, around a fitted frame.
const fitMargin = 40.0

// Settings is the externally mutable configuration surface.
type Settings struct {
	Filters  classify.Filters
	Style    classify.Style
	Forces   physics.Params
	TagNodes bool
}

// DefaultSettings returns defaults for every knob.
func DefaultSettings() Settings {
	return Settings{
		Filters: classify.DefaultFilters(),
		Style:   classify.DefaultStyle(),
		Forces:  physics.DefaultParams(),
	}
}

// tagNodes reports whether tag nodes should exist: enabled and not hidden.
func (s Settings) tagNodes() bool {
	return s.TagNodes && s.Filters.ShowTags
}

// Options configure an Engine.
type Options struct {
	Provider storage.Provider
	SkipDirs []string
	// Content serves bodies for content and section matching. When nil and
	// Provider implements classify.ContentSource, the provider is used.
	Content  classify.ContentSource
	Settings Settings
	// Width and Height size the interactive view.
	Width, Height float64
	OnActivate    func(absPath string)
	Logger        *slog.Logger
}

// Engine owns one graph and everything derived from it. It is not safe for
// concurrent use; see Loop.
type Engine struct {
	provider storage.Provider
	scanOpts scanner.Options
	logger   *slog.Logger
	settings Settings

	graph      *graph.Graph
	sim        *physics.Simulator
	classifier *classify.Classifier
	resolver   *classify.Resolver
	ctrl       *interaction.Controller
	visible    []bool

	// builtTags is the tag-node state the current graph was built with.
	builtTags bool

	stats   graph.Stats
	skipped int
	version uint64
	frame   uint64
}

// New returns an engine with an empty graph. Call Rebuild to scan.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	content := opts.Content
	if content == nil {
		if cs, ok := opts.Provider.(classify.ContentSource); ok {
			content = cs
		}
	}
	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		width, height = 1280, 800
	}

	e := &Engine{
		provider: opts.Provider,
		scanOpts: scanner.Options{SkipDirs: opts.SkipDirs, Logger: logger},
		logger:   logger,
		settings: opts.Settings,
		graph:    graph.Build(nil, graph.Options{}),
		sim:      physics.New(opts.Settings.Forces),
	}
	e.classifier = classify.NewClassifier(opts.Settings.Filters, content)
	e.resolver = classify.NewResolver(opts.Settings.Style, e.classifier)
	e.ctrl = interaction.NewController(interaction.Centered(width, height), opts.OnActivate)
	e.sim.Reset(e.graph)
	return e
}

// Graph returns the current graph. It is replaced wholesale on rebuild.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// Settings returns the active settings.
func (e *Engine) Settings() Settings { return e.settings }

// Controller returns the interaction controller.
func (e *Engine) Controller() *interaction.Controller { return e.ctrl }

// Simulator returns the physics simulator.
func (e *Engine) Simulator() *physics.Simulator { return e.sim }

// Version counts completed rebuilds.
func (e *Engine) Version() uint64 { return e.version }

// Rebuild rescans the vault and replaces the graph. Layout and caches are
// reset. On error the previous graph is kept.
func (e *Engine) Rebuild(ctx context.Context) error {
	res, err := scanner.Scan(ctx, e.provider, e.scanOpts)
	if err != nil {
		return fmt.Errorf("engine: rebuild: %w", err)
	}
	e.builtTags = e.settings.tagNodes()
	e.graph = graph.Build(res.Entries, graph.Options{TagNodes: e.builtTags})
	e.stats = e.graph.Stats()
	e.skipped = res.Skipped
	e.sim.Reset(e.graph)
	e.classifier.Invalidate()
	e.resolver.Invalidate()
	e.ctrl.Reset()
	e.visible = nil
	e.version++

	e.logger.Info("engine: graph rebuilt",
		slog.Int("nodes", e.graph.Len()),
		slog.Int("edges", len(e.graph.Edges)),
		slog.Int("skipped", res.Skipped),
		slog.Uint64("version", e.version))
	return nil
}

// Apply replaces the settings. When tag-node existence differs from the
// current graph a rebuild runs; if it fails, a later Apply retries it.
// Style changes drop cached colors.
func (e *Engine) Apply(ctx context.Context, s Settings) error {
	e.settings = s
	e.sim.Params = s.Forces
	e.classifier.SetFilters(s.Filters)
	e.resolver.SetStyle(s.Style)
	e.visible = nil

	if e.builtTags != s.tagNodes() {
		return e.Rebuild(ctx)
	}
	return nil
}

// Invalidate drops cached bodies and colors, e.g. after document content
// changed without a structural rebuild.
func (e *Engine) Invalidate() {
	e.classifier.Invalidate()
	e.resolver.Invalidate()
	e.visible = nil
}

// Visible returns the visibility mask for the current graph.
func (e *Engine) Visible() []bool {
	if e.visible == nil {
		e.visible = e.classifier.Mask(e.graph)
	}
	return e.visible
}

func (e *Engine) scene() interaction.Scene {
	return interaction.Scene{
		Graph:    e.graph,
		Sim:      e.sim,
		Visible:  e.Visible(),
		Resolver: e.resolver,
	}
}

// Step advances the simulation without input or drawing.
func (e *Engine) Step(dt float64) {
	e.sim.Step(dt, e.Visible())
	e.frame++
}

// Frame runs one tick: pointer input, physics, then drawing into sink
// (skipped when sink is nil).
func (e *Engine) Frame(dt float64, p interaction.Pointer, sink render.Sink) {
	s := e.scene()
	e.ctrl.Update(p, s)
	e.sim.Step(dt, s.Visible)
	e.frame++
	if sink != nil {
		e.ctrl.Draw(sink, s)
	}
}

// Draw renders the current layout framed to a width×height view,
// leaving the interactive camera untouched.
func (e *Engine) Draw(sink render.Sink, width, height float64) {
	s := e.scene()
	cam := e.ctrl.Camera
	e.ctrl.Camera = interaction.Fit(e.sim.Positions(), s.Visible, width, height, fitMargin)
	e.ctrl.Draw(sink, s)
	e.ctrl.Camera = cam
}

// WriteImage renders the current layout as f to w.
func (e *Engine) WriteImage(w io.Writer, f render.Format, width, height int) error {
	canvas, err := render.New(f, w, width, height, e.settings.Style.Background)
	if err != nil {
		return fmt.Errorf("engine: %w: %w", apperr.ErrInvalidArgument, err)
	}
	e.Draw(canvas, float64(width), float64(height))
	if err := canvas.Close(); err != nil {
		return fmt.Errorf("engine: write image: %w", err)
	}
	return nil
}

// Neighbors returns the node labelled label and its neighbors.
func (e *Engine) Neighbors(label string) (NodeView, []NodeView, error) {
	i, ok := e.graph.Find(label)
	if !ok {
		return NodeView{}, nil, fmt.Errorf("engine: node %q: %w", label, apperr.ErrNotFound)
	}
	visible := e.Visible()
	idx := e.graph.Neighbors(i)
	out := make([]NodeView, len(idx))
	for k, j := range idx {
		out[k] = e.view(j, visible)
	}
	return e.view(i, visible), out, nil
}

// Find returns the nodes whose label contains query, case-insensitively.
func (e *Engine) Find(query string) []NodeView {
	visible := e.Visible()
	idx := e.graph.Search(query)
	out := make([]NodeView, len(idx))
	for k, i := range idx {
		out[k] = e.view(i, visible)
	}
	return out
}
