package internal

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/vaultgraph/internal/classify"
	"github.com/starford/vaultgraph/internal/engine"
	"github.com/starford/vaultgraph/internal/physics"
	"github.com/starford/vaultgraph/internal/render"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	Index   IndexConfig       `yaml:"index"`
	Auth    AuthConfig        `yaml:"auth"`
	Graph   GraphConfig       `yaml:"graph"`
	Filters classify.Filters  `yaml:"filters"`
	Style   StyleConfig       `yaml:"style"`
	Render  RenderConfig      `yaml:"render"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Graph.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	if err := c.Style.Validate(); err != nil {
		return fmt.Errorf("style: %w", err)
	}
	if err := c.Render.Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// Settings converts the graph, filter and style sections into engine
// settings.
func (c *Config) Settings() (engine.Settings, error) {
	style, err := c.Style.ToStyle()
	if err != nil {
		return engine.Settings{}, err
	}
	return engine.Settings{
		Filters:  c.Filters,
		Style:    style,
		Forces:   c.Graph.Forces,
		TagNodes: c.Graph.TagNodes,
	}, nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the vault location and the directories never scanned.
type VaultConfig struct {
	Path     string   `yaml:"path"`
	SkipDirs []string `yaml:"skip_dirs"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.SkipDirs, validation.Each(validation.Required)),
	)
}

// IndexConfig holds the SQLite content index location. An empty path
// disables the index: content filters then read files directly and
// full-text search is unavailable.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether an index is configured.
func (c *IndexConfig) Enabled() bool {
	return c.Path != ""
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// GraphConfig holds the layout loop configuration.
type GraphConfig struct {
	TagNodes bool           `yaml:"tag_nodes"`
	FPS      int            `yaml:"fps"`
	Forces   physics.Params `yaml:"forces"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FPS, validation.Required, validation.Min(1), validation.Max(240)),
		validation.Field(&c.Forces),
	)
}

// StyleConfig is the YAML form of classify.Style. Colors are "#rrggbb" or
// "#rgb"; empty colors and zero sizes keep the defaults.
type StyleConfig struct {
	NodeSize      float64           `yaml:"node_size"`
	LineThickness float64           `yaml:"line_thickness"`
	ZoomThreshold float64           `yaml:"zoom_threshold"`
	Arrows        bool              `yaml:"arrows"`
	Ghost         string            `yaml:"ghost"`
	Attachment    string            `yaml:"attachment"`
	Orphan        string            `yaml:"orphan"`
	Edge          string            `yaml:"edge"`
	Text          string            `yaml:"text"`
	Background    string            `yaml:"background"`
	Palette       []string          `yaml:"palette"`
	TagColors     map[string]string `yaml:"tag_colors"`
	Groups        []GroupConfig     `yaml:"groups"`
}

// GroupConfig is one custom color group.
type GroupConfig struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
	Color string `yaml:"color"`
}

// Validate validates the group.
func (g GroupConfig) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Type, validation.Required, validation.By(matchType)),
		validation.Field(&g.Color, validation.Required, validation.By(hexColor)),
	)
}

func matchType(v any) error {
	s, _ := v.(string)
	if !classify.MatchType(strings.ToLower(s)).Valid() {
		return fmt.Errorf("unknown match type %q", s)
	}
	return nil
}

func hexColor(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	_, err := classify.ParseHex(s)
	return err
}

// Validate validates the style configuration.
func (c *StyleConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.NodeSize, validation.Min(0.0)),
		validation.Field(&c.LineThickness, validation.Min(0.0)),
		validation.Field(&c.ZoomThreshold, validation.Min(0.0)),
		validation.Field(&c.Ghost, validation.By(hexColor)),
		validation.Field(&c.Attachment, validation.By(hexColor)),
		validation.Field(&c.Orphan, validation.By(hexColor)),
		validation.Field(&c.Edge, validation.By(hexColor)),
		validation.Field(&c.Text, validation.By(hexColor)),
		validation.Field(&c.Background, validation.By(hexColor)),
		validation.Field(&c.Palette, validation.Each(validation.Required, validation.By(hexColor))),
		validation.Field(&c.Groups),
	); err != nil {
		return err
	}
	for tag, hex := range c.TagColors {
		if err := hexColor(hex); err != nil {
			return fmt.Errorf("tag_colors: %s: %w", tag, err)
		}
	}
	return nil
}

// ToStyle resolves the configuration on top of classify.DefaultStyle.
func (c *StyleConfig) ToStyle() (classify.Style, error) {
	s := classify.DefaultStyle()
	if c.NodeSize > 0 {
		s.NodeSize = c.NodeSize
	}
	if c.LineThickness > 0 {
		s.LineThickness = c.LineThickness
	}
	if c.ZoomThreshold > 0 {
		s.ZoomThreshold = c.ZoomThreshold
	}
	s.Arrows = c.Arrows

	var errs []error
	set := func(dst *color.RGBA, hex string) {
		if hex == "" {
			return
		}
		rgba, err := classify.ParseHex(hex)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = rgba
	}
	set(&s.Ghost, c.Ghost)
	set(&s.Attachment, c.Attachment)
	set(&s.Orphan, c.Orphan)
	set(&s.Edge, c.Edge)
	set(&s.Text, c.Text)
	set(&s.Background, c.Background)

	if len(c.Palette) > 0 {
		s.Palette = make([]color.RGBA, len(c.Palette))
		for i, hex := range c.Palette {
			set(&s.Palette[i], hex)
		}
	}
	if len(c.TagColors) > 0 {
		s.TagColors = make(map[string]color.RGBA, len(c.TagColors))
		for tag, hex := range c.TagColors {
			var rgba color.RGBA
			set(&rgba, hex)
			s.TagColors[tag] = rgba
		}
	}
	for _, g := range c.Groups {
		grp := classify.Group{Type: classify.MatchType(strings.ToLower(g.Type)), Value: g.Value}
		set(&grp.Color, g.Color)
		s.Groups = append(s.Groups, grp)
	}

	if err := errors.Join(errs...); err != nil {
		return classify.Style{}, fmt.Errorf("style: %w", err)
	}
	return s, nil
}

// RenderConfig holds the defaults of the render command.
type RenderConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Steps  int    `yaml:"steps"`
	Format string `yaml:"format"`
	// Output is a file path; empty or "-" writes to stdout.
	Output string `yaml:"output"`
}

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Width, validation.Required, validation.Min(1), validation.Max(8192)),
		validation.Field(&c.Height, validation.Required, validation.Min(1), validation.Max(8192)),
		validation.Field(&c.Steps, validation.Min(0)),
		validation.Field(&c.Format, validation.Required, validation.In(string(render.FormatSVG), string(render.FormatPNG))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:     "./vault",
			SkipDirs: []string{".obsidian", ".trash", ".git"},
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Graph: GraphConfig{
			FPS:    30,
			Forces: physics.DefaultParams(),
		},
		Filters: classify.DefaultFilters(),
		Render: RenderConfig{
			Width:  1600,
			Height: 1000,
			Steps:  300,
			Format: string(render.FormatSVG),
		},
	}
}
