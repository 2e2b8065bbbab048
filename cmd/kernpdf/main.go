package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/wudi/pdfkern/fonts"
	"github.com/wudi/pdfkern/ir/semantic"
	"github.com/wudi/pdfkern/layout"
	"github.com/wudi/pdfkern/observability"
	"github.com/wudi/pdfkern/typeset"
)

type pageConfig struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type marginConfig struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

type fontConfig struct {
	Name   string  `json:"name"`
	Family string  `json:"family"`
	Style  string  `json:"style"`
	Size   float64 `json:"size"`
}

type config struct {
	Page        pageConfig    `json:"page"`
	Family      string        `json:"family"`
	FontFiles   []string      `json:"font_files"`
	Fonts       []fontConfig  `json:"fonts"`
	Margins     *marginConfig `json:"margins"`
	LineHeight  float64       `json:"line_height"`
	Compression int           `json:"compression"`
	Title       string        `json:"title"`
	Author      string        `json:"author"`
}

func defaultConfig() config {
	return config{
		Page: pageConfig{Width: 612, Height: 792},
		Fonts: []fontConfig{
			{Name: "roman", Style: "Regular", Size: 12},
			{Name: "italic", Style: "Italic", Size: 12},
			{Name: "title", Style: "Regular", Size: 24},
		},
		LineHeight: 1.2,
	}
}

type stringList []string

func (l *stringList) String() string     { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error { *l = append(*l, v); return nil }

type options struct {
	input      string
	configPath string
	out        string
	width      float64
	height     float64
	family     string
	fontFiles  stringList
	verbose    bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernpdf: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "kernpdf: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: kernpdf [flags] <input.{md,html,txt}>\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.configPath, "config", "", "JSON configuration file")
	flag.StringVar(&opts.out, "out", "", "Output PDF path (default: input with .pdf extension)")
	flag.Float64Var(&opts.width, "width", 0, "Page width in points")
	flag.Float64Var(&opts.height, "height", 0, "Page height in points")
	flag.StringVar(&opts.family, "family", "", "Family identifier fonts are registered under")
	flag.Var(&opts.fontFiles, "font", "TrueType font file to load (repeatable)")
	flag.BoolVar(&opts.verbose, "v", false, "Log debug output to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing input path")
	}
	opts.input = flag.Arg(0)
	return opts, nil
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config{}, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// apply lets flags override the configuration file.
func (o options) apply(cfg *config) {
	if o.width > 0 {
		cfg.Page.Width = o.width
	}
	if o.height > 0 {
		cfg.Page.Height = o.height
	}
	if o.family != "" {
		cfg.Family = o.family
	}
	cfg.FontFiles = append(cfg.FontFiles, o.fontFiles...)
	if cfg.Family == "" && len(cfg.FontFiles) == 0 {
		// Nothing to load, so fall back to the bundled Go fonts.
		cfg.Family = fonts.FamilyGo
	}
}

func run(opts options) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(&cfg)

	out := opts.out
	if out == "" {
		out = strings.TrimSuffix(opts.input, filepath.Ext(opts.input)) + ".pdf"
	}
	source, err := os.ReadFile(opts.input)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := observability.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	sessOpts := []typeset.Option{
		typeset.WithLogger(logger),
		typeset.WithCompression(cfg.Compression),
		typeset.WithInfo(semantic.DocumentInfo{Title: cfg.Title, Author: cfg.Author, Producer: "kernpdf"}),
	}
	if cfg.Family != "" {
		sessOpts = append(sessOpts, typeset.WithFamily(cfg.Family))
	}
	s, err := typeset.New(typeset.ToFile(out), cfg.Page.Width, cfg.Page.Height, sessOpts...)
	if err != nil {
		return err
	}
	for _, path := range cfg.FontFiles {
		if err := s.LoadFont(path); err != nil {
			return err
		}
	}
	specs := make([]typeset.FontSpec, 0, len(cfg.Fonts))
	for _, f := range cfg.Fonts {
		specs = append(specs, typeset.FontSpec{Name: f.Name, Family: f.Family, Style: f.Style, Size: f.Size})
	}
	resolved, err := s.ResolveFonts(specs)
	if err != nil {
		return err
	}

	var layoutOpts []layout.Option
	if cfg.Margins != nil {
		m := cfg.Margins
		layoutOpts = append(layoutOpts, layout.WithMargins(layout.Margins{Top: m.Top, Bottom: m.Bottom, Left: m.Left, Right: m.Right}))
	}
	if cfg.LineHeight > 0 {
		layoutOpts = append(layoutOpts, layout.WithLineHeight(cfg.LineHeight))
	}
	engine, err := layout.NewEngine(s, resolved, layoutOpts...)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(opts.input)) {
	case ".md", ".markdown":
		err = engine.RenderMarkdown(string(source))
	case ".html", ".htm":
		err = engine.RenderHTML(string(source))
	case ".txt", "":
		err = engine.RenderText(string(source))
	default:
		err = errors.New("unsupported input type " + filepath.Ext(opts.input))
	}
	if err != nil {
		return err
	}
	if _, err := s.Close(); err != nil {
		return err
	}
	logger.Info("wrote pdf", observability.String("path", out), observability.Int("pages", s.PageCount()))
	return nil
}
