package config

import (
	"time"

	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// Default configuration values.
const (
	DefaultTestsDirectory    = "tests"
	DefaultResultsFile       = "results.csv"
	DefaultSuite             = "own"
	DefaultReferenceFallback = "chrome"
	DefaultViewSize          = 300
	DefaultScale             = 1.0
	DefaultRenderTimeout     = 30 * time.Second
	DefaultOutputDir         = ".vdiff/out"
	DefaultHighlight         = "#ff0000"
)

// DefaultTool is the executable substituted for ${tool} when a backend config leaves it empty.
var DefaultTool = map[model.Backend]string{
	model.Chrome:   "chromium",
	model.Firefox:  "firefox",
	model.Safari:   "safari-svgrender",
	model.Resvg:    "resvg",
	model.Batik:    "batik-rasterizer.jar",
	model.Inkscape: "inkscape",
	model.Librsvg:  "rsvg-convert",
	model.SvgNet:   "svgnet-svgrender",
	model.QtSvg:    "qtsvgrender",
	model.Ladybird: "ladybird-svgrender",
}

// DefaultCommand is the command template used when a backend config leaves it empty.
// Templates without ${output} are read from the tool's stdout.
var DefaultCommand = map[model.Backend]string{
	model.Chrome:   "${tool} --headless --disable-gpu --hide-scrollbars --window-size=${width},${height} --screenshot=${output} file://${input}",
	model.Firefox:  "${tool} --headless --screenshot ${output} --window-size=${width},${height} file://${input}",
	model.Safari:   "${tool} ${input} ${output} ${width}",
	model.Resvg:    "${tool} --width ${width} ${input} ${output}",
	model.Batik:    "java -jar ${tool} -scriptSecurityOff -w ${width} -d ${output} ${input}",
	model.Inkscape: "${tool} --export-type=png --export-width=${width} --export-filename=${output} ${input}",
	model.Librsvg:  "${tool} --width ${width} --format png ${input}",
	model.SvgNet:   "${tool} ${input} ${output} ${width}",
	model.QtSvg:    "${tool} ${input} ${output} ${width}",
	model.Ladybird: "${tool} ${input} ${output} ${width}",
}

// applyDefaults fills in default values for unset configuration fields.
func applyDefaults(cfg *Config) {
	applyTestsDefaults(cfg)
	applyRenderDefaults(cfg)
	applyDiffDefaults(cfg)
	applyBackendDefaults(cfg)
}

func applyTestsDefaults(cfg *Config) {
	if cfg.Tests.Directory == "" {
		cfg.Tests.Directory = DefaultTestsDirectory
	}
	if cfg.Tests.Results == "" {
		cfg.Tests.Results = DefaultResultsFile
	}
	if cfg.Tests.Suite == "" {
		cfg.Tests.Suite = DefaultSuite
	}
	if cfg.Tests.ReferenceFallback == "" {
		cfg.Tests.ReferenceFallback = DefaultReferenceFallback
	}
}

func applyRenderDefaults(cfg *Config) {
	if cfg.Render == nil {
		cfg.Render = &RenderConfig{}
	}
	if cfg.Render.ViewSize == 0 {
		cfg.Render.ViewSize = DefaultViewSize
	}
	if cfg.Render.Scale == 0 {
		cfg.Render.Scale = DefaultScale
	}
	if cfg.Render.Timeout == "" {
		cfg.Render.Timeout = DefaultRenderTimeout.String()
	}
	if cfg.Render.OutputDir == "" {
		cfg.Render.OutputDir = DefaultOutputDir
	}
}

func applyDiffDefaults(cfg *Config) {
	if cfg.Diff == nil {
		cfg.Diff = &DiffConfig{}
	}
	if cfg.Diff.Highlight == "" {
		cfg.Diff.Highlight = DefaultHighlight
	}
}

// applyBackendDefaults also rewrites display-name keys ("SVG.NET") to canonical keys ("svgnet").
func applyBackendDefaults(cfg *Config) {
	for key, bc := range cfg.Backends {
		b, ok := model.ParseBackend(key)
		if !ok || b == model.Reference {
			continue // reported by Validate
		}
		if bc.Tool == "" {
			bc.Tool = DefaultTool[b]
		}
		if bc.Command == "" {
			bc.Command = DefaultCommand[b]
		}
		if key != b.Key() {
			delete(cfg.Backends, key)
			if _, exists := cfg.Backends[b.Key()]; exists {
				continue
			}
		}
		cfg.Backends[b.Key()] = bc
	}
}
