package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/jacoelho/treeview/internal/exit"
	"github.com/jacoelho/treeview/internal/format"
	"github.com/jacoelho/treeview/internal/loader"
	"github.com/jacoelho/treeview/internal/parquet"
	"github.com/jacoelho/treeview/internal/parse"
	"github.com/jacoelho/treeview/internal/tree"
)

const (
	OutputTree    = "tree"
	OutputJSON    = "json"
	OutputPayload = "payload"

	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var (
	ErrNoArguments = errors.New("no arguments provided")
	ErrNoFiles     = errors.New("no input files specified")
	ErrInvalid     = errors.New("invalid configuration")
)

// Config represents the complete configuration for the treeview tool.
type Config struct {
	Files      []string
	ConfigFile string
	Debug      bool

	// Input
	InputFormat format.Format
	MaxBytes    int64
	MaxDepth    int
	MaxNodes    int64
	LazyRows    int
	Workers     int
	RateLimit   float64 // Loads started per second (0 = unlimited)

	// Navigation
	Search        string
	CaseSensitive bool
	Query         string

	// Output
	Output  string
	Color   string
	Preview int
	Depth   int // Rendered levels below each root (0 = all)
}

// Defaults returns the configuration used when neither a file nor flags
// override a setting.
func Defaults() Config {
	return Config{
		MaxBytes: loader.DefaultMaxInputBytes,
		MaxDepth: parse.DefaultMaxDepth,
		MaxNodes: tree.DefaultMaxNodes,
		LazyRows: loader.DefaultLazyThreshold,
		Workers:  4,
		Output:   OutputTree,
		Color:    ColorAuto,
		Preview:  tree.DefaultPreviewLen,
	}
}

// fileConfig is the TOML layout of -config files.
type fileConfig struct {
	Input struct {
		Format    *string  `toml:"format"`
		MaxBytes  *int64   `toml:"max_bytes"`
		MaxDepth  *int     `toml:"max_depth"`
		MaxNodes  *int64   `toml:"max_nodes"`
		LazyRows  *int     `toml:"lazy_rows"`
		Workers   *int     `toml:"workers"`
		RateLimit *float64 `toml:"rate_limit"`
	} `toml:"input"`
	Search struct {
		CaseSensitive *bool `toml:"case_sensitive"`
	} `toml:"search"`
	Output struct {
		Mode    *string `toml:"mode"`
		Color   *string `toml:"color"`
		Preview *int    `toml:"preview"`
		Depth   *int    `toml:"depth"`
	} `toml:"output"`
	Debug *bool `toml:"debug"`
}

// LoadFile decodes a TOML configuration file on top of c. Unknown keys are
// rejected.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config file %s: %w: %s", path, ErrInvalid, strict.String())
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if fc.Input.Format != nil {
		f, err := format.Parse(*fc.Input.Format)
		if err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		c.InputFormat = f
	}
	set(&c.MaxBytes, fc.Input.MaxBytes)
	set(&c.MaxDepth, fc.Input.MaxDepth)
	set(&c.MaxNodes, fc.Input.MaxNodes)
	set(&c.LazyRows, fc.Input.LazyRows)
	set(&c.Workers, fc.Input.Workers)
	set(&c.RateLimit, fc.Input.RateLimit)
	set(&c.CaseSensitive, fc.Search.CaseSensitive)
	set(&c.Output, fc.Output.Mode)
	set(&c.Color, fc.Output.Color)
	set(&c.Preview, fc.Output.Preview)
	set(&c.Depth, fc.Output.Depth)
	set(&c.Debug, fc.Debug)
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if len(c.Files) == 0 {
		return ErrNoFiles
	}

	for _, file := range c.Files {
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("input file %s not found: %w", file, err)
		}
	}

	switch {
	case !slices.Contains([]string{OutputTree, OutputJSON, OutputPayload}, c.Output):
		return fmt.Errorf("%w: output must be tree, json or payload, got %q", ErrInvalid, c.Output)
	case !slices.Contains([]string{ColorAuto, ColorAlways, ColorNever}, c.Color):
		return fmt.Errorf("%w: color must be auto, always or never, got %q", ErrInvalid, c.Color)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate-limit cannot be negative", ErrInvalid)
	case c.MaxBytes < 0 || c.MaxDepth < 0:
		return fmt.Errorf("%w: limits cannot be negative", ErrInvalid)
	case c.MaxNodes < 1:
		return fmt.Errorf("%w: max-nodes must be at least 1, got %d", ErrInvalid, c.MaxNodes)
	case c.Preview < 1:
		return fmt.Errorf("%w: preview must be at least 1, got %d", ErrInvalid, c.Preview)
	case c.Depth < 0:
		return fmt.Errorf("%w: depth cannot be negative", ErrInvalid)
	case c.Query != "" && c.Output == OutputPayload:
		return fmt.Errorf("%w: -query cannot be combined with payload output", ErrInvalid)
	}
	return nil
}

// LoaderOptions maps the configuration onto loader settings.
func (c *Config) LoaderOptions() loader.Options {
	return loader.Options{
		MaxInputBytes: c.MaxBytes,
		Format:        c.InputFormat,
		LazyThreshold: c.LazyRows,
		Parse:         parse.Options{MaxDepth: c.MaxDepth, MaxNodes: c.MaxNodes},
		Parquet:       parquet.Options{Parallel: c.Workers > 1},
		Tree:          tree.Options{MaxNodes: c.MaxNodes, PreviewLen: c.Preview},
		Workers:       c.Workers,
		RateLimit:     c.RateLimit,
	}
}

// Parse parses command-line arguments and returns a validated Config.
// Values come from Defaults, then the -config file, then explicit flags.
// If parsing fails or help is requested, returns nil config and exit result.
func Parse(args []string) (*Config, *exit.Result) {
	if len(args) == 0 {
		return nil, exit.Usagef("Error: %v\n\n%s", ErrNoArguments, Usage())
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)

	// Suppress the default usage output since we handle it ourselves
	fs.Usage = func() {}
	// Suppress error output since we handle it ourselves
	fs.SetOutput(io.Discard)

	d := Defaults()
	var (
		configFile    = fs.String("config", "", "Path to a TOML configuration file")
		debug         = fs.Bool("debug", d.Debug, "Log at debug level")
		inputFormat   = fs.String("input-format", "", "Force the input format: json, jsonl, yaml or parquet")
		maxBytes      = fs.Int64("max-bytes", d.MaxBytes, "Largest accepted input, before and after decompression")
		maxDepth      = fs.Int("max-depth", d.MaxDepth, "Deepest accepted nesting")
		maxNodes      = fs.Int64("max-nodes", d.MaxNodes, "Most nodes per document, counting YAML alias expansion")
		lazyRows      = fs.Int("lazy-rows", d.LazyRows, "Parquet row count above which trees are built on demand")
		workers       = fs.Int("workers", d.Workers, "Files loaded concurrently")
		rateLimit     = fs.Float64("rate-limit", d.RateLimit, "Loads started per second (0 for unlimited)")
		search        = fs.String("search", "", "Highlight keys and values containing this text")
		caseSensitive = fs.Bool("case-sensitive", d.CaseSensitive, "Match search text case-sensitively")
		query         = fs.String("query", "", "JSONPath expression selecting nodes to print")
		output        = fs.String("output", d.Output, "Output mode: tree, json or payload")
		color         = fs.String("color", d.Color, "Colorize tree output: auto, always or never")
		preview       = fs.Int("preview", d.Preview, "Characters of string values shown in summaries")
		depth         = fs.Int("depth", d.Depth, "Levels rendered below each root (0 for all)")
	)

	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, exit.Success(Usage())
		}
		return nil, exit.Usagef("Error: failed to parse arguments: %v\n\n%s", err, Usage())
	}

	files := fs.Args()
	if len(files) == 0 {
		return nil, exit.Usagef("Error: %v\n\n%s", ErrNoFiles, Usage())
	}

	config := &d
	config.Files = files
	config.ConfigFile = *configFile
	if *configFile != "" {
		if err := config.LoadFile(*configFile); err != nil {
			return nil, exit.Usagef("Error: %v\n\n%s", err, Usage())
		}
	}

	// Flags given on the command line take precedence over the file.
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			config.Debug = *debug
		case "input-format":
			config.InputFormat, flagErr = format.Parse(*inputFormat)
		case "max-bytes":
			config.MaxBytes = *maxBytes
		case "max-depth":
			config.MaxDepth = *maxDepth
		case "max-nodes":
			config.MaxNodes = *maxNodes
		case "lazy-rows":
			config.LazyRows = *lazyRows
		case "workers":
			config.Workers = *workers
		case "rate-limit":
			config.RateLimit = *rateLimit
		case "case-sensitive":
			config.CaseSensitive = *caseSensitive
		case "output":
			config.Output = *output
		case "color":
			config.Color = *color
		case "preview":
			config.Preview = *preview
		case "depth":
			config.Depth = *depth
		}
	})
	if flagErr != nil {
		return nil, exit.Usagef("Error: %v\n\n%s", flagErr, Usage())
	}
	config.Search = *search
	config.Query = *query

	if err := config.Validate(); err != nil {
		return nil, exit.Usagef("Error: %v\n\n%s", err, Usage())
	}

	return config, nil
}

// Usage returns a usage string for the CLI tool.
func Usage() string {
	return `treeview - browse JSON, JSON Lines, YAML and Parquet files as trees

Usage: treeview [options] <file1> [file2] ...

Options:
  --config FILE           TOML file with defaults for the options below
  --input-format NAME     Force the input format: json, jsonl, yaml or parquet
  --search TEXT           Highlight keys and values containing TEXT
  --case-sensitive        Match search text case-sensitively
  --query EXPR            Print only the nodes selected by a JSONPath expression
  --output MODE           tree, json or payload (default: tree)
  --color WHEN            auto, always or never (default: auto)
  --depth N               Levels rendered below each root (0 for all)
  --preview N             Characters of string values shown in summaries (default: 50)
  --workers N             Files loaded concurrently (default: 4)
  --rate-limit N          Loads started per second (0 for unlimited)
  --max-bytes N           Largest accepted input in bytes (default: 1GiB)
  --max-depth N           Deepest accepted nesting (default: 1024)
  --max-nodes N           Most nodes per document (0 for unlimited)
  --lazy-rows N           Parquet rows above which trees are built on demand (default: 10000)
  --debug                 Log at debug level
  -h, --help              Show this help message

Files ending in .gz, .zst or .lz4 are decompressed transparently.

Examples:
  treeview data.json                         # Print the tree
  treeview --search error logs.jsonl         # Highlight matches
  treeview --query '$..id' rows.parquet      # Print selected nodes
  treeview --output payload config.yaml      # Emit the host payload
  treeview --config treeview.toml a.yaml b.json`
}
