// Package config handles application configuration and command-line argument parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/joe/treewalk/pkg/filesystem"
	"github.com/joe/treewalk/pkg/walk"
)

// Exported variables.
var (
	ErrNoRoots          = errors.New("at least one root is required")
	ErrInvalidDepth     = errors.New("max depth must be -1 (unlimited) or greater")
	ErrInvalidWorkers   = errors.New("workers must be at least 1")
	ErrConflictingModes = errors.New("--copy-to and --remove cannot be combined")
	ErrCopyNeedsOneRoot = errors.New("--copy-to takes exactly one root")
	ErrInvalidPattern   = errors.New("invalid match pattern")
)

// Mode selects what the CLI prints for each walk.
type Mode int

const (
	// ModePaths prints one path per visited node
	ModePaths Mode = iota
	// ModeEvents prints every walk event with its depth
	ModeEvents
	// ModeTree prints an indented tree
	ModeTree
	// ModeUsage prints per-root totals only
	ModeUsage
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModePaths:
		return "paths"
	case ModeEvents:
		return "events"
	case ModeTree:
		return "tree"
	case ModeUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// ParseMode parses a string into a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "paths", "path":
		return ModePaths, nil
	case "events", "event":
		return ModeEvents, nil
	case "tree":
		return ModeTree, nil
	case "usage", "du":
		return ModeUsage, nil
	default:
		return ModePaths, fmt.Errorf("invalid mode: %s (valid: paths, events, tree, usage)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg and YAML.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Config holds the application configuration. A YAML file named by
// --config supplies defaults; flags given on the command line win.
type Config struct {
	Roots         []string `arg:"positional" yaml:"roots" help:"Roots to walk (local paths, sftp://, s3://, or mem:// for a scratch tree that starts empty and lasts one run)"`
	MaxDepth      int      `arg:"-d,--max-depth" yaml:"max_depth" help:"Maximum depth to descend (-1 = unlimited)"`
	FollowLinks   bool     `arg:"-L,--follow" yaml:"follow_links" help:"Follow symbolic links (enables loop detection)"`
	Match         string   `arg:"-m,--match" yaml:"match" help:"Only report files matching this glob (e.g. '**/*.go')"`
	Mode          Mode     `arg:"--mode" yaml:"mode" help:"Output: paths|events|tree|usage"`
	Interactive   bool     `arg:"-i,--interactive" yaml:"interactive" help:"Show a live view of the walk"`
	Workers       int      `arg:"-w,--workers" yaml:"workers" help:"Number of roots walked at once"`
	CopyTo        string   `arg:"--copy-to" yaml:"copy_to" help:"Copy the root's tree to this destination"`
	SkipUnchanged bool     `arg:"--skip-unchanged" yaml:"skip_unchanged" help:"With --copy-to, leave files with the same size and mtime alone"`
	Verify        bool     `arg:"--verify" yaml:"verify" help:"With --copy-to, compare every copied file with its source"`
	Remove        bool     `arg:"--remove" yaml:"remove" help:"Remove every root's tree"`
	Verbose       bool     `arg:"-v,--verbose" yaml:"verbose" help:"Log debug records for recovered walk failures"`
	ConfigFile    string   `arg:"-c,--config" yaml:"-" help:"YAML file with default settings"`

	// Pool sizes SFTP connection pools; only settable from the config file.
	Pool *filesystem.PoolConfig `arg:"-" yaml:"sftp_pool"`
}

// Description returns the program description for go-arg
func (Config) Description() string {
	return "Walk file trees depth-first, locally or over SFTP, S3 and in-memory providers"
}

// Version returns the version string for go-arg
func (Config) Version() string {
	return "treewalk 1.0.0"
}

// Defaults returns the configuration used when neither flags nor a file
// set a value.
func Defaults() *Config {
	return &Config{
		MaxDepth: -1,
		Mode:     ModePaths,
		Workers:  4,
	}
}

// ParseFlags parses os.Args and returns configuration. Help, version and
// usage errors exit the process the way go-arg does.
func ParseFlags() (*Config, error) {
	cfg, parser, err := load(os.Args[1:])

	switch {
	case errors.Is(err, arg.ErrHelp):
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	case errors.Is(err, arg.ErrVersion):
		fmt.Fprintln(os.Stdout, cfg.Version())
		os.Exit(0)
	case err != nil && parser != nil:
		parser.Fail(err.Error())
	case err != nil:
		return nil, err
	}

	return PostProcessConfig(cfg)
}

// Parse parses the given arguments (without the program name) and
// validates the result.
func Parse(args []string) (*Config, error) {
	cfg, _, err := load(args)
	if err != nil {
		return nil, err
	}

	return PostProcessConfig(cfg)
}

// LoadFile reads YAML settings into cfg. Keys absent from the file leave
// cfg unchanged.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // The config path comes from the user
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// PostProcessConfig applies post-processing logic to a parsed config
func PostProcessConfig(cfg *Config) (*Config, error) {
	if len(cfg.Roots) == 0 {
		return nil, ErrNoRoots
	}

	if cfg.MaxDepth < -1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, cfg.MaxDepth)
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Workers)
	}

	if cfg.CopyTo != "" && cfg.Remove {
		return nil, ErrConflictingModes
	}

	if cfg.CopyTo != "" && len(cfg.Roots) != 1 {
		return nil, ErrCopyNeedsOneRoot
	}

	if err := ValidateFilePattern(cfg.Match); err != nil {
		return nil, err
	}

	if cfg.Pool != nil {
		if err := cfg.Pool.Validate(); err != nil {
			return nil, err
		}
	}

	if err := cfg.ValidatePaths(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidatePaths checks that every root and the copy destination name a
// usable location. Local roots are not required to exist: a missing root
// is reported by the walk itself.
func (cfg *Config) ValidatePaths() error {
	for _, root := range cfg.Roots {
		if root == "" {
			return fmt.Errorf("%w: empty root", filesystem.ErrInvalidURL)
		}

		if _, err := filesystem.ParsePath(root); err != nil {
			return fmt.Errorf("invalid root %q: %w", root, err)
		}
	}

	if cfg.CopyTo != "" {
		if _, err := filesystem.ParsePath(cfg.CopyTo); err != nil {
			return fmt.Errorf("invalid destination %q: %w", cfg.CopyTo, err)
		}
	}

	return nil
}

// ValidateFilePattern validates a doublestar glob. The empty pattern is valid.
func ValidateFilePattern(pattern string) error {
	if pattern == "" {
		return nil
	}

	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	return nil
}

// WalkOptions converts the depth and link settings into walk options.
func (cfg *Config) WalkOptions() walk.Options {
	opts := walk.Options{MaxDepth: cfg.MaxDepth, FollowLinks: cfg.FollowLinks}
	if cfg.MaxDepth < 0 {
		opts.MaxDepth = walk.Unlimited
	}

	return opts
}

// load parses args twice when --config is given: once to find the file,
// then over the file's values so flags take precedence.
func load(args []string) (*Config, *arg.Parser, error) {
	cfg := Defaults()

	parser, err := arg.NewParser(arg.Config{Program: "treewalk"}, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build argument parser: %w", err)
	}

	if err := parser.Parse(args); err != nil {
		return cfg, parser, err //nolint:wrapcheck // go-arg sentinels are matched by callers
	}

	if cfg.ConfigFile == "" {
		return cfg, parser, nil
	}

	fileCfg := Defaults()
	if err := LoadFile(cfg.ConfigFile, fileCfg); err != nil {
		return nil, nil, err
	}

	fileParser, err := arg.NewParser(arg.Config{Program: "treewalk"}, fileCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build argument parser: %w", err)
	}

	if err := fileParser.Parse(args); err != nil {
		return fileCfg, fileParser, err //nolint:wrapcheck // go-arg sentinels are matched by callers
	}

	return fileCfg, fileParser, nil
}
