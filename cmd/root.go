package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"duplicalis/internal/config"
	"duplicalis/internal/report"
	"duplicalis/internal/runner"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// saveConfigDefault is the flag value used when --save-config is given
// without a path.
const saveConfigDefault = "-"

var rootCmd = &cobra.Command{
	Use:   "duplicalis [target]",
	Short: "Detect duplicate or near-duplicate React components (code + styles)",
	Long: `Scans JS/TS UI sources, embeds every component from four angles (code,
style, structure, holistic) and reports pairs that are suspiciously similar.
Running without a subcommand is the same as "duplicalis scan".`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadDotEnv()
	},
	RunE: runScan,
}

var scanCmd = &cobra.Command{
	Use:   "scan [target]",
	Short: "Scan for duplicate or near-duplicate components",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	res, err := runner.Run(cmd.Context(), cfg, runner.Options{Progress: progressWriter(cfg)})
	if err != nil {
		return err
	}

	if _, err := report.Emit(os.Stdout, res.Report, cfg); err != nil {
		return err
	}
	return nil
}

func progressWriter(cfg config.Config) io.Writer {
	if !cfg.ShowProgress {
		return nil
	}
	return os.Stderr
}

// loadConfig layers the config file, flags that were set explicitly and
// the environment, then resolves and validates the result.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to resolve root: %w", err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = filepath.Join(root, config.DefaultConfigFile)
	} else if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(root, configPath)
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return cfg, err
	}
	cfg.Root = root
	applyFlags(cmd, &cfg)
	cfg.ApplyEnv()

	if err := cfg.Resolve(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("save-config") {
		target, _ := cmd.Flags().GetString("save-config")
		if target == saveConfigDefault || target == "" {
			target = configPath
		} else if !filepath.IsAbs(target) {
			target = filepath.Join(root, target)
		}
		if err := config.Save(cfg, target); err != nil {
			return cfg, fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintln(os.Stderr, color.GreenString("✓ Config saved to %s", target))
	}
	return cfg, nil
}

// addScanFlags registers every run option on cmd.
func addScanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "Config file path (JSON or YAML, default <root>/"+config.DefaultConfigFile+")")
	f.String("save-config", "", "Persist the effective configuration (--save-config=<path> to choose the file)")
	f.Lookup("save-config").NoOptDefVal = saveConfigDefault

	f.StringP("out", "o", "", "Write the report to this file (.json or .txt)")
	f.String("output", "", "Output format: console|json|text")
	f.StringSlice("include", nil, "Include globs")
	f.StringSlice("exclude", nil, "Exclude globs")

	f.Float64("threshold", 0, "Similarity threshold")
	f.Float64("high-threshold", 0, "High similarity threshold (labels almost-identical)")
	f.Float64("max-threshold", 0, "Suppress pairs scoring above this")
	f.Int("limit", 0, "Max matches per component (0 = unlimited)")
	f.Int("min-path-distance", 0, "Minimum directory distance between reported pairs")
	f.StringSlice("compare", nil, "Limit matches to comparisons involving these files/globs")

	f.String("model", "", "Embedding backend: local|remote|mock")
	f.String("model-path", "", "Local model path")
	f.String("local-command", "", "Command that embeds stdin text with the local model")
	f.String("model-repo", "", "Model repo base URL for auto-download")
	f.Bool("auto-download-model", true, "Download model files automatically if missing")
	f.String("api-url", "", "Remote API URL")
	f.String("api-key", "", "Remote API key")
	f.String("api-model", "", "Remote API model name")
	f.Int("api-timeout", 0, "Remote API timeout in milliseconds")
	f.Float64("api-rate", 0, "Max remote requests per second (0 = unlimited)")
	f.Int("concurrency", 0, "Parallel embedding requests")

	f.String("cache-path", "", "Path for the embedding cache file")
	f.Float64("clean-probability", 0, "Chance of pruning stale cache entries on a run")
	f.Bool("no-progress", false, "Disable progress output")
	f.Bool("no-ignores", false, "Disable file/component ignore markers")
	f.StringSlice("disable-analyses", nil, "Disable analyses (e.g. style-duplicate)")
	f.StringSlice("style-extensions", nil, "Style extensions to include")
	f.StringSlice("ignore-component-name", nil, "Regex patterns to drop components by name")
	f.StringSlice("ignore-component-usage", nil, "Regex patterns; drop components that render matching components")
	f.Bool("relative-paths", false, "Show paths relative to root instead of absolute")

	f.Bool("explain", false, "Ask a chat model to explain each reported pair")
	f.String("explain-model", "", "Chat model used by --explain")
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	changed := f.Changed

	if changed("out") {
		cfg.Out, _ = f.GetString("out")
	}
	if changed("output") {
		cfg.Output, _ = f.GetString("output")
	}
	if changed("include") {
		cfg.Include, _ = f.GetStringSlice("include")
	}
	if changed("exclude") {
		cfg.Exclude, _ = f.GetStringSlice("exclude")
	}
	if changed("threshold") {
		cfg.SimilarityThreshold, _ = f.GetFloat64("threshold")
	}
	if changed("high-threshold") {
		cfg.HighSimilarityThreshold, _ = f.GetFloat64("high-threshold")
	}
	if changed("max-threshold") {
		v, _ := f.GetFloat64("max-threshold")
		cfg.MaxSimilarityThreshold = &v
	}
	if changed("limit") {
		cfg.Limit, _ = f.GetInt("limit")
	}
	if changed("min-path-distance") {
		cfg.MinPathDistance, _ = f.GetInt("min-path-distance")
	}
	if changed("compare") {
		cfg.CompareGlobs, _ = f.GetStringSlice("compare")
	}
	if changed("model") {
		cfg.Model, _ = f.GetString("model")
	}
	if changed("model-path") {
		cfg.ModelPath, _ = f.GetString("model-path")
	}
	if changed("local-command") {
		cfg.LocalCommand, _ = f.GetString("local-command")
	}
	if changed("model-repo") {
		cfg.ModelRepo, _ = f.GetString("model-repo")
	}
	if changed("auto-download-model") {
		cfg.AutoDownloadModel, _ = f.GetBool("auto-download-model")
	}
	if changed("api-url") {
		cfg.Remote.URL, _ = f.GetString("api-url")
	}
	if changed("api-key") {
		cfg.Remote.APIKey, _ = f.GetString("api-key")
	}
	if changed("api-model") {
		cfg.Remote.Model, _ = f.GetString("api-model")
	}
	if changed("api-timeout") {
		cfg.Remote.TimeoutMs, _ = f.GetInt("api-timeout")
	}
	if changed("api-rate") {
		cfg.Remote.RequestsPerSecond, _ = f.GetFloat64("api-rate")
	}
	if changed("concurrency") {
		cfg.Concurrency, _ = f.GetInt("concurrency")
	}
	if changed("cache-path") {
		cfg.CachePath, _ = f.GetString("cache-path")
	}
	if changed("clean-probability") {
		cfg.CleanProbability, _ = f.GetFloat64("clean-probability")
	}
	if changed("no-progress") {
		off, _ := f.GetBool("no-progress")
		cfg.ShowProgress = !off
	}
	if changed("no-ignores") {
		off, _ := f.GetBool("no-ignores")
		cfg.AllowIgnores = !off
	}
	if changed("disable-analyses") {
		cfg.DisableAnalyses, _ = f.GetStringSlice("disable-analyses")
	}
	if changed("style-extensions") {
		cfg.StyleExtensions, _ = f.GetStringSlice("style-extensions")
	}
	if changed("ignore-component-name") {
		cfg.IgnoreComponentNamePatterns, _ = f.GetStringSlice("ignore-component-name")
	}
	if changed("ignore-component-usage") {
		cfg.IgnoreComponentUsagePatterns, _ = f.GetStringSlice("ignore-component-usage")
	}
	if changed("relative-paths") {
		cfg.RelativePaths, _ = f.GetBool("relative-paths")
	}
	if changed("explain") {
		cfg.Explain.Enabled, _ = f.GetBool("explain")
	}
	if changed("explain-model") {
		cfg.Explain.Model, _ = f.GetString("explain-model")
	}
}

func init() {
	addScanFlags(rootCmd)
	addScanFlags(scanCmd)
	addScanFlags(exportCmd)
	clearCacheCmd.Flags().String("config", "", "Config file path")
	clearCacheCmd.Flags().String("cache-path", "", "Path of the embedding cache file")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(clearCacheCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
