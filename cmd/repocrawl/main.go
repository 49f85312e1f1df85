package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quantmind-br/repocrawl-go/internal/app"
	"github.com/quantmind-br/repocrawl-go/internal/config"
	"github.com/quantmind-br/repocrawl-go/internal/crawler"
	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/hostapi"
	"github.com/quantmind-br/repocrawl-go/internal/manifest"
	"github.com/quantmind-br/repocrawl-go/internal/utils"
	"github.com/quantmind-br/repocrawl-go/pkg/version"
)

var (
	cfgFile string
	verbose bool
	log     *utils.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repocrawl [url]",
	Short: "Extract the text files of a GitLab or GitHub repository",
	Long: `repocrawl walks a remote GitLab or GitHub repository through the host's
REST API and collects the text of every file that passes the size limit and
the include/exclude patterns.

The URL may point at a branch, tag, commit or sub-directory:

  repocrawl https://gitlab.com/group/project/-/tree/release/2.0/src
  repocrawl https://github.com/owner/repo/tree/main/docs --include '*.md'

Without --output the result is printed to stdout as JSON or YAML.`,
	Version:       version.Short(),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCrawl,
}

var crawlCmd = &cobra.Command{
	Use:   "crawl <url|manifest>",
	Short: "Crawl one repository, or every source of a manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawl,
}

var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Crawl every repository listed in a manifest file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args[0])
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ~/.repocrawl/config.yaml)")
	flags.String("token", "", "Access token (falls back to GITLAB_TOKEN or GITHUB_TOKEN)")
	flags.String("host", config.DefaultHostKind, "Host kind: gitlab, github or auto")
	flags.String("domain", "", "Host domain (default from the URL)")
	flags.String("protocol", "", "Protocol used to reach the host: http or https")
	flags.String("ref", "", "Branch, tag or commit to crawl, overriding the URL")
	flags.StringSlice("include", nil, "Glob patterns a file name must match")
	flags.StringSlice("exclude", nil, "Glob patterns excluding files and directories")
	flags.Bool("default-patterns", false, "Use the built-in source-code patterns when none are given")
	flags.String("max-size", config.DefaultMaxFileSize, "Maximum file size (e.g. 512KB, 1MB)")
	flags.Bool("relative", false, "Key files relative to the URL sub-path")
	flags.StringP("output", "o", "", "Output directory (default: print to stdout)")
	flags.String("format", config.DefaultOutputFormat, "Result and stats format: json or yaml")
	flags.Bool("force", false, "Overwrite existing files")
	flags.Bool("dry-run", false, "Simulate without writing files")
	flags.Int("max-retries", config.DefaultMaxRetries, "Retries of a rate-limited request (0=unlimited)")
	flags.Bool("debug", false, "Log every host request")
	flags.Bool("no-progress", false, "Disable the progress spinner")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	_ = viper.BindPFlag("host.token", flags.Lookup("token"))
	_ = viper.BindPFlag("host.kind", flags.Lookup("host"))
	_ = viper.BindPFlag("host.domain", flags.Lookup("domain"))
	_ = viper.BindPFlag("host.protocol", flags.Lookup("protocol"))
	_ = viper.BindPFlag("crawl.ref", flags.Lookup("ref"))
	_ = viper.BindPFlag("crawl.include", flags.Lookup("include"))
	_ = viper.BindPFlag("crawl.exclude", flags.Lookup("exclude"))
	_ = viper.BindPFlag("crawl.default_patterns", flags.Lookup("default-patterns"))
	_ = viper.BindPFlag("crawl.max_file_size", flags.Lookup("max-size"))
	_ = viper.BindPFlag("crawl.relative_paths", flags.Lookup("relative"))
	_ = viper.BindPFlag("output.directory", flags.Lookup("output"))
	_ = viper.BindPFlag("output.format", flags.Lookup("format"))
	_ = viper.BindPFlag("output.force", flags.Lookup("force"))
	_ = viper.BindPFlag("output.dry_run", flags.Lookup("dry-run"))
	_ = viper.BindPFlag("rate_limit.max_retries", flags.Lookup("max-retries"))

	batchCmd.Flags().Bool("continue-on-error", false, "Keep going when a source fails")
	batchCmd.Flags().IntP("concurrency", "j", 0, "Sources crawled at once (default from manifest)")

	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// setup loads the configuration and builds the logger and orchestrator
func setup(cmd *cobra.Command) (*config.Config, *app.Orchestrator, *progressbar.ProgressBar, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug || verbose {
		cfg.Logging.Level = "debug"
	}
	log = utils.NewLogger(utils.LoggerOptions{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cmd.ErrOrStderr(),
		Verbose: verbose,
	})

	var bar *progressbar.ProgressBar
	var progress func(crawler.Event)
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	if !noProgress && cfg.Logging.Level != "debug" {
		bar = utils.NewProgressBar(cmd.ErrOrStderr(), -1, utils.DescCrawling)
		progress = progressReporter(bar)
	}

	orchestrator, err := app.NewOrchestrator(app.OrchestratorOptions{
		Config:   cfg,
		Verbose:  verbose,
		Logger:   log,
		Stdout:   cmd.OutOrStdout(),
		Progress: progress,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	return cfg, orchestrator, bar, nil
}

// progressReporter advances the spinner for every file that was downloaded
func progressReporter(bar *progressbar.ProgressBar) func(crawler.Event) {
	return func(e crawler.Event) {
		if e.Kind != crawler.EventDownloaded {
			return
		}
		bar.Describe(utils.DescDownloading + " " + e.Path)
		_ = bar.Add(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			if log != nil {
				log.Info().Msg("Shutting down gracefully...")
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	target := args[0]
	switch app.DetectInput(target) {
	case app.InputManifest:
		return runBatch(cmd, target)
	case app.InputUnknown:
		return fmt.Errorf("not a repository URL or manifest file: %q", target)
	}

	_, orchestrator, bar, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	_, err = orchestrator.Run(ctx, app.Source{URL: target})
	if bar != nil {
		_ = bar.Finish()
	}
	return err
}

func runBatch(cmd *cobra.Command, path string) error {
	manifestCfg, err := manifest.NewLoader().Load(path)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	if f := cmd.Flags().Lookup("output"); f != nil && f.Changed {
		manifestCfg.Options.Output = f.Value.String()
	}
	if f := cmd.Flags().Lookup("continue-on-error"); f != nil && f.Changed {
		manifestCfg.Options.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}
	if f := cmd.Flags().Lookup("concurrency"); f != nil && f.Changed {
		if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
			manifestCfg.Options.Concurrency = n
		}
	}

	_, orchestrator, bar, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	_, err = orchestrator.RunManifest(ctx, manifestCfg)
	if bar != nil {
		_ = bar.Finish()
	}
	return err
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, tokens and host connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Checking environment...")
		allPassed := true

		fmt.Fprint(out, "  Config file: ")
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(out, "FAILED (%v)\n", err)
			cfg = config.Default()
			allPassed = false
		} else if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(out, "OK (%s)\n", used)
		} else {
			fmt.Fprintln(out, "OK (defaults)")
		}

		for _, kind := range []domain.HostKind{domain.HostGitLab, domain.HostGitHub} {
			env := hostapi.TokenEnv(kind)
			fmt.Fprintf(out, "  %s: ", env)
			if tokenSet(cfg, env) {
				fmt.Fprintln(out, "set")
			} else {
				fmt.Fprintln(out, "not set (public repositories only)")
			}
		}

		fmt.Fprint(out, "  Write permissions: ")
		if checkWritePermissions(".") {
			fmt.Fprintln(out, "OK")
		} else {
			fmt.Fprintln(out, "FAILED")
			allPassed = false
		}

		client := &http.Client{Timeout: 5 * time.Second}
		for _, base := range doctorHosts(cfg) {
			fmt.Fprintf(out, "  %s: ", base)
			if err := checkHost(cmd.Context(), client, base); err != nil {
				fmt.Fprintf(out, "UNREACHABLE (%v)\n", err)
				allPassed = false
			} else {
				fmt.Fprintln(out, "OK")
			}
		}

		fmt.Fprintln(out)
		if allPassed {
			fmt.Fprintln(out, "All critical checks passed!")
		} else {
			fmt.Fprintln(out, "Some checks failed. Please resolve the issues above.")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Full())
	},
}

// tokenSet reports whether a token for env is configured or exported
func tokenSet(cfg *config.Config, env string) bool {
	return cfg.Host.Token != "" || os.Getenv(env) != ""
}

// doctorHosts lists the API endpoints checked by doctor: GitLab's
// /api/v4/version and the GitHub API root
func doctorHosts(cfg *config.Config) []string {
	if cfg.Host.Domain != "" {
		protocol := cfg.Host.Protocol
		if protocol != "http" {
			protocol = "https"
		}
		base := protocol + "://" + cfg.Host.Domain
		if domain.HostKind(cfg.Host.Kind) == domain.HostGitHub {
			return []string{base + "/api/v3/"}
		}
		return []string{base + "/api/v4/version"}
	}
	return []string{"https://gitlab.com/api/v4/version", "https://api.github.com/"}
}

// checkHost reports whether an API endpoint answers. Auth failures still
// count as reachable.
func checkHost(ctx context.Context, client *http.Client, endpoint string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// checkWritePermissions checks if we can write to dir
func checkWritePermissions(dir string) bool {
	f, err := os.CreateTemp(dir, ".repocrawl_test_write")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
