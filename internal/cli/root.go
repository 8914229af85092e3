package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tryit/internal/config"
	"tryit/internal/httpclient"
	"tryit/internal/logging"
	"tryit/internal/openapi"
	"tryit/internal/ui"
)

// runUI starts the terminal front-end. Tests replace it.
var runUI = func(opts ui.Options) error {
	return ui.NewApp(opts).Run()
}

// Execute runs the tryit CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tryit [spec]",
		Short: "Try out the operations of an OpenAPI/Swagger document from the terminal",
		Long: "tryit loads an OpenAPI 3 or Swagger 2 document from a URL or file, renders a request form\n" +
			"for each operation and sends the calls to the API.",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          run,
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	})

	f := cmd.Flags()
	f.StringP("config", "c", "", "Config file path (YAML)")
	f.String("spec", "", "OpenAPI document URL (http/https) or file path")
	f.String("base-url", "", "Base URL for executing requests (e.g. http://localhost:8000)")
	f.Duration("timeout", 0, "HTTP timeout for loading the document and for each call")
	f.String("token", "", "Bearer token sent with every call")
	f.Bool("debug", false, "Write a debug log")
	f.String("debug-file", "", "Debug log path")
	f.String("log-level", "", "Console log level before the UI starts (debug, info, warn, error)")
	f.Bool("request-id", false, "Send an X-Request-ID header with every call")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd.Flags(), args)
	if err != nil {
		return err
	}

	log, debugFile, closeLog, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()
	doc, err := openapi.Load(ctx, cfg.Spec, openapi.WithHTTPTimeout(cfg.Timeout))
	if err != nil {
		return err
	}
	ops, err := openapi.ExtractOperations(doc)
	if err != nil {
		return err
	}
	baseURL := resolveBaseURL(cfg.BaseURL, cfg.Spec, openapi.BaseURL(doc))
	log.Info("document loaded", "spec", cfg.Spec, "operations", len(ops), "base_url", baseURL)

	// The UI owns the terminal from here; only the debug file keeps logging.
	slog.SetDefault(logging.New(logging.Config{File: debugFile}))

	return runUI(ui.Options{
		Operations: ops,
		Schemes:    openapi.ExtractSecuritySchemes(doc),
		BaseURL:    baseURL,
		Token:      cfg.Token,
		Client:     httpclient.NewClient(cfg.Timeout),
		MinPending: cfg.MinPending,
		RequestID:  cfg.RequestID,
	})
}

// resolveConfig merges defaults, the config file, the environment and the
// flags, later sources winning.
func resolveConfig(flags *pflag.FlagSet, args []string) (config.Config, error) {
	cfg := config.Default()

	env, err := config.Env(".env")
	if err != nil {
		return cfg, err
	}
	cfgPath, _ := flags.GetString("config")
	if cfgPath == "" {
		cfgPath = strings.TrimSpace(env[config.EnvPrefix+"CONFIG"])
	}
	if cfgPath != "" {
		if err := config.LoadFile(&cfg, cfgPath); err != nil {
			return cfg, newUsageError(err.Error())
		}
	}
	if err := config.ApplyEnv(&cfg, env); err != nil {
		return cfg, newUsageError(err.Error())
	}

	applyFlags(&cfg, flags)
	if len(args) == 1 {
		if flags.Changed("spec") {
			return cfg, newUsageError("give the document either as an argument or with --spec, not both")
		}
		cfg.Spec = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return cfg, newUsageError(err.Error())
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, newUsageError(err.Error())
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, flags *pflag.FlagSet) {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	str("spec", &cfg.Spec)
	str("base-url", &cfg.BaseURL)
	str("token", &cfg.Token)
	str("debug-file", &cfg.DebugFile)
	str("log-level", &cfg.LogLevel)
	boolean("debug", &cfg.Debug)
	boolean("request-id", &cfg.RequestID)
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
}

// setupLogging installs the console and debug file logger used while the
// document loads. The returned writer is the debug file, nil unless enabled.
func setupLogging(cfg config.Config, console io.Writer) (*slog.Logger, io.Writer, func(), error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	var file io.Writer
	closeFn := func() {}
	if cfg.Debug {
		f, err := logging.OpenFile(cfg.DebugFile)
		if err != nil {
			return nil, nil, nil, err
		}
		file = f
		closeFn = func() { _ = f.Close() }
	}
	log := logging.New(logging.Config{Level: level, File: file, Console: console})
	slog.SetDefault(log)
	return log, file, closeFn, nil
}

func normalizeBaseURL(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
		return strings.TrimRight(in, "/")
	}
	return strings.TrimRight("http://"+in, "/")
}

// resolveBaseURL picks the base URL calls are sent to: the configured one,
// else the document's first server, resolved against the document URL when
// it is relative, else the directory the document was fetched from.
func resolveBaseURL(configured, spec, server string) string {
	if u := normalizeBaseURL(configured); u != "" {
		return u
	}
	if su, err := url.Parse(server); err == nil && su.IsAbs() {
		return strings.TrimRight(server, "/")
	}
	specURL, err := url.Parse(strings.TrimSpace(spec))
	if err != nil || (specURL.Scheme != "http" && specURL.Scheme != "https") {
		return server
	}
	specURL.Fragment = ""
	specURL.RawQuery = ""
	if server != "" {
		if ref, err := url.Parse(server); err == nil {
			return strings.TrimRight(specURL.ResolveReference(ref).String(), "/")
		}
	}
	specURL.Path = path.Dir(specURL.Path)
	if specURL.Path == "." || specURL.Path == "/" {
		specURL.Path = ""
	}
	return strings.TrimRight(specURL.String(), "/")
}

// exitCode maps an error from Execute to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case isUsage(err):
		return 2
	default:
		return 1
	}
}

func isUsage(err error) bool {
	return errors.Is(err, ErrUsage)
}

// Main runs the CLI and exits the process.
func Main() {
	err := Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
