package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/randalmurphal/redmine/config"
	clierrors "github.com/randalmurphal/redmine/errors"
	"github.com/randalmurphal/redmine/redmine"
)

// app carries the state shared by every command.
type app struct {
	out    io.Writer
	errOut io.Writer

	configOpts config.Options
	dotenv     []string
	httpClient *http.Client

	url       string
	apiKey    string
	project   string
	retryWait string
	timeout   string
	verbose   bool

	logger   *slog.Logger
	resolver *config.Resolver
	settings *config.Settings
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:    out,
		errOut: errOut,
		dotenv: []string{".env"},
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "redmine",
		Short: "Read and update Redmine issues",
		Long: `redmine talks to the Redmine REST API with an api key.

Requests that fail are retried with a fixed wait (60s by default) up to
10 attempts; a rejected api key fails at once.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	bindConnectionFlags(root.PersistentFlags(), a)

	root.AddCommand(
		a.issuesCmd(),
		a.issueCmd(),
		a.updateCmd(),
		a.assignAuthorCmd(),
		a.uploadCmd(),
		a.downloadCmd(),
		a.configCmd(),
	)
	return root
}

func bindConnectionFlags(fs *pflag.FlagSet, a *app) {
	fs.StringVar(&a.url, "url", "", "Redmine base URL (env REDMINE_URL)")
	fs.StringVar(&a.apiKey, "api-key", "", "API key (env REDMINE_API_KEY)")
	fs.StringVarP(&a.project, "project", "p", "", "project identifier (env REDMINE_PROJECT)")
	fs.StringVar(&a.retryWait, "retry-wait", "", "wait between attempts, e.g. 60s (env REDMINE_RETRY_WAIT)")
	fs.StringVar(&a.timeout, "timeout", "", "per-attempt timeout, e.g. 30s (env REDMINE_TIMEOUT)")
	fs.BoolVarP(&a.verbose, "verbose", "v", false, "log every request")
}

// setup loads .env, builds the logger and resolves settings.
func (a *app) setup(*cobra.Command, []string) error {
	if len(a.dotenv) > 0 {
		if err := godotenv.Load(a.dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	opts := a.configOpts
	opts.Logger = a.logger
	a.resolver = config.NewResolver(opts)
	a.settings = a.resolver.ResolveWithFlags(map[string]string{
		config.KeyURL:       a.url,
		config.KeyAPIKey:    a.apiKey,
		config.KeyProject:   a.project,
		config.KeyRetryWait: a.retryWait,
		config.KeyTimeout:   a.timeout,
	})
	return nil
}

// client builds a Redmine client from the resolved settings.
func (a *app) client() (*redmine.Client, error) {
	cfg, err := a.settings.RedmineConfig()
	if err != nil {
		return nil, err
	}

	opts := []redmine.ClientOption{redmine.WithLogger(a.logger)}
	if a.httpClient != nil {
		opts = append(opts, redmine.WithHTTPClient(a.httpClient))
	}
	return redmine.NewClient(cfg, opts...)
}

// projectOrDefault returns the resolved project or a guided error.
func (a *app) projectOrDefault() (string, error) {
	if p := a.settings.Project(); p != "" {
		return p, nil
	}
	return "", clierrors.NewNoProjectError()
}

func (a *app) serverURL() string {
	if a.settings == nil {
		return ""
	}
	return a.settings.Get(config.KeyURL)
}
