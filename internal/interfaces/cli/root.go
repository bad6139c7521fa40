package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pagesmith.dev/engine/internal/application/router"
	"pagesmith.dev/engine/internal/infrastructure/config"
	"pagesmith.dev/engine/internal/interfaces/di"
	"pagesmith.dev/engine/internal/interfaces/httpapi"
)

const annotationConfigOptional = "config-optional"

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// App holds the state shared by every command of one invocation.
type App struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	styles styles

	config    config.Config
	container *di.Container
}

// NewApp creates an application writing to stdout and stderr.
func NewApp(stdin io.Reader, stdout, stderr io.Writer) *App {
	return &App{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		styles: newStyles(lipgloss.NewRenderer(stdout)),
	}
}

// NewRootCommand builds the command tree.
func (a *App) NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagesmith",
		Short: "Pagesmith - page modifier plugin engine",
		Long: `Pagesmith stores page modifier plugins, decides which of them apply to
a page, and enforces the configured security level before any plugin runs.

Run "pagesmith serve" to expose the engine to page contexts, or use the
plugins and settings commands to manage the store directly.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a.config = cfg
			return nil
		},
	}
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file path (default is $XDG_CONFIG_HOME/pagesmith/config.yaml)")
	flags.String("data-path", "", "Path of the plugin database")
	flags.String("storage-backend", "", "Storage backend: bolt, sqlite or memory")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("listen-addr", "", "Address the serve command listens on")
	flags.String("server", "", "Send plugin and settings commands to a running server at this URL")

	rootCmd.AddCommand(a.newPluginsCommand())
	rootCmd.AddCommand(a.newSettingsCommand())
	rootCmd.AddCommand(a.newConfigCommand())
	rootCmd.AddCommand(a.newServeCommand())

	return rootCmd
}

// open returns the container, creating it on first use.
func (a *App) open(ctx context.Context) (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	container, err := di.NewContainer(ctx, a.config, a.stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	a.container = container
	return container, nil
}

// dispatcher is served by the in-process router or a remote server.
type dispatcher interface {
	Dispatch(ctx context.Context, req router.Request) (router.Response, error)
}

type localDispatcher struct {
	router *router.Router
}

func (d localDispatcher) Dispatch(ctx context.Context, req router.Request) (router.Response, error) {
	return d.router.Dispatch(ctx, req), nil
}

// send dispatches req locally, or to the configured server, and turns a
// failed response into an error.
func (a *App) send(ctx context.Context, req router.Request) (router.Response, error) {
	var d dispatcher
	if a.config.ServerURL != "" {
		d = httpapi.NewClient(a.config.ServerURL)
	} else {
		c, err := a.open(ctx)
		if err != nil {
			return router.Response{}, err
		}
		d = localDispatcher{router: c.Router}
	}

	resp, err := d.Dispatch(ctx, req)
	if err != nil {
		return resp, err
	}
	if resp.Error != nil {
		return resp, resp.Error
	}
	return resp, nil
}

// Close releases the container if one was opened.
func (a *App) Close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Shutdown()
	a.container = nil
	return err
}

// Run executes the command line args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	rootCmd := a.NewRootCommand()
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if closeErr := a.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		fmt.Fprintln(a.stderr, a.styles.err.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

// Execute runs the CLI against the process arguments.
func Execute(ctx context.Context) int {
	return NewApp(os.Stdin, os.Stdout, os.Stderr).Run(ctx, os.Args[1:])
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// loadConfig layers defaults, the config file and the environment, then
// applies flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	loader := config.NewLoader(path)
	if cmd.Annotations[annotationConfigOptional] == "true" {
		// The command creates the file, so it may not exist yet.
		loader = &config.Loader{}
		loader.AddSource(config.NewFileSource(configPath(cmd), false))
		loader.AddSource(config.NewEnvSource())
	}
	loader.AddSource(flagSource{flags: cmd.Flags()})

	cfg, err := loader.Load()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
