// Package cli implements the hijack-notifier command line: the long-running
// serve command, a one-shot purge, and version reporting.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/hijack-notifier/internal/config"
	"github.com/tbourn/hijack-notifier/internal/sysutil"
)

// VersionInfo is set at build time through ldflags.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// App represents the CLI application.
type App struct {
	rootCmd *cobra.Command

	envFile     string
	versionInfo VersionInfo

	// loadConfig is replaced in tests.
	loadConfig func() (config.Config, error)
}

// New creates the CLI application with all subcommands registered.
func New() *App {
	app := &App{loadConfig: config.Load}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion sets the version reported by the version command and the
// OpenTelemetry resource.
func (a *App) SetVersion(version, commit, date string) {
	a.versionInfo = VersionInfo{Version: version, Commit: commit, Date: date}
}

func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "hijack-notifier",
		Short: "Escalating hijack alerts over push and SMS",
		Long: `hijack-notifier polls the hijack feed, broadcasts a push notification for
every newly detected hijack and escalates to SMS for users that did not
acknowledge it in time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env",
		"Optional dotenv file loaded before reading the environment")

	a.rootCmd.AddCommand(
		NewServeCmd(a),
		NewPurgeCmd(a),
		NewVersionCmd(a),
	)
}

// bootstrap loads the dotenv file and the configuration and installs the
// global logger.
func (a *App) bootstrap() (config.Config, error) {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !os.IsNotExist(err) {
			return config.Config{}, err
		}
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return config.Config{}, err
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	sysutil.ConfigureLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)
	log.Debug().Str("env_file", a.envFile).Msg("configuration loaded")
	return cfg, nil
}
