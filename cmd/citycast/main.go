package main

import (
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/citycast/internal/cities"
	"github.com/pders01/citycast/internal/config"
	"github.com/pders01/citycast/internal/debuglog"
	"github.com/pders01/citycast/internal/launch"
	"github.com/pders01/citycast/internal/tui"
	"github.com/pders01/citycast/internal/weather"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	logLevel   string
	quiet      bool

	outputPath   string
	countryCode  string
	weatherStyle string
	weatherWidth int
)

var rootCmd = &cobra.Command{
	Use:           "citycast",
	Short:         "Browse world cities and their current weather",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "citycast %s\n", Version)
		fmt.Fprintln(out, "City browser with live weather")
		fmt.Fprintln(out, "github.com/pders01/citycast")
	},
}

var configGenCmd = &cobra.Command{
	Use:   "generate-config",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := outputPath
		if path == "" {
			path = config.Path()
		}
		if err := config.GenerateDefaultConfig(path); err != nil {
			return fmt.Errorf("failed to generate config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
		return nil
	},
}

var weatherCmd = &cobra.Command{
	Use:   "weather <city>",
	Short: "Print the current weather for a city",
	Args:  cobra.ExactArgs(1),
	RunE:  runWeather,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, off); overrides log.level")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "skip startup banner")

	configGenCmd.Flags().StringVarP(&outputPath, "output", "o", "", "where to write the file (default "+config.Path()+")")

	weatherCmd.Flags().StringVarP(&countryCode, "country", "c", "", "ISO country code to disambiguate the city")
	weatherCmd.Flags().StringVar(&weatherStyle, "style", "auto", "glamour style (auto, dark, light, notty)")
	weatherCmd.Flags().IntVar(&weatherWidth, "width", 80, "wrap width")

	rootCmd.AddCommand(versionCmd, configGenCmd, weatherCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration, then starts the file
// logger at the configured or flagged level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if err := debuglog.Setup(debuglog.ParseLogLevel(level), cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	if !quiet {
		tui.ShowBanner(Version)
	}

	source, err := cities.NewHTTPSource(cfg)
	if err != nil {
		return err
	}

	// The list works without weather; lookups then report the problem.
	var provider tui.WeatherProvider
	if client, err := weather.NewClient(cfg); err != nil {
		debuglog.Warnf("weather disabled: %v", err)
	} else {
		provider = client
	}

	app := tui.NewApp(cfg, source, provider, launch.NewLauncher(cfg))
	p := tea.NewProgram(app, tea.WithMouseCellMotion())

	debuglog.Infof("starting citycast %s", Version)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func runWeather(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	client, err := weather.NewClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	report, err := client.Current(ctx, args[0], countryCode)
	if err != nil {
		return err
	}

	out, err := weather.NewRenderer(weatherStyle).Render(report, weatherWidth)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
