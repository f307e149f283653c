// Package main provides the panpara command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// usageError marks a bad invocation, reported with ExitUsage.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(os.Stderr, "Run 'panpara --help' for usage.\n")
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "panpara",
		Short: "Pan-genome paralog matching and clustering",
		Long: `panpara builds a pan-genome paralog table. The first sample is clustered
against itself; every further sample is aligned to the growing reference and
its genes are assigned to existing rows or seed new ones.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	root.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	cobra.OnInitialize(initConfig)

	root.AddCommand(newRunCmd())
	root.AddCommand(newMatchCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("panpara version %s (%s) built %s\n", version, commit, date)
		},
	}
}

func setDefaults() {
	viper.SetDefault("identity", 0.8)
	viper.SetDefault("coverage", 0.8)
	viper.SetDefault("threads", 6)
	viper.SetDefault("blast.program", "blastn")
	viper.SetDefault("blast.evalue", "1e-3")
	viper.SetDefault("blast.num_alignments", 0)
	viper.SetDefault("blast.bin_dir", "")
	viper.SetDefault("mcscanx.enabled", true)
	viper.SetDefault("mcscanx.binary", "MCScanX")
	viper.SetDefault("cache.path", "")
	viper.SetDefault("log.level", "info")
}

// initConfig loads .env, then ~/.panpara.yaml, then PANPARA_* variables.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	setDefaults()
	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetEnvPrefix("PANPARA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: could not read config: %v\n", err)
		}
	}
}

// bindFlags binds the named flags of cmd to viper keys. Binding happens per
// command invocation since several commands share keys.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// requireFlags reports the first empty string flag as a usage error.
func requireFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if v, _ := cmd.Flags().GetString(name); v == "" {
			return usageError{fmt.Errorf("--%s is required", name)}
		}
	}
	return nil
}

// newLogger builds a console logger with a compact time layout and no stack traces.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	levelName := viper.GetString("log.level")
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		levelName = v
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		levelName = "debug"
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, usageError{fmt.Errorf("invalid log level %q", levelName)}
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(level)

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("[15:04:05]")
	encoderConfig.StacktraceKey = ""
	config.EncoderConfig = encoderConfig

	return config.Build()
}
