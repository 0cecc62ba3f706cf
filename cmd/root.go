package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanq16/streamz/internal/config"
	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/output"
	"github.com/tanq16/streamz/internal/utils"
	"github.com/tanq16/streamz/internal/worker"
)

var (
	debug         bool
	configPath    string
	helperPath    string
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	headers       []string
	workers       int

	fileConfig   config.File
	globalHelper helper.Config
)

var StreamzVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "streamz",
	Short:   "Streamz resolves and downloads media through yt-dlp",
	Version: StreamzVersion,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		utils.InitLogger(debug)
		f, err := config.Load(configPath)
		if err != nil {
			return err
		}
		fileConfig = f
		globalHelper = mergeHelperConfig(cmd, f)
		if !cmd.Flags().Changed("workers") && f.Workers > 0 {
			workers = f.Workers
		}
		log.Debug().Str("op", "cmd/root").Msgf("helper %s, %d workers", globalHelper.ProgramPath(), workers)
		return nil
	},
}

// mergeHelperConfig layers flags over the config file.
func mergeHelperConfig(cmd *cobra.Command, f config.File) helper.Config {
	cfg := f.HelperConfig()
	flags := cmd.Flags()
	if flags.Changed("helper") {
		cfg.Program = helperPath
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = userAgent
		if userAgent == "randomize" {
			cfg.UserAgent = utils.GetRandomUserAgent()
		}
	}
	if flags.Changed("proxy") {
		cfg.ProxyURL = proxyURL
	}
	if flags.Changed("proxy-username") {
		cfg.ProxyUsername = proxyUsername
	}
	if flags.Changed("proxy-password") {
		cfg.ProxyPassword = proxyPassword
	}
	if len(headers) > 0 {
		merged := make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			merged[k] = v
		}
		for k, v := range utils.ParseHeaderArgs(headers) {
			merged[k] = v
		}
		cfg.Headers = merged
	}
	return cfg
}

// locateHelper resolves the helper executable once per command, downloading
// it when nothing is installed.
func locateHelper(ctx context.Context) (helper.Config, error) {
	cfg := globalHelper
	path, err := helper.Locate(ctx, cfg, true)
	if err != nil {
		return cfg, err
	}
	cfg.Program = path
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func fail(format string, args ...any) {
	output.PrintError(fmt.Sprintf(format, args...))
	os.Exit(1)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/streamz/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&helperPath, "helper", "", "Path to the yt-dlp executable (downloaded when missing)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", "", "User agent passed to yt-dlp ('randomize' picks one)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Cookie: a=b'); can be specified multiple times")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", worker.DefaultWorkers, "Number of yt-dlp processes running in parallel")

	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCleanCacheCmd())
	rootCmd.AddCommand(newUpgradeCmd())
	rootCmd.AddCommand(newExtractorsCmd())
	rootCmd.AddCommand(newSupportsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
