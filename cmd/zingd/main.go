package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zing-audio/zing/internal/audio"
	"github.com/zing-audio/zing/internal/config"
	"github.com/zing-audio/zing/internal/daemon"
	"github.com/zing-audio/zing/internal/logging"
	"github.com/zing-audio/zing/internal/melody"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "zingd",
	Short: "Tone player daemon",
	Long: `zingd listens on a unix socket for play, stop, pause and resume
commands and plays notemap melodies on the default sound device.`,
	Args:          cobra.NoArgs,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "JSON config file")
	f.String("socket", "", "unix socket to listen on")
	f.String("http", "", "also serve the HTTP control API on this address")
	f.StringSlice("http-origin", nil, "browser origin allowed to use the HTTP API (repeatable)")
	f.String("log-level", "", "debug|info|warn|error")
	f.Int("sample-rate", 0, "output sample rate")
	f.Bool("play-final-chord", false, "also play the last chord of a melody")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "zingd:", err)
		os.Exit(1)
	}
}

// loadConfig layers the config file, the environment and explicit flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("socket") {
		cfg.SocketPath, _ = f.GetString("socket")
	}
	if f.Changed("http") {
		cfg.HTTPAddr, _ = f.GetString("http")
	}
	if f.Changed("http-origin") {
		cfg.HTTPOrigins, _ = f.GetStringSlice("http-origin")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("sample-rate") {
		cfg.SampleRate, _ = f.GetInt("sample-rate")
	}
	if f.Changed("play-final-chord") {
		cfg.PlayFinalChord, _ = f.GetBool("play-final-chord")
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	speaker, err := audio.NewSpeaker(cfg.SampleRate)
	if err != nil {
		return err
	}
	defer speaker.Close()

	player := melody.NewPlayer(speaker,
		melody.WithLogger(logger),
		melody.WithPlayFinalChord(cfg.PlayFinalChord),
	)
	defer func() {
		if err := player.Stop(); err != nil {
			logger.Error("could not stop player", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("zingd starting", "socket", cfg.SocketPath, "http", cfg.HTTPAddr, "sampleRate", cfg.SampleRate)
	return daemon.Run(ctx, cfg, player, logger)
}
