package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zing-audio/zing"
	"github.com/zing-audio/zing/internal/config"
)

var (
	socketPath    string
	chordDuration time.Duration
	sendTimeout   = 5 * time.Second
)

var rootCmd = &cobra.Command{
	Use:   "zing [FILE]",
	Short: "Play notemaps through the zingd daemon",
	Long: `zing compiles a notemap and sends it to a running zingd daemon.
With no subcommand it behaves like "zing play". FILE defaults to stdin.`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runPlay,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var playCmd = &cobra.Command{
	Use:   "play [FILE]",
	Short: "Compile a notemap and start playing it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlay,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", config.SocketPath(), "daemon socket path")
	for _, cmd := range []*cobra.Command{rootCmd, playCmd} {
		cmd.Flags().DurationVarP(&chordDuration, "chord-duration", "d", zing.DefaultChordDuration, "duration of one notemap column")
	}
	rootCmd.AddCommand(playCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "zing:", err)
		os.Exit(1)
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	text, err := readNotemap(args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()
	return newPlayer().PlayNotemap(ctx, text)
}

func newPlayer() *zing.Player {
	return zing.NewPlayer(zing.WithSocket(socketPath), zing.WithChordDuration(chordDuration))
}

// readNotemap reads the named file, or stdin when no file or "-" is given.
func readNotemap(args []string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}
