package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zing-audio/zing"
)

func init() {
	rootCmd.AddCommand(
		transportCmd("stop", "Stop playback and rewind", (*zing.Player).Stop),
		transportCmd("pause", "Pause playback at the current chord", (*zing.Player).Pause),
		transportCmd("resume", "Resume paused playback", (*zing.Player).Resume),
	)
}

func transportCmd(name, short string, send func(*zing.Player, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
			defer cancel()
			return send(newPlayer(), ctx)
		},
	}
}
