package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zing-audio/zing"
)

var (
	outputPath       string
	renderSampleRate int
)

var exportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Write a notemap as a Standard MIDI File",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := compileArgs(args)
		if err != nil {
			return err
		}
		return writeOutput(func(f *os.File) error { return zing.ExportMIDI(f, data) })
	},
}

var renderCmd = &cobra.Command{
	Use:   "render [FILE]",
	Short: "Render a notemap to a WAV file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := compileArgs(args)
		if err != nil {
			return err
		}
		return writeOutput(func(f *os.File) error { return zing.RenderWAV(f, data, renderSampleRate) })
	},
}

func init() {
	for _, cmd := range []*cobra.Command{exportCmd, renderCmd} {
		cmd.Flags().DurationVarP(&chordDuration, "chord-duration", "d", zing.DefaultChordDuration, "duration of one notemap column")
		cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (required)")
		cmd.MarkFlagRequired("output")
	}
	renderCmd.Flags().IntVar(&renderSampleRate, "sample-rate", zing.DefaultSampleRate, "output sample rate")
	rootCmd.AddCommand(exportCmd, renderCmd)
}

func compileArgs(args []string) (zing.PlayData, error) {
	text, err := readNotemap(args)
	if err != nil {
		return zing.PlayData{}, err
	}
	return zing.Compile(text, chordDuration)
}

func writeOutput(write func(*os.File) error) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(outputPath)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", outputPath, err)
	}
	return nil
}
