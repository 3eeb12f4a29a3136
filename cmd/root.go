package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "oggplay",
	Short: "Ogg Theora/Vorbis decode-scheduling and playback engine",
	Long: `oggplay drives an Ogg container's audio and video streams through a
goal-PTS decode scheduler and a wall/audio-clock-synchronized render loop.

Features:
  - Goal-PTS lookahead scheduling decoupled from rendering
  - Real Vorbis audio decode, pluggable video source
  - PortAudio output with ringbuffer-backed pull
  - Real-time status reporting

Commands:
  - play: Open and play an Ogg file`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
