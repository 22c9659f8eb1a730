package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/lazypower/memofeed/internal/config"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string

	// cfg is loaded before every command runs.
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:          "memofeed",
	Short:        "A masonry feed of markdown memos",
	Long:         "Memofeed stores short markdown memos in SQLite, serves them over a JSON API, and browses them as an infinite masonry feed in the terminal.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return err
			}
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded

		level := charmlog.InfoLevel
		if verbose {
			level = charmlog.DebugLevel
		}
		cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		return nil
	},
}

// Execute runs the memofeed CLI.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.memofeed/config.toml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(memoCmd)
	rootCmd.AddCommand(seedCmd)
}
