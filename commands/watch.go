package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/penwyp/go-rhythm-fusion/internal/analyzer"
	"github.com/penwyp/go-rhythm-fusion/internal/util"
	"github.com/spf13/cobra"
)

var (
	watchOutDir   string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Re-export timelines whenever estimates files change",
	Long: `Watches a directory tree for writes to "<stem>.rhythm.json" files. Bursts of
writes are coalesced; each changed estimates file is fused again and its record
re-exported. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchOutDir, "out-dir", "o", "",
		"Directory for exported records (default: beside each input)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond,
		"Quiet period before changed files are processed")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	config, err := setup(cmd)
	if err != nil {
		return err
	}
	config.Debounce = watchDebounce
	if watchOutDir != "" {
		config.OutDir = util.ExpandPath(watchOutDir)
		if err := util.EnsureDir(config.OutDir); err != nil {
			return err
		}
	}

	a, err := newAnalyzer(config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	return a.Watch(ctx, util.ExpandPath(args[0]), func(r analyzer.WatchResult) {
		if r.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", r.Input, r.Err)
			return
		}
		fmt.Fprintf(out, "updated %s\n", r.Output)
	})
}
