package commands

import (
	"fmt"
	"runtime"

	"github.com/penwyp/go-rhythm-fusion/internal/util"
	"github.com/spf13/cobra"
)

var (
	batchOutDir      string
	batchConcurrency int
	batchNoProgress  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Fuse every audio or estimates file below a directory",
	Long: `Scans a directory tree for audio files and standalone "<stem>.rhythm.json"
estimates, fuses each input independently and writes "<stem>.timeline.<ext>"
into --out-dir (default: beside the input). Inputs whose estimates and settings
are unchanged since the last run are served from the cache.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchOutDir, "out-dir", "o", "",
		"Directory for exported records (default: beside each input)")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "j", runtime.NumCPU(),
		"Number of inputs fused in parallel")
	batchCmd.Flags().BoolVar(&batchNoProgress, "no-progress", false,
		"Hide the progress bar")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	config, err := setup(cmd)
	if err != nil {
		return err
	}
	if batchConcurrency > 0 {
		config.Concurrency = batchConcurrency
	}
	if batchOutDir != "" {
		config.OutDir = util.ExpandPath(batchOutDir)
	}
	if !batchNoProgress {
		config.Progress = cmd.ErrOrStderr()
	}

	a, err := newAnalyzer(config)
	if err != nil {
		return err
	}

	stats, err := a.RunBatch(cmd.Context(), util.ExpandPath(args[0]))
	if stats != nil {
		fmt.Fprintln(cmd.OutOrStdout(), stats.String())
		for _, f := range stats.Failures() {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", f.FilePath, f.Err)
		}
	}
	return err
}
