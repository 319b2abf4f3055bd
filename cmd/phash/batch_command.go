package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/phash/internal/batch"
	"github.com/GriffinCanCode/phash/internal/cache"
	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/logging"
)

type batchFlags struct {
	json      bool
	threshold int
	workers   int
	cache     string
	progress  bool
}

type batchFile struct {
	Path   string `json:"path"`
	Hash   string `json:"hash,omitempty"`
	Bits   int    `json:"bits,omitempty"`
	Format string `json:"format,omitempty"`
	Cached bool   `json:"cached,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

type batchReport struct {
	Files     []batchFile  `json:"files"`
	Threshold int          `json:"threshold"`
	Pairs     []batch.Pair `json:"pairs"`
	Groups    [][]string   `json:"groups"`
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "batch [flags] <files|dirs...>",
		Short: "Fingerprint many images and list near duplicates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				flags.threshold = cfg.Batch.Threshold
			}
			if !cmd.Flags().Changed("workers") {
				flags.workers = cfg.Batch.Workers
			}
			if !cmd.Flags().Changed("cache") {
				flags.cache = cfg.Batch.CachePath
			}
			if !cmd.Flags().Changed("progress") {
				flags.progress = !flags.json && logging.IsTerminal(cmd.ErrOrStderr())
			}
			if flags.threshold < 0 || flags.workers < 0 {
				return apperrors.New(apperrors.CodeInvalidInput, "threshold and workers must be >= 0")
			}
			return runBatch(cmd, ctx, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.json, "json", false, "Write a JSON report")
	cmd.Flags().IntVar(&flags.threshold, "threshold", 0, "Report pairs at or below this Hamming distance")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Parallel workers (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&flags.cache, "cache", "", "SQLite fingerprint cache path")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "Show a progress bar on stderr")
	return cmd
}

func runBatch(cmd *cobra.Command, ctx *commandContext, args []string, flags batchFlags) error {
	paths, err := batch.Expand(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "no images found")
	}

	hasher, err := ctx.hasher()
	if err != nil {
		return err
	}
	opts := batch.Options{
		Hasher:  hasher,
		Decoder: ctx.decoder(),
		Workers: flags.workers,
	}

	closeCache := func() error { return nil }
	if flags.cache != "" {
		store, err := cache.Open(flags.cache)
		if err != nil {
			return err
		}
		batcher := cache.NewBatcher(store, cache.DefaultBatcherMaxSize, cache.DefaultBatcherFlushDelay)
		opts.Cache = batcher
		closeCache = func() error {
			return errors.Join(batcher.Close(), store.Close())
		}
	}

	if flags.progress {
		bar := progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("hashing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		opts.Progress = func(int, int) { _ = bar.Add(1) }
		defer func() { _ = bar.Finish() }()
	}

	results, runErr := batch.Run(cmd.Context(), paths, opts)
	if err := errors.Join(runErr, closeCache()); err != nil {
		return err
	}

	pairs := batch.Pairs(results, flags.threshold)
	groups := batch.Groups(pairs)

	if flags.json {
		if err := writeJSON(cmd, newBatchReport(results, flags.threshold, pairs, groups)); err != nil {
			return err
		}
	} else {
		printBatch(cmd, results, flags.threshold, pairs, groups)
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func newBatchReport(results []batch.Result, threshold int, pairs []batch.Pair, groups [][]string) batchReport {
	report := batchReport{
		Files:     make([]batchFile, 0, len(results)),
		Threshold: threshold,
		Pairs:     pairs,
		Groups:    groups,
	}
	if report.Pairs == nil {
		report.Pairs = []batch.Pair{}
	}
	if report.Groups == nil {
		report.Groups = [][]string{}
	}
	for _, r := range results {
		f := batchFile{Path: r.Path, Format: r.Format, Cached: r.Cached}
		if r.OK() {
			f.Hash = r.Hash.Hex()
			f.Bits = r.Hash.Len()
		} else {
			f.Error = rootCause(r.Err)
			f.Code = apperrors.CodeOf(r.Err).String()
		}
		report.Files = append(report.Files, f)
	}
	return report
}

func printBatch(cmd *cobra.Command, results []batch.Result, threshold int, pairs []batch.Pair, groups [][]string) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		switch {
		case !r.OK():
			rows = append(rows, []string{r.Path, "", r.Format, "error: " + rootCause(r.Err)})
		case r.Cached:
			rows = append(rows, []string{r.Path, r.Hash.Hex(), r.Format, "cached"})
		default:
			rows = append(rows, []string{r.Path, r.Hash.Hex(), r.Format, "ok"})
		}
	}
	fmt.Fprintln(out, renderTable([]string{"Path", "Hash", "Format", "Status"}, rows, nil))

	if len(pairs) == 0 {
		fmt.Fprintf(out, "\nNo near duplicates (distance <= %d)\n", threshold)
		return
	}

	pairRows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		pairRows = append(pairRows, []string{p.A, p.B, strconv.Itoa(p.Distance)})
	}
	fmt.Fprintf(out, "\nNear duplicates (distance <= %d)\n", threshold)
	fmt.Fprintln(out, renderTable([]string{"A", "B", "Distance"}, pairRows,
		[]columnAlignment{alignLeft, alignLeft, alignRight}))

	fmt.Fprintln(out, "\nGroups")
	for i, g := range groups {
		fmt.Fprintf(out, "  %d: %s\n", i+1, strings.Join(g, ", "))
	}
}
