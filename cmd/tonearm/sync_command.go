package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tonearm/internal/chooser"
	"tonearm/internal/reconcile"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var (
		sourcesFlag  []string
		primaryFlag  string
		maxDistance  float64
		dryRun       bool
		force        bool
		refreshCache bool
		writeFlag    bool
		autoAccept   bool
	)

	cmd := &cobra.Command{
		Use:   "sync [query]",
		Short: "Reconcile library albums against the configured sources",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, err := ctx.openLibrary()
			if err != nil {
				return fmt.Errorf("open library: %w", err)
			}
			defer store.Close()

			cache, err := ctx.openCache()
			if err != nil {
				return fmt.Errorf("open match cache: %w", err)
			}
			defer cache.Close()

			registry, err := ctx.buildRegistry()
			if err != nil {
				return err
			}

			opts := reconcile.Options{
				Sources:      cfg.Sources.Enabled,
				Primary:      cfg.Sources.Primary,
				SearchLimit:  cfg.Reconcile.SearchLimit,
				DryRun:       dryRun,
				Force:        force,
				RefreshCache: refreshCache,
				Write:        cfg.Reconcile.Write,
			}
			if len(args) == 1 {
				opts.Query = args[0]
			}
			if cmd.Flags().Changed("sources") {
				opts.Sources = sourcesFlag
			}
			if cmd.Flags().Changed("primary") {
				opts.Primary = primaryFlag
			}
			if cmd.Flags().Changed("write") {
				opts.Write = writeFlag
			}
			ceiling := cfg.Reconcile.MaxDistance
			if cmd.Flags().Changed("max-distance") {
				ceiling = maxDistance
			}
			if ceiling > 0 {
				opts.MaxDistance = &ceiling
			}

			var picker chooser.Chooser = chooser.NewTerminalChooser()
			if autoAccept || !isatty.IsTerminal(os.Stdin.Fd()) {
				picker = chooser.AutoChooser{}
			}

			coordinator := reconcile.NewCoordinator(store, cache, registry,
				reconcile.NewScorer(), picker, ctx.lockPath(), logger)
			summary, err := coordinator.Run(cmd.Context(), opts)
			if summary != nil {
				renderSummary(cmd, summary, dryRun)
			}
			if errors.Is(err, reconcile.ErrAborted) {
				fmt.Fprintln(cmd.OutOrStdout(), "Run aborted.")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringSliceVar(&sourcesFlag, "sources", nil, "Sources to reconcile, in priority order")
	cmd.Flags().StringVar(&primaryFlag, "primary", "", "Source whose descriptive fields win")
	cmd.Flags().Float64Var(&maxDistance, "max-distance", 0, "Match acceptance ceiling (0 disables)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report changes without persisting anything")
	cmd.Flags().BoolVar(&force, "force", false, "Ignore cached matches and stored provider IDs")
	cmd.Flags().BoolVar(&refreshCache, "refresh-cache", false, "Ignore cached matches but honor stored IDs")
	cmd.Flags().BoolVar(&writeFlag, "write", true, "Persist merged fields to the library")
	cmd.Flags().BoolVarP(&autoAccept, "yes", "y", false, "Accept the best candidate without prompting")
	return cmd
}

func renderSummary(cmd *cobra.Command, summary *reconcile.Summary, dryRun bool) {
	out := cmd.OutOrStdout()

	for _, report := range summary.Albums {
		if len(report.Changes) == 0 && report.Err == nil {
			continue
		}
		fmt.Fprintf(out, "\n%s - %s (album %d)\n", report.Artist, report.Title, report.AlbumID)
		if report.Err != nil {
			fmt.Fprintf(out, "  error: %v\n", report.Err)
			continue
		}
		rows := make([][]string, 0, len(report.Changes))
		for _, change := range report.Changes {
			old := change.Old
			if old == "" {
				old = "-"
			}
			rows = append(rows, []string{
				change.Entity, fmt.Sprintf("%d", change.ID), change.Field, old, change.New,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Entity", "ID", "Field", "Old", "New"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft}))
	}

	verb := "applied"
	if dryRun {
		verb = "would apply"
	}
	fmt.Fprintf(out, "\nRun %s: %d albums, %d matches, %d skips, %d failures; %s %d changes.\n",
		summary.RunID, len(summary.Albums), summary.Matched, summary.Skipped,
		summary.Failed, verb, summary.TotalChanges())

	skips := make(map[string]int)
	for _, report := range summary.Albums {
		for _, result := range report.Results {
			if result.Skipped && result.Reason != "" {
				skips[result.Reason]++
			}
		}
	}
	if len(skips) > 0 {
		parts := make([]string, 0, len(skips))
		for _, reason := range []string{
			reconcile.ReasonCachedDistanceThreshold,
			reconcile.ReasonNoTrackMapping,
			reconcile.ReasonNoCandidates,
			reconcile.ReasonDistanceThreshold,
			reconcile.ReasonUserSkipped,
			reconcile.ReasonUnsupportedAction,
			reconcile.ReasonNoSelection,
		} {
			if count := skips[reason]; count > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", reason, count))
			}
		}
		fmt.Fprintf(out, "Skip reasons: %s\n", strings.Join(parts, " "))
	}
}
