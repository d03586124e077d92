package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"emojigrid/internal/grid"
)

// preferredTotals is the curated set of pack sizes the upload UI suggests.
// Purely presentational; the planner itself only honours the hard bounds.
var preferredTotals = []int{12, 16, 20, 24, 30, 36}

// planCmd previews the grid geometry for a source of the given dimensions.
var planCmd = &cobra.Command{
	Use:   "plan [width] [height]",
	Short: "Preview the grid geometry chosen for the given source dimensions",
	Long: `Computes the grid a source of the given pixel dimensions would be
sliced into, without touching any file. Parts are made as square as
possible while each stays at or above the minimum fragment size and the
total tile count stays within the pack limit.

Example:
  emojigrid plan 1000 600`,
	Args: cobra.ExactArgs(2),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	width, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid width %q: %w", args[0], err)
	}
	height, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid height %q: %w", args[1], err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := grid.Options{
		TileSize:    cfg.Grid.TileSize,
		MinFragment: cfg.Grid.MinFragmentSize,
		MaxTotal:    cfg.Grid.MaxTotalTiles,
	}
	g, err := grid.Plan(width, height, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Source:  %dx%d px\n", width, height)
	fmt.Printf("Grid:    %s (%d tiles)\n", g, g.Total())
	fmt.Printf("Canvas:  %dx%d px (%dpx tiles)\n",
		g.Cols*opts.TileSize, g.Rows*opts.TileSize, opts.TileSize)

	if !isPreferredTotal(g.Total()) {
		fmt.Printf("Note:    preferred pack sizes are %v\n", preferredTotals)
	}
	return nil
}

func isPreferredTotal(total int) bool {
	for _, t := range preferredTotals {
		if t == total {
			return true
		}
	}
	return false
}
