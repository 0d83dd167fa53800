// Command dicectl is an offline companion to the 421 server. It prints the
// combo table, validates preset files and runs all-bot matches to check how
// a stock size and table size play out.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/dice421/game/engine"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "dicectl",
		Usage: "421 dice tooling",
		Commands: []*cli.Command{
			{
				Name:   "combos",
				Usage:  "print every combo, strongest first",
				Action: runCombos,
			},
			{
				Name:      "validate",
				Usage:     "validate the preset files of a configs directory",
				ArgsUsage: "[dir]",
				Action:    runValidate,
			},
			{
				Name:  "simulate",
				Usage: "play all-bot matches and report the outcome distribution",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "matches", Aliases: []string{"n"}, Value: 1000, Usage: "number of matches"},
					&cli.IntFlag{Name: "players", Aliases: []string{"p"}, Value: 4, Usage: "bots per match"},
					&cli.IntFlag{Name: "tokens", Aliases: []string{"t"}, Value: 21, Usage: "stock size"},
					&cli.IntFlag{Name: "seed", Value: 1, Usage: "first roller seed, match i uses seed+i"},
				},
				Action: runSimulate,
			},
		},
	}
}

func runCombos(ctx context.Context, cmd *cli.Command) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(comboTable(engine.Combos())).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, out)
	return nil
}

// comboTable lays out the combo list with a header row.
func comboTable(combos []engine.ComboInfo) pterm.TableData {
	data := pterm.TableData{{"Combo", "Power", "Tokens", "Odds"}}
	for _, c := range combos {
		data = append(data, []string{
			c.Key,
			fmt.Sprintf("%d", c.Power),
			fmt.Sprintf("%d", c.Score),
			fmt.Sprintf("%d/216", c.Ways),
		})
	}
	return data
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		dir = "configs"
	}

	results, err := validateDir(dir)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return cli.Exit(fmt.Sprintf("no preset files in %s", dir), 1)
	}

	allValid := true
	for _, result := range results {
		if result.Valid {
			pterm.Success.Println(result.File)
			for _, info := range result.Errors {
				pterm.Println("  " + info)
			}
			continue
		}
		allValid = false
		pterm.Error.Println(result.File)
		for _, msg := range result.Errors {
			pterm.Println("  ❌ " + msg)
		}
	}

	if !allValid {
		return cli.Exit("some presets have errors", 1)
	}
	pterm.Success.Println("All presets are valid!")
	return nil
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	stats, err := simulate(ctx, SimulationParams{
		Matches: cmd.Int("matches"),
		Players: cmd.Int("players"),
		Tokens:  cmd.Int("tokens"),
		Seed:    uint64(cmd.Int("seed")),
	})
	if err != nil {
		return err
	}

	pterm.Info.Printfln("%d matches, %d bots, %d tokens", stats.Matches, stats.Players, stats.Tokens)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(stats.seatTable()).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, out)

	finished := stats.Matches - stats.Stalled
	if finished > 0 {
		pterm.Println(fmt.Sprintf("Average rolls per match: %.1f", float64(stats.Rolls)/float64(finished)))
		pterm.Println(fmt.Sprintf("Reached phase 2: %.1f%%", 100*float64(stats.Phase2)/float64(stats.Matches)))
	}
	if stats.Stalled > 0 {
		pterm.Warning.Printfln("%d matches hit the step limit", stats.Stalled)
	}
	return nil
}
