package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/fruitjar/pkg/aggregate"
	"github.com/sw33tLie/fruitjar/pkg/fruit"
	"github.com/sw33tLie/fruitjar/pkg/jar"
)

// jarCmd represents the jar command
var jarCmd = &cobra.Command{
	Use:   "jar",
	Short: "Inspect and change the jar",
}

// withJar opens the jar, runs fn and closes the jar again.
func withJar(cmd *cobra.Command, fn func(ctx context.Context, s *jar.Store) error) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(context.Background(), sess.Store)
}

var jarShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the fruits in the jar",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withJar(cmd, func(_ context.Context, s *jar.Store) error {
			current := s.Current()
			if asJSON {
				return printJSON(os.Stdout, current)
			}
			printJarFruits(os.Stdout, current)
			if len(current) > 0 {
				printTotals(os.Stdout, aggregate.SumNutrition(current))
			}
			return nil
		})
	},
}

var jarAddCmd = &cobra.Command{
	Use:   "add <id|name>...",
	Short: "Add one or more fruits to the jar as a single change",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := loadCatalog()
		if err != nil {
			return err
		}
		picked, err := resolveFruits(fs, args)
		if err != nil {
			return err
		}
		return withJar(cmd, func(ctx context.Context, s *jar.Store) error {
			added, err := s.AddAll(ctx, picked)
			for _, a := range added {
				fmt.Printf("Added %s (%s)\n", a.Name, a.JarID)
			}
			return err
		})
	},
}

var jarAddGroupCmd = &cobra.Command{
	Use:   "add-group [key]",
	Short: "Add every catalog fruit of a family, order or genus to the jar",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		by, _ := cmd.Flags().GetString("by")
		mode, err := fruit.ParseGroupMode(by)
		if err != nil {
			return err
		}
		key := aggregate.AllFruitsLabel
		if mode != fruit.GroupNone {
			if len(args) == 0 {
				return fmt.Errorf("a %s name is required", strings.ToLower(string(mode)))
			}
			key = args[0]
		}

		fs, err := loadCatalog()
		if err != nil {
			return err
		}
		groups := aggregate.GroupBy(fs, mode)
		members, ok := groups.Get(key)
		if !ok {
			return fmt.Errorf("no %s named %q (available: %s)", strings.ToLower(string(mode)), key, strings.Join(groups.Keys(), ", "))
		}

		return withJar(cmd, func(ctx context.Context, s *jar.Store) error {
			added, err := s.AddAll(ctx, members)
			fmt.Printf("Added %d fruits from %s\n", len(added), key)
			return err
		})
	},
}

var jarRemoveCmd = &cobra.Command{
	Use:   "remove <jarId|position>",
	Short: "Remove one fruit from the jar, by jar id or by 1-based position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJar(cmd, func(ctx context.Context, s *jar.Store) error {
			removed, err := removeRef(ctx, s, args[0])
			if removed.JarID != "" {
				fmt.Printf("Removed %s (%s)\n", removed.Name, removed.JarID)
			}
			return err
		})
	},
}

var jarResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved jar and its whole undo history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ephemeral, _ := cmd.Flags().GetBool("ephemeral"); ephemeral {
			return fmt.Errorf("nothing to reset with --ephemeral")
		}
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()
		if err := jar.Forget(context.Background(), sess.db); err != nil {
			return err
		}
		fmt.Println("Jar and history deleted.")
		return nil
	},
}

// removeRef removes by 1-based position when ref is a number, by jar id
// otherwise, and returns the item that was taken out.
func removeRef(ctx context.Context, s *jar.Store, ref string) (fruit.JarFruit, error) {
	current := s.History().Current()
	if pos, err := strconv.Atoi(ref); err == nil {
		var item fruit.JarFruit
		if pos >= 1 && pos <= len(current) {
			item = current[pos-1]
		}
		return item, s.RemoveAt(ctx, pos-1)
	}
	item, _ := current.Find(ref)
	return item, s.Remove(ctx, ref)
}

var jarClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every fruit from the jar",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJar(cmd, func(ctx context.Context, s *jar.Store) error {
			return s.Clear(ctx)
		})
	},
}

var jarUndoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Undo the last jar change",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJar(cmd, func(ctx context.Context, s *jar.Store) error {
			moved, err := s.Undo(ctx)
			if !moved {
				fmt.Println("Nothing to undo.")
			}
			return err
		})
	},
}

var jarRedoCmd = &cobra.Command{
	Use:   "redo",
	Short: "Redo the last undone jar change",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJar(cmd, func(ctx context.Context, s *jar.Store) error {
			moved, err := s.Redo(ctx)
			if !moved {
				fmt.Println("Nothing to redo.")
			}
			return err
		})
	},
}

var jarTotalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Print the summed calories, sugar and fat of the jar",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withJar(cmd, func(_ context.Context, s *jar.Store) error {
			totals := aggregate.SumNutrition(s.Current())
			if asJSON {
				return printJSON(os.Stdout, totals)
			}
			printTotals(os.Stdout, totals)
			return nil
		})
	},
}

var jarGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Show the jar grouped by family, order or genus, with per-group totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		by, _ := cmd.Flags().GetString("by")
		asJSON, _ := cmd.Flags().GetBool("json")
		mode, err := fruit.ParseGroupMode(by)
		if err != nil {
			return err
		}
		return withJar(cmd, func(_ context.Context, s *jar.Store) error {
			groups := aggregate.GroupBy([]fruit.JarFruit(s.Current()), mode)
			if asJSON {
				return printJSON(os.Stdout, groups)
			}
			for _, g := range groups {
				printGroupHeader(os.Stdout, g.Key, len(g.Items))
				printJarFruits(os.Stdout, g.Items)
				printTotals(os.Stdout, aggregate.SumNutrition(g.Items))
			}
			return nil
		})
	},
}

var jarHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List every snapshot in the undo history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJar(cmd, func(_ context.Context, s *jar.Store) error {
			for _, line := range historyLines(s.History()) {
				fmt.Println(line)
			}
			return nil
		})
	},
}

var jarDistributionCmd = &cobra.Command{
	Use:   "distribution",
	Short: "Show how the jar splits across fruit names",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withJar(cmd, func(_ context.Context, s *jar.Store) error {
			dist := aggregate.Distribution(s.Current())
			if asJSON {
				if dist == nil {
					dist = []aggregate.NameCount{}
				}
				return printJSON(os.Stdout, dist)
			}
			for _, line := range distributionLines(dist, 30) {
				fmt.Println(line)
			}
			return nil
		})
	},
}

// historyLines renders one line per snapshot, marking the cursor with ">".
func historyLines(h jar.History) []string {
	lines := make([]string, 0, len(h.Snapshots))
	for i, snap := range h.Snapshots {
		marker := " "
		if i == h.Index {
			marker = ">"
		}
		contents := "(empty)"
		if len(snap) > 0 {
			names := make([]string, 0, len(snap))
			for _, it := range snap {
				names = append(names, it.Name)
			}
			contents = strings.Join(names, ", ")
		}
		lines = append(lines, fmt.Sprintf("%s %3d  %s", marker, i, contents))
	}
	return lines
}

// distributionLines renders each share as a bar of at most width cells.
func distributionLines(dist []aggregate.NameCount, width int) []string {
	total := 0
	for _, d := range dist {
		total += d.Count
	}
	if total == 0 {
		return []string{"The jar is empty."}
	}
	lines := make([]string, 0, len(dist))
	for _, d := range dist {
		share := float64(d.Count) / float64(total)
		bar := strings.Repeat("#", int(share*float64(width)+0.5))
		lines = append(lines, fmt.Sprintf("%-12s %3d  %5.1f%%  %s", d.Name, d.Count, share*100, bar))
	}
	return lines
}

func init() {
	rootCmd.AddCommand(jarCmd)
	jarCmd.AddCommand(jarShowCmd, jarAddCmd, jarAddGroupCmd, jarRemoveCmd, jarClearCmd, jarResetCmd,
		jarUndoCmd, jarRedoCmd, jarTotalsCmd, jarGroupsCmd, jarHistoryCmd, jarDistributionCmd)

	jarCmd.PersistentFlags().Bool("json", false, "Print JSON instead of a table")
	jarAddGroupCmd.Flags().String("by", "family", "Group mode: none, family, order, genus")
	jarGroupsCmd.Flags().String("by", "family", "Group mode: none, family, order, genus")
}
