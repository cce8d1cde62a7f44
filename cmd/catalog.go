package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/fruitjar/pkg/aggregate"
	"github.com/sw33tLie/fruitjar/pkg/catalog"
	"github.com/sw33tLie/fruitjar/pkg/fruit"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the fruit catalog, optionally grouped by family, order or genus",
	RunE: func(cmd *cobra.Command, args []string) error {
		groupBy, _ := cmd.Flags().GetString("group-by")
		asJSON, _ := cmd.Flags().GetBool("json")

		mode, err := fruit.ParseGroupMode(groupBy)
		if err != nil {
			return err
		}
		fs, err := loadCatalog()
		if err != nil {
			return err
		}

		groups := aggregate.GroupBy(fs, mode)
		if asJSON {
			return printJSON(os.Stdout, groups)
		}
		for _, g := range groups {
			printGroupHeader(os.Stdout, g.Key, len(g.Items))
			printFruits(os.Stdout, g.Items)
		}
		return nil
	},
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find fruits whose name contains the query (case-insensitive)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		fs, err := loadCatalog()
		if err != nil {
			return err
		}

		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		found := catalog.Search(fs, query)
		if asJSON {
			return printJSON(os.Stdout, found)
		}
		if len(found) == 0 {
			fmt.Printf("No fruits match %q.\n", query)
			return nil
		}
		for _, f := range found {
			fmt.Printf("%d  %s\n", f.ID, paletteLine(f))
		}
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show one fruit with its full nutrition facts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		fs, err := loadCatalog()
		if err != nil {
			return err
		}
		f, err := catalog.Resolve(fs, args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(os.Stdout, f)
		}

		fmt.Printf("%s (id %d)\n", f.Name, f.ID)
		fmt.Printf("  Family: %s\n  Order:  %s\n  Genus:  %s\n", f.Family, f.Order, f.Genus)
		n := f.Nutritions
		fmt.Printf("  Calories: %v  Fat: %vg  Sugar: %vg  Carbohydrates: %vg  Protein: %vg\n",
			n.Calories, n.Fat, n.Sugar, n.Carbohydrates, n.Protein)
		return nil
	},
}

// loadCatalog returns the validated catalog, or the fallback catalog with a
// notice on stderr.
func loadCatalog() ([]fruit.Fruit, error) {
	ld, err := newCatalogLoader()
	if err != nil {
		return nil, err
	}
	res := ld.Load(context.Background())
	if res.Origin == catalog.OriginFallback {
		fmt.Fprintln(os.Stderr, catalog.FallbackNotice)
	}
	return res.Fruits, nil
}

// resolveFruits looks up every reference (id or name) in the catalog.
func resolveFruits(fs []fruit.Fruit, refs []string) ([]fruit.Fruit, error) {
	out := make([]fruit.Fruit, 0, len(refs))
	var missing []string
	for _, ref := range refs {
		f, err := catalog.Resolve(fs, ref)
		if err != nil {
			missing = append(missing, ref)
			continue
		}
		out = append(out, f)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, strings.Join(missing, ", "))
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogSearchCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.PersistentFlags().Bool("json", false, "Print JSON instead of a table")
	catalogCmd.Flags().StringP("group-by", "g", "none", "Group fruits by: none, family, order, genus")
}
