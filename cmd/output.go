package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sw33tLie/fruitjar/internal/utils"
	"github.com/sw33tLie/fruitjar/pkg/aggregate"
	"github.com/sw33tLie/fruitjar/pkg/fruit"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printFruits(w io.Writer, fs []fruit.Fruit) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFAMILY\tORDER\tGENUS\tCALORIES\tSUGAR\tFAT\t")
	for _, f := range fs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", f.ID, f.Name, f.Family, f.Order, f.Genus,
			utils.FormatAmount(f.Nutritions.Calories), utils.FormatAmount(f.Nutritions.Sugar), utils.FormatAmount(f.Nutritions.Fat))
	}
	tw.Flush()
}

func printJarFruits(w io.Writer, items []fruit.JarFruit) {
	if len(items) == 0 {
		fmt.Fprintln(w, "The jar is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tJAR ID\tNAME\tCALORIES\tSUGAR\tFAT\t")
	for i, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n", i+1, utils.Truncate(it.JarID, 24), it.Name,
			utils.FormatAmount(it.Nutritions.Calories), utils.FormatAmount(it.Nutritions.Sugar), utils.FormatAmount(it.Nutritions.Fat))
	}
	tw.Flush()
}

func printTotals(w io.Writer, t aggregate.Totals) {
	fmt.Fprintf(w, "Calories: %s  Sugar: %sg  Fat: %sg\n",
		utils.FormatAmount(t.Calories), utils.FormatAmount(t.Sugar), utils.FormatAmount(t.Fat))
}

func printGroupHeader(w io.Writer, key string, n int) {
	fmt.Fprintf(w, "\n== %s (%d) %s\n", key, n, strings.Repeat("=", 3))
}

// paletteLine is the one-line fruit summary shown by search results.
func paletteLine(f fruit.Fruit) string {
	return fmt.Sprintf("%s: %s calories, %sg sugar", f.Name,
		utils.FormatAmount(f.Nutritions.Calories), utils.FormatAmount(f.Nutritions.Sugar))
}
