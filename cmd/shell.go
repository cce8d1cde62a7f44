package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/fruitjar/internal/keys"
	"github.com/sw33tLie/fruitjar/pkg/aggregate"
	"github.com/sw33tLie/fruitjar/pkg/catalog"
	"github.com/sw33tLie/fruitjar/pkg/fruit"
	"github.com/sw33tLie/fruitjar/pkg/jar"
)

const shellHelp = `Commands:
  show                      list the jar
  add <id|name>...          add fruits as one change
  add-group <mode> [key]    add a whole family, order or genus
  remove <jarId|position>   remove one fruit
  clear                     empty the jar
  undo, redo                move through the history
  totals                    summed calories, sugar and fat
  groups <mode>             jar grouped by none, family, order or genus
  history                   every snapshot, cursor marked with >
  search <query>            find fruits by name
  help, quit
Shortcuts: ctrl+z / cmd+z undo, ctrl+y / cmd+y redo, ctrl+k / cmd+k toggle search.
Type them as words and press enter: in a terminal, pressing ctrl+z suspends the shell.
In search mode every line is a query; enter a result number to add it.`

var interactiveCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive jar session with keyboard shortcuts",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := loadCatalog()
		if err != nil {
			return err
		}
		sess, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		fmt.Println("fruitjar shell. Type help for commands, quit to leave.")
		return newREPL(sess.Store, fs, os.Stdout).Run(context.Background(), os.Stdin)
	},
}

// repl drives a jar from line-oriented input.
type repl struct {
	store     *jar.Store
	fruits    []fruit.Fruit
	out       io.Writer
	searching bool
	results   []fruit.Fruit
}

func newREPL(store *jar.Store, fs []fruit.Fruit, out io.Writer) *repl {
	return &repl{store: store, fruits: fs, out: out}
}

func (r *repl) prompt() string {
	if r.searching {
		return "search> "
	}
	return "jar> "
}

func (r *repl) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(r.out, r.prompt())
	for sc.Scan() {
		quit, err := r.exec(ctx, sc.Text())
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
		fmt.Fprint(r.out, r.prompt())
	}
	return sc.Err()
}

// action resolves a line that is a shortcut, typed as a chord name or, when
// input is piped, sent as a raw control byte.
func action(line string) (keys.Action, bool) {
	if len(line) == 1 {
		if a, ok := keys.LookupControl(line[0]); ok {
			return a, true
		}
	}
	return keys.Lookup(line)
}

func (r *repl) exec(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if a, ok := action(line); ok {
		return false, r.runAction(ctx, a)
	}
	if r.searching {
		return false, r.searchLine(ctx, line)
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		fmt.Fprintln(r.out, shellHelp)
	case "show", "ls":
		printJarFruits(r.out, r.store.Current())
	case "add":
		if len(args) == 0 {
			return false, fmt.Errorf("add needs at least one fruit")
		}
		picked, err := resolveFruits(r.fruits, args)
		if err != nil {
			return false, err
		}
		return false, r.add(ctx, picked)
	case "add-group":
		if len(args) == 0 {
			return false, fmt.Errorf("add-group needs a mode")
		}
		mode, err := fruit.ParseGroupMode(args[0])
		if err != nil {
			return false, err
		}
		key := aggregate.AllFruitsLabel
		if mode != fruit.GroupNone {
			if len(args) < 2 {
				return false, fmt.Errorf("add-group %s needs a name", args[0])
			}
			key = strings.Join(args[1:], " ")
		}
		members, ok := aggregate.GroupBy(r.fruits, mode).Get(key)
		if !ok {
			return false, fmt.Errorf("no group named %q", key)
		}
		return false, r.add(ctx, members)
	case "remove", "rm":
		if len(args) != 1 {
			return false, fmt.Errorf("remove needs one jar id or position")
		}
		removed, err := removeRef(ctx, r.store, args[0])
		if removed.JarID != "" {
			fmt.Fprintf(r.out, "Removed %s\n", removed.Name)
		}
		return false, err
	case "clear":
		return false, r.store.Clear(ctx)
	case "undo":
		return false, r.runAction(ctx, keys.Undo)
	case "redo":
		return false, r.runAction(ctx, keys.Redo)
	case "totals":
		printTotals(r.out, aggregate.SumNutrition(r.store.Current()))
	case "groups":
		by := "none"
		if len(args) > 0 {
			by = args[0]
		}
		mode, err := fruit.ParseGroupMode(by)
		if err != nil {
			return false, err
		}
		for _, g := range aggregate.GroupBy([]fruit.JarFruit(r.store.Current()), mode) {
			printGroupHeader(r.out, g.Key, len(g.Items))
			printJarFruits(r.out, g.Items)
		}
	case "history":
		for _, l := range historyLines(r.store.History()) {
			fmt.Fprintln(r.out, l)
		}
	case "search":
		r.searching = true
		return false, r.searchLine(ctx, strings.Join(args, " "))
	default:
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
	return false, nil
}

func (r *repl) runAction(ctx context.Context, a keys.Action) error {
	switch a {
	case keys.Undo:
		moved, err := r.store.Undo(ctx)
		if !moved {
			fmt.Fprintln(r.out, "Nothing to undo.")
		}
		return err
	case keys.Redo:
		moved, err := r.store.Redo(ctx)
		if !moved {
			fmt.Fprintln(r.out, "Nothing to redo.")
		}
		return err
	case keys.ToggleSearch:
		r.searching = !r.searching
		r.results = nil
	}
	return nil
}

// searchLine treats a number as a pick from the last results and anything
// else as a new query. Picking a result adds it and leaves search mode.
func (r *repl) searchLine(ctx context.Context, line string) error {
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(r.results) {
		picked := r.results[n-1]
		r.searching = false
		r.results = nil
		return r.add(ctx, []fruit.Fruit{picked})
	}

	r.results = nil
	if line == "" {
		return nil
	}
	r.results = catalog.Search(r.fruits, line)
	if len(r.results) == 0 {
		fmt.Fprintf(r.out, "No fruits match %q.\n", line)
		return nil
	}
	for i, f := range r.results {
		fmt.Fprintf(r.out, "%2d. %s\n", i+1, paletteLine(f))
	}
	return nil
}

func (r *repl) add(ctx context.Context, fs []fruit.Fruit) error {
	added, err := r.store.AddAll(ctx, fs)
	for _, a := range added {
		fmt.Fprintf(r.out, "Added %s\n", a.Name)
	}
	return err
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}
