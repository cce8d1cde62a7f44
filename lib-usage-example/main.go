package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/sw33tLie/fruitjar/pkg/aggregate"
	"github.com/sw33tLie/fruitjar/pkg/catalog"
	"github.com/sw33tLie/fruitjar/pkg/fruit"
	"github.com/sw33tLie/fruitjar/pkg/jar"
	"github.com/sw33tLie/fruitjar/pkg/storage"
)

func main() {
	// Usage: go run *.go -url "https://www.fruityvice.com/api/fruit/all" -db jar.sqlite

	urlFlag := flag.String("url", "", "Catalog JSON endpoint (the bundled fallback is used if empty or unreachable)")
	dbFlag := flag.String("db", "", "SQLite file to keep the jar in (in memory if empty)")

	// Parse the command-line flags
	flag.Parse()

	ctx := context.Background()

	src, err := catalog.NewHTTPSource(catalog.HTTPConfig{URL: *urlFlag, Retries: 2, Timeout: 10 * time.Second})
	if err != nil {
		fmt.Println(err)
		return
	}
	res := catalog.NewLoader(src).Load(ctx)
	if res.Err != nil {
		fmt.Println(catalog.FallbackNotice, res.Err)
	}

	var kv jar.KV = storage.NewMemory()
	if *dbFlag != "" {
		db, err := storage.Open(*dbFlag)
		if err != nil {
			fmt.Println(err)
			return
		}
		defer db.Close()
		kv = db
	}

	// Every change is one history entry and is saved immediately
	store := jar.New(ctx, kv)
	rosaceae, _ := aggregate.GroupBy(res.Fruits, fruit.GroupFamily).Get("Rosaceae")
	if _, err := store.AddAll(ctx, rosaceae); err != nil {
		fmt.Println(err)
	}
	store.Undo(ctx)
	store.Redo(ctx)

	totals := aggregate.SumNutrition(store.Current())
	fmt.Printf("%d fruits, %.1f calories, %.1fg sugar, %.1fg fat\n", len(store.Current()), totals.Calories, totals.Sugar, totals.Fat)
	for _, g := range aggregate.GroupBy([]fruit.JarFruit(store.Current()), fruit.GroupGenus) {
		fmt.Println(g.Key, len(g.Items))
	}
}
