package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sszproject/ssz-validation/go-engine/internal/obs"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to observations.db")
	csvPath := flag.String("csv", "", "catalog CSV to import")
	flag.Parse()

	if *dbPath == "" || *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: dataset-import --db path/to/observations.db --csv path/to/catalog.csv")
		os.Exit(2)
	}

	if err := run(*dbPath, *csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region import

func run(dbPath, csvPath string) error {
	store, err := obs.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	n, err := store.ImportCSV(csvPath)
	if err != nil {
		return fmt.Errorf("import %s: %w", csvPath, err)
	}

	total, err := store.Count()
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}

	fmt.Printf("Imported %d observations from %s (%d total in catalog)\n", n, csvPath, total)
	return nil
}

// #endregion import
