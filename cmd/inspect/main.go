// Command inspect dumps raw store keys for debugging. Point it at a data
// path and it lists keys under a prefix, or prints one value.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"arenachat/pkg/logger"
	"arenachat/pkg/store"
)

func main() {
	var (
		dbPath string
		prefix string
		key    string
	)
	flag.StringVar(&dbPath, "db", "", "data path (the directory passed to the server --db flag)")
	flag.StringVar(&prefix, "prefix", "thread:", "key prefix to list")
	flag.StringVar(&key, "key", "", "print the value of a single key instead of listing")
	flag.Parse()

	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}

	logger.Init()
	if err := store.Open(filepath.Join(dbPath, "store")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if key != "" {
		v, err := store.GetKey(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get %s: %v\n", key, err)
			os.Exit(1)
		}
		fmt.Println(v)
		return
	}

	keys, err := store.ListKeys(prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list %q: %v\n", prefix, err)
		os.Exit(1)
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	fmt.Fprintf(os.Stderr, "%d keys\n", len(keys))
}
