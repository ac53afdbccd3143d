// Command homematch-import loads a JSON listing feed into the database.
//
//	homematch-import -db homematch.db feed.json
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/homematch/homematch/internal/database"
	"github.com/homematch/homematch/internal/importer"
	"github.com/homematch/homematch/internal/logging"
	"github.com/homematch/homematch/internal/store"
)

func main() {
	godotenv.Load()

	defaultDB := os.Getenv("HOMEMATCH_DB_PATH")
	if defaultDB == "" {
		defaultDB = "homematch.db"
	}

	dbPath := flag.String("db", defaultDB, "path to the sqlite database")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: homematch-import [-db path] <feed.json>")
		os.Exit(2)
	}

	logger := logging.Setup(os.Getenv("HOMEMATCH_LOG_LEVEL"), os.Getenv("HOMEMATCH_LOG_FORMAT"))

	db, err := database.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("failed to open feed: %v", err)
	}
	defer f.Close()

	im := importer.New(store.NewPropertyStore(db), store.NewNeighborhoodStore(db), logger.With("component", "importer"))
	result, err := im.Run(f)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	fmt.Printf("imported %d neighborhoods, %d listings (%d skipped)\n",
		result.Neighborhoods, result.Properties, result.Skipped)
}
