// Command loader bulk-loads documents into an index, either from a
// JSONL file or seeded from a Wikidata concept.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/Zereker/docstore/pkg/docstore"
	"github.com/Zereker/docstore/pkg/search"
	"github.com/Zereker/docstore/pkg/wikidata"
)

var (
	addresses = flag.String("addresses", "https://localhost:9200", "Comma-separated engine addresses")
	username  = flag.String("username", "admin", "Engine username")
	password  = flag.String("password", "admin", "Engine password")
	insecure  = flag.Bool("insecure", false, "Skip TLS verification")

	index    = flag.String("index", "", "Target index name (required)")
	settings = flag.String("settings", "", "Path to an index settings JSON file")

	file      = flag.String("file", "", "JSONL file of documents to load")
	concept   = flag.String("concept", "", "Wikidata concept to seed documents from, e.g. Q6256")
	property  = flag.String("property", wikidata.PropertyInstanceOf, "Wikidata property for concept seeding")
	batchSize = flag.Int("batch", 1000, "Documents per bulk request")
	refresh   = flag.Bool("refresh", false, "Refresh the index after each batch")
)

func main() {
	flag.Parse()

	if *index == "" {
		log.Fatal("-index is required")
	}
	if (*file == "") == (*concept == "") {
		log.Fatal("exactly one of -file or -concept is required")
	}

	ctx := context.Background()

	engine, err := search.NewOpenSearch(search.Config{
		Addresses:   strings.Split(*addresses, ","),
		Username:    *username,
		Password:    *password,
		InsecureSSL: *insecure,
	})
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}

	store, err := docstore.New(ctx, engine, docstore.Config{
		Name:         *index,
		SettingsFile: *settings,
	})
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	var docs []docstore.Document
	if *file != "" {
		docs, err = readJSONL(*file)
	} else {
		docs, err = seedFromWikidata(ctx, *property, *concept)
	}
	if err != nil {
		log.Fatalf("failed to collect documents: %v", err)
	}
	if len(docs) == 0 {
		log.Fatal("nothing to load")
	}

	bar := progressbar.Default(int64(len(docs)), "loading")

	var total docstore.BulkResult
	for start := 0; start < len(docs); start += *batchSize {
		end := start + *batchSize
		if end > len(docs) {
			end = len(docs)
		}

		result, err := store.InsertMany(ctx, docs[start:end], docstore.BulkOptions{
			BatchSize:        *batchSize,
			RefreshEachBatch: *refresh,
		})
		if err != nil {
			log.Fatalf("bulk insert failed: %v", err)
		}

		total.Succeeded += result.Succeeded
		total.Failed += result.Failed
		if result.Errors != "" {
			total.Errors = result.Errors
		}
		_ = bar.Add(end - start)
	}

	fmt.Printf("\nloaded %d documents into %s (%d failed)\n", total.Succeeded, *index, total.Failed)
	if total.Errors != "" {
		fmt.Printf("last error: %s\n", total.Errors)
	}
	if total.Failed > 0 {
		os.Exit(1)
	}
}

// readJSONL reads one document per line.
func readJSONL(path string) ([]docstore.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []docstore.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var doc docstore.Document
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	return docs, scanner.Err()
}

// seedFromWikidata turns every instance of a concept into a minimal
// document keyed by its Q-id.
func seedFromWikidata(ctx context.Context, property, concept string) ([]docstore.Document, error) {
	entities, err := wikidata.NewClient("").Instances(ctx, property, concept)
	if err != nil {
		return nil, err
	}

	docs := make([]docstore.Document, 0, len(entities))
	for _, entity := range entities {
		docs = append(docs, docstore.Document{
			"id":      entity.ID,
			"uri":     entity.URI,
			"concept": concept,
		})
	}
	return docs, nil
}
