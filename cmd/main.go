package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/sophie/internal/models"
	"github.com/xhad/sophie/internal/types"
	cfgPkg "github.com/xhad/sophie/pkg/config"
	"github.com/xhad/sophie/pkg/connector"
	"github.com/xhad/sophie/pkg/indexer"
	"github.com/xhad/sophie/pkg/llm"
	"github.com/xhad/sophie/pkg/source"
	"github.com/xhad/sophie/pkg/store"
)

type Config struct {
	ConfigPath string
	StatePath  string
	DBUrl      string
	BaseURL    string
	Model      string
	TableName  string
	VectorDim  int
	Demo       bool
}

func main() {
	_ = godotenv.Load()

	config := parseFlags()

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config

	flag.StringVar(&config.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&config.StatePath, "state", ".sophie-state", "Path to the sync state file")
	flag.StringVar(&config.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&config.BaseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&config.Model, "model", "nomic-embed-text:latest", "Embedding model to use")
	flag.StringVar(&config.TableName, "table", "documents", "PostgreSQL table name")
	flag.IntVar(&config.VectorDim, "vector-dim", 768, "Vector dimension")
	flag.BoolVar(&config.Demo, "demo", false, "Index a single sample document and read it back")
	flag.Parse()

	return config
}

func run(config Config) error {
	cfg, err := cfgPkg.LoadConfig(config.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Command line flags override the config file.
	if config.DBUrl != "" {
		cfg.Database.URL = config.DBUrl
	}
	if config.BaseURL != "" {
		cfg.Embedding.BaseURL = config.BaseURL
	}
	if config.TableName != "documents" {
		cfg.Database.TableName = config.TableName
	}
	if config.VectorDim != 768 {
		cfg.Database.VectorDim = config.VectorDim
	}
	cfg.Embedding.Model = config.Model

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	embedder, err := llm.NewWithConfig(llm.EmbedderConfig{
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Database.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	ctx := context.Background()

	if err := vectorStore.Ping(ctx); err != nil {
		return err
	}
	if err := vectorStore.Ensure(ctx); err != nil {
		return err
	}
	color.Green("✓ Index %s ready", cfg.Database.TableName)

	ix := indexer.NewWithConfig(indexer.Config{
		MaxAttempts: cfg.Indexer.MaxAttempts,
		RetryDelay:  time.Duration(cfg.Indexer.RetryDelayMS) * time.Millisecond,
	}, embedder, vectorStore)

	if config.Demo {
		return runDemo(ctx, ix, vectorStore)
	}

	return runSync(ctx, cfg, config.StatePath, ix)
}

// runDemo pushes one sample document through embed + upsert and reads it
// back, proving the pipeline end to end.
func runDemo(ctx context.Context, ix *indexer.Indexer, vectorStore *store.VectorStore) error {
	doc := models.Document{
		ID:          "doc-123-example",
		SourceURL:   "http://example.com/minutes.pdf",
		SourceType:  models.SourceTypePDFMinutes,
		RetrievedAt: time.Now().UTC(),
		Content:     "This is the extracted text from a sample document.",
	}

	color.Blue("Indexing sample document %s", doc.ID)
	if err := ix.IndexDocument(ctx, doc); err != nil {
		return err
	}

	stored, err := vectorStore.Get(ctx, doc.ID)
	if err != nil {
		return err
	}

	color.Green("✓ Indexed and read back %s", stored.ID)
	fmt.Printf("  source_type: %s\n", stored.SourceType)
	fmt.Printf("  content:     %s\n", stored.Content)
	fmt.Printf("  embedding:   %d dimensions\n", len(stored.ContentEmbedding))
	return nil
}

// runSync runs a full sync of the configured sources, indexes the resulting
// batches, and persists the updated cursor state.
func runSync(ctx context.Context, cfg *cfgPkg.Config, statePath string, ix *indexer.Indexer) error {
	adapters := buildAdapters(cfg)
	if len(adapters) == 0 {
		color.Yellow("No sources configured; nothing to sync (see -demo)")
		return nil
	}

	conn := connector.New(cfg.Database.TableName, adapters...)

	state, err := loadState(statePath)
	if err != nil {
		return err
	}

	color.Blue("Syncing %d sources", len(adapters))
	events, newState, err := conn.Sync(ctx, state)
	if err != nil {
		return err
	}

	var indexed, failed int
	for _, event := range events {
		switch {
		case event.Log != nil:
			color.Red("[%s] %s", event.Log.Level, event.Log.Message)

		case event.Insert != nil:
			bar := getProgressBar(len(event.Insert.Documents), fmt.Sprintf(" Indexing %s", event.Insert.Source))
			for _, doc := range event.Insert.Documents {
				if err := ix.IndexDocument(ctx, doc); err != nil {
					color.Red("index %s: %v", event.Insert.Source, err)
					failed++
				} else {
					indexed++
				}
				bar.Add(1)
			}
			bar.Finish()
		}
	}

	if err := saveState(statePath, newState); err != nil {
		return err
	}

	color.Green("✓ Sync complete: %d documents indexed, %d failed", indexed, failed)
	return nil
}

func buildAdapters(cfg *cfgPkg.Config) []types.SourceAdapter {
	fetcher := source.FetcherConfig{
		Timeout:   time.Duration(cfg.Sources.TimeoutSecs) * time.Second,
		RateLimit: cfg.Sources.RateLimit,
	}

	var adapters []types.SourceAdapter
	for _, url := range cfg.Sources.PDFURLs {
		adapters = append(adapters, source.NewPDFAdapter(source.PDFConfig{URL: url, Fetcher: fetcher}))
	}
	for _, url := range cfg.Sources.FeedURLs {
		adapters = append(adapters, source.NewRSSAdapter(source.RSSConfig{URL: url, Fetcher: fetcher}))
	}
	return adapters
}

// The sync runtime normally owns the opaque state; the CLI stands in for it
// with a local file.
func loadState(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read state file: %v", err)
	}
	return string(data), nil
}

func saveState(path, state string) error {
	if err := os.WriteFile(path, []byte(state), 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %v", err)
	}
	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
