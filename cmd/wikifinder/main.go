package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wikifinder/internal/ai"
	"wikifinder/internal/config"
	"wikifinder/internal/embedding"
	"wikifinder/internal/ingest"
	"wikifinder/internal/rag"
	"wikifinder/internal/retriever"
	"wikifinder/internal/scheduler"
	"wikifinder/internal/server"
	"wikifinder/internal/vectorindex"
	"wikifinder/internal/version"
	"wikifinder/internal/wiki"
)

var (
	cfgFile string
	verbose bool
	port    int
)

var rootCmd = &cobra.Command{
	Use:   "wikifinder",
	Short: "Wikifinder - semantic search and Q&A over wiki documentation",
	Long: `Wikifinder indexes wiki documentation into a local vector database and
answers questions over it with retrieval-augmented generation.

Run "wikifinder server" to serve the search API, or "wikifinder ingest"
to export and index documents.`,
	Version: version.Full(),
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the search and Q&A HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var ingestCmd = &cobra.Command{
	Use:       "ingest [export|import|full]",
	Short:     "Export wiki documents and load them into the vector index",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"export", "import", "full"},
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := "full"
		if len(args) > 0 {
			mode = args[0]
		}
		return runIngest(mode)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Wikifinder %s\n", version.Full())
		if version.BuildDate != "unknown" {
			fmt.Printf("Build date: %s\n", version.BuildDate)
		}
		fmt.Printf("Go version: %s\n", version.GoVersion)
		return nil
	},
}

func init() {
	cobra.OnInitialize(func() {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.json", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	serverCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (overrides config)")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(versionCmd)

	// Default to server mode when no subcommand is given
	rootCmd.RunE = serverCmd.RunE
}

// newEmbedder builds the configured embedding backend
func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.Embedding.OpenAI.APIKey, cfg.Embedding.OpenAI.Model, 0), nil
	default:
		return embedding.NewTFIDF(embedding.DefaultDims), nil
	}
}

// newPipeline wires the ingestion pipeline; the wiki client is optional and
// only required for export modes.
func newPipeline(cfg *config.Config, idx *vectorindex.Index, needWiki bool) (*ingest.Pipeline, error) {
	var source ingest.WikiSource
	if cfg.Wiki.BaseURL != "" {
		client, err := wiki.NewClient(cfg.Wiki)
		if err != nil {
			return nil, err
		}
		source = client
	} else if needWiki {
		return nil, fmt.Errorf("wiki.base_url must be configured for export")
	}
	return ingest.New(source, idx, cfg.Snapshot.Path, cfg.Chunker.MaxTokens), nil
}

func runServer() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	idx, err := vectorindex.New(embedder, cfg.Index.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	generator, err := ai.NewGeneratorFromConfig(cfg.AI)
	if err != nil {
		return fmt.Errorf("failed to create answer generator: %w", err)
	}

	ret := retriever.New(idx, cfg.Index.TopK)
	orchestrator := rag.New(idx, ret, generator, cfg.Index.ContextDocs)

	pipeline, err := newPipeline(cfg, idx, false)
	if err != nil {
		return err
	}

	sched := scheduler.New(pipeline, cfg.Ingestion.Schedule)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down", sig)
		cancel()
	}()

	srv := server.New(cfg.Server.Port, orchestrator, idx, pipeline, cfg.AI.DefaultProvider)
	return srv.Run(ctx)
}

func runIngest(mode string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	idx, err := vectorindex.New(embedder, cfg.Index.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer idx.Close()

	pipeline, err := newPipeline(cfg, idx, mode != "import")
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case "export":
		return pipeline.Export(ctx)
	case "import":
		return pipeline.Import(ctx)
	case "full":
		return pipeline.Full(ctx)
	default:
		return fmt.Errorf("unknown ingest mode: %s", mode)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
