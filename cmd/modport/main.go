package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"modport/internal/config"
	"modport/internal/crawler"
	"modport/internal/extractor"
	"modport/internal/generator"
	"modport/internal/git"
	"modport/internal/inference"
	"modport/internal/ir"
	"modport/internal/mappings"
	"modport/internal/pipeline"
	"modport/internal/storage"
	"modport/internal/trace"
	"modport/internal/validator"
	"modport/internal/watcher"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "modport",
		Short: "Java mod to Bedrock script translator",
	}
	configPath string
	dbPath     string

	scanLoader string
	scanJSON   bool

	translateOut    string
	translateLoader string
	translateSince  string
	translateDiff   bool

	validateJavaTrace string
	validateJSTrace   string

	watchOut      string
	watchDebounce time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "modport.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the run database (SQLite), overrides config")

	scanCmd.Flags().StringVar(&scanLoader, "loader", "", "Mod loader (forge or fabric), overrides auto-detection")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the full intermediate representation as JSON")

	translateCmd.Flags().StringVarP(&translateOut, "out", "o", "", "Output directory, overrides config")
	translateCmd.Flags().StringVar(&translateLoader, "loader", "", "Mod loader (forge or fabric), overrides auto-detection")
	translateCmd.Flags().StringVar(&translateSince, "since", "", "Only translate sources changed since this git ref")
	translateCmd.Flags().BoolVar(&translateDiff, "changed", false, "Only translate sources changed since HEAD")

	validateCmd.Flags().StringVar(&validateJavaTrace, "java", "", "Captured Java execution trace (JSON)")
	validateCmd.Flags().StringVar(&validateJSTrace, "js", "", "Captured JavaScript execution trace (JSON)")

	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "", "Output directory, overrides config")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "How long to wait for further changes before retranslating")

	mappingsCmd.AddCommand(mappingsListCmd)
	mappingsCmd.AddCommand(mappingsImportCmd)
	mappingsCmd.AddCommand(mappingsExportCmd)

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(mappingsCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadConfig reads the configured file. A missing default file falls back to
// the built-in defaults; an explicitly named file must exist.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if configPath != "modport.yaml" || !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// initStore opens the run database, preferring the --db flag over config.
func initStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	path := dbPath
	if path == "" {
		path = cfg.Output.Database
	}
	return storage.NewSQLiteStore(path)
}

// initPipeline assembles the translation pipeline from configuration.
func initPipeline(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore) (*pipeline.Pipeline, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("AI API key not configured (set MODPORT_API_KEY or ai.api_key)")
	}

	// 1. Setup the model client
	client, err := inference.NewClient(ctx, inference.ClientOptions{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		BaseURL:  cfg.AI.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create inference client: %w", err)
	}

	// 2. Assemble the mapping table
	table, err := loadMappingTable(ctx, cfg, store)
	if err != nil {
		return nil, err
	}

	// 3. Create the pipeline
	return pipeline.New(pipeline.Options{
		Mappings:            table,
		Client:              client,
		Format:              cfg.Output.Format,
		EntryFile:           cfg.Output.EntryFile,
		Loader:              projectLoader(cfg),
		TargetVersion:       cfg.Translation.TargetVersion,
		ConfidenceThreshold: cfg.Translation.ConfidenceThreshold,
		MaxIterations:       cfg.Translation.MaxIterations,
		Workers:             cfg.Translation.Workers,
		SegmentWorkers:      cfg.Translation.SegmentWorkers,
		Timeout:             cfg.TimeoutDuration(),
		InlineModel:         cfg.Output.InlineModel,
	})
}

// loadMappingTable layers the mappings file and stored entries over the
// built-ins. Later entries win on signature collisions.
func loadMappingTable(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore) (*mappings.Table, error) {
	table := mappings.DefaultTable()

	if cfg.Translation.MappingsFile != "" {
		custom, err := mappings.LoadFile(cfg.Translation.MappingsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load mappings file: %w", err)
		}
		table.AddAll(custom.Entries())
	}

	if store != nil {
		stored, err := store.LoadMappings(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load stored mappings: %w", err)
		}
		table.AddAll(stored)
	}

	return table, nil
}

func projectLoader(cfg *config.Config) ir.Loader {
	switch cfg.Project.Loader {
	case "forge":
		return ir.LoaderForge
	case "fabric":
		return ir.LoaderFabric
	default:
		return ""
	}
}

func newCrawler(cfg *config.Config) (*crawler.Crawler, error) {
	return crawler.New(crawler.Options{
		Include: cfg.Project.Include,
		Exclude: cfg.Project.Exclude,
	})
}

// aiLabel names the configured provider and model for status output.
func aiLabel(cfg *config.Config) string {
	provider := cfg.AI.Provider
	if provider == "" {
		provider = "gemini"
	}
	if cfg.AI.Model == "" {
		return provider
	}
	return fmt.Sprintf("%s (%s)", provider, cfg.AI.Model)
}

// buildContext parses one Java source into its intermediate representation.
func buildContext(ctx context.Context, path string, loader ir.Loader, targetVersion string) (*ir.Context, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if loader == "" {
		detected, ok := extractor.DetectLoader(source)
		if !ok {
			return nil, fmt.Errorf("no mod loader detected")
		}
		loader = detected
	}

	ext, err := extractor.New(loader)
	if err != nil {
		return nil, err
	}

	tree, err := extractor.ParseJava(ctx, source)
	if err != nil {
		return nil, err
	}

	irCtx := ext.BuildContext(tree.RootNode(), source, path, ir.Metadata{TargetVersion: targetVersion})
	if err := irCtx.Validate(); err != nil {
		return nil, err
	}
	return irCtx, nil
}

// printContextSummary prints one line per parsed file with node kind counts.
func printContextSummary(path string, irCtx *ir.Context) {
	counts := make(map[ir.NodeKind]int)
	for _, n := range irCtx.Nodes {
		counts[n.Kind]++
	}

	kinds := make([]string, 0, len(counts))
	for kind, count := range counts {
		kinds = append(kinds, fmt.Sprintf("%s=%d", kind, count))
	}
	sort.Strings(kinds)

	meta := irCtx.Metadata
	fmt.Printf("  %s: mod %q, loader %s, %d nodes (%s)\n",
		path, meta.ModID, meta.Loader, len(irCtx.Nodes), strings.Join(kinds, ", "))
}

// printResult prints one status line per translated file.
func printResult(res *pipeline.FileResult) {
	switch {
	case res.Err != nil:
		fmt.Printf("❌ %s: %v\n", res.SourceFile, res.Err)
	case res.State == pipeline.StateAccepted:
		fmt.Printf("✅ %s (confidence %.2f)\n", res.SourceFile, res.Confidence)
	default:
		fmt.Printf("⚠️  %s finished without acceptance (confidence %.2f)\n", res.SourceFile, res.Confidence)
	}
	for _, note := range res.Notes {
		if note.Severity == generator.SeverityWarning || note.Severity == generator.SeverityError {
			fmt.Printf("   %s: %s\n", note.Severity, note.Message)
		}
	}
}

// writeOutputs writes a result's files under a directory named after the
// source file, so parallel units cannot clobber each other's entry scripts.
func writeOutputs(outDir, sourceFile string, files []generator.GeneratedFile) error {
	stem := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))
	dir := filepath.Join(outDir, stem)
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
			return err
		}
	}
	return nil
}

// recordResult writes a result's files and saves the run row. Failures are
// printed but do not stop the batch.
func recordResult(ctx context.Context, cfg *config.Config, store *storage.SQLiteStore, res *pipeline.FileResult) error {
	var firstErr error
	if len(res.Files) > 0 {
		if err := writeOutputs(cfg.Output.Dir, res.SourceFile, res.Files); err != nil {
			firstErr = err
			fmt.Printf("❌ Failed to write output for %s: %v\n", res.SourceFile, err)
		}
	}
	if err := store.SaveRun(ctx, storage.RunFromResult("", res)); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		fmt.Printf("⚠️  Failed to record run for %s: %v\n", res.SourceFile, err)
	}
	return firstErr
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Parse mod sources and report their intermediate form",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if scanLoader != "" {
			cfg.Project.Loader = scanLoader
			if err := cfg.Validate(); err != nil {
				log.Fatalf("Invalid flags: %v", err)
			}
		}
		root := cfg.Project.Root
		if len(args) > 0 {
			root = args[0]
		}

		// 1. Find sources
		cr, err := newCrawler(cfg)
		if err != nil {
			log.Fatalf("Failed to create crawler: %v", err)
		}

		fmt.Printf("📂 Scanning mod sources in %s\n", root)
		files, err := cr.Collect(root)
		if err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		if len(files) == 0 {
			fmt.Println("No Java sources found.")
			return
		}

		// 2. Parse each file into its intermediate form
		loader := projectLoader(cfg)
		parsed := 0
		for _, path := range files {
			irCtx, err := buildContext(ctx, path, loader, cfg.Translation.TargetVersion)
			if err != nil {
				fmt.Printf("⚠️  %s: %v\n", path, err)
				continue
			}
			parsed++

			if scanJSON {
				data, err := json.MarshalIndent(irCtx, "", "  ")
				if err != nil {
					log.Fatalf("Failed to encode context: %v", err)
				}
				fmt.Println(string(data))
				continue
			}
			printContextSummary(path, irCtx)
		}

		fmt.Printf("✅ Parsed %d/%d files.\n", parsed, len(files))
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate [path]",
	Short: "Translate mod sources into Bedrock scripts",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if translateLoader != "" {
			cfg.Project.Loader = translateLoader
		}
		if translateOut != "" {
			cfg.Output.Dir = translateOut
		}
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid flags: %v", err)
		}
		root := cfg.Project.Root
		if len(args) > 0 {
			root = args[0]
		}

		report := pipeline.NewRunReport("translate", cfg.Output.Dir)

		// 1. Find sources
		cr, err := newCrawler(cfg)
		if err != nil {
			log.Fatalf("Failed to create crawler: %v", err)
		}

		stage := report.BeginStage("crawl")
		var files []string
		if translateDiff || translateSince != "" {
			changes, err := git.ChangedJavaSources(root, translateSince)
			if err != nil {
				report.EndStage(stage, "error", nil, nil, err)
				log.Fatalf("Failed to read git changes: %v", err)
			}
			for _, change := range changes {
				rel, err := filepath.Rel(root, change.Path)
				if err != nil || !cr.Matches(filepath.ToSlash(rel)) {
					continue
				}
				fmt.Printf("📝 %s: %d changed lines\n", rel, len(change.ChangedLines))
				files = append(files, change.Path)
			}
		} else {
			files, err = cr.Collect(root)
			if err != nil {
				report.EndStage(stage, "error", nil, nil, err)
				log.Fatalf("Scan failed: %v", err)
			}
		}
		report.EndStage(stage, "ok", map[string]float64{"files": float64(len(files))}, nil, nil)

		if len(files) == 0 {
			fmt.Println("✅ Nothing to translate.")
			return
		}
		fmt.Printf("📂 Found %d Java sources in %s\n", len(files), root)

		// 2. Open the run database
		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		// 3. Assemble the pipeline
		p, err := initPipeline(ctx, cfg, store)
		if err != nil {
			log.Fatalf("Setup failed: %v\nCheck your modport.yaml and API keys.", err)
		}

		// 4. Translate
		fmt.Printf("🚀 Translating with %s...\n", aiLabel(cfg))
		stage = report.BeginStage("translate")
		batch := p.Translate(ctx, files)
		report.EndStage(stage, "ok", map[string]float64{"duration_ms": float64(batch.Duration.Milliseconds())}, nil, nil)

		// 5. Write outputs and record runs
		stage = report.BeginStage("persist")
		accepted := 0
		var persistErr error
		for i := range batch.Results {
			res := &batch.Results[i]
			report.AddFileMetric(pipeline.FileMetricFromResult(*res))
			printResult(res)
			if res.Accepted {
				accepted++
			}
			if err := recordResult(ctx, cfg, store, res); err != nil {
				persistErr = err
			}
		}
		status := "ok"
		if persistErr != nil {
			status = "error"
		}
		report.EndStage(stage, status, map[string]float64{"accepted": float64(accepted)}, nil, persistErr)

		// 6. Save the run report next to the scripts
		reportPath := filepath.Join(cfg.Output.Dir, cfg.Output.Report)
		if err := report.Save(reportPath); err != nil {
			log.Printf("Warning: failed to save run report: %v", err)
		}

		fmt.Printf("🎉 Translation complete in %v. %d/%d accepted. Output: %s\n",
			batch.Duration.Round(time.Millisecond), accepted, len(files), cfg.Output.Dir)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compare captured Java and JavaScript execution traces",
	Run: func(cmd *cobra.Command, args []string) {
		if validateJavaTrace == "" || validateJSTrace == "" {
			log.Fatal("Both --java and --js trace files are required")
		}

		source, err := trace.Load(validateJavaTrace)
		if err != nil {
			log.Fatalf("Failed to load Java trace: %v", err)
		}
		target, err := trace.Load(validateJSTrace)
		if err != nil {
			log.Fatalf("Failed to load JavaScript trace: %v", err)
		}

		report := validator.Compare(source, target)

		fmt.Printf("📊 Alignment score: %.2f\n", report.Score)
		if len(report.FunctionMapping) > 0 {
			pairs := make([]string, 0, len(report.FunctionMapping))
			for src, dst := range report.FunctionMapping {
				pairs = append(pairs, fmt.Sprintf("%s -> %s", src, dst))
			}
			sort.Strings(pairs)
			fmt.Printf("🔗 Matched functions: %s\n", strings.Join(pairs, ", "))
		}

		if report.Aligned {
			fmt.Println("✅ Traces are behaviorally aligned.")
			return
		}

		fmt.Printf("❌ %d divergences found:\n", len(report.Divergences))
		for _, d := range report.Divergences {
			fmt.Printf("  [%s] %s: %s\n", d.Severity, d.Kind, d.Description)
		}
		for _, rec := range report.Recommendations {
			fmt.Printf("  -> %s\n", rec)
		}
		os.Exit(1)
	},
}

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Inspect or extend the API mapping table",
}

var mappingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active mappings",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		table, err := loadMappingTable(ctx, cfg, store)
		if err != nil {
			log.Fatalf("Failed to load mappings: %v", err)
		}

		for _, m := range table.Entries() {
			fmt.Printf("  %-55s -> %s  [%s]\n", m.SourceSignature, m.TargetEquivalent, m.Kind)
		}
		fmt.Printf("📦 %d mappings active.\n", table.Len())
	},
}

var mappingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a mappings file and store its entries in the database",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		table, err := mappings.LoadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to load mappings file: %v", err)
		}

		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		if err := store.SaveMappings(ctx, table.Entries()); err != nil {
			log.Fatalf("Failed to store mappings: %v", err)
		}
		fmt.Printf("✅ Imported %d mappings.\n", table.Len())
	},
}

var mappingsExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the active mapping table to a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		table, err := loadMappingTable(ctx, cfg, store)
		if err != nil {
			log.Fatalf("Failed to load mappings: %v", err)
		}

		if err := mappings.SaveFile(args[0], table); err != nil {
			log.Fatalf("Failed to write mappings file: %v", err)
		}
		fmt.Printf("✅ Exported %d mappings to %s\n", table.Len(), args[0])
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch mod sources and retranslate on change",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if watchOut != "" {
			cfg.Output.Dir = watchOut
		}
		root := cfg.Project.Root
		if len(args) > 0 {
			root = args[0]
		}

		// 1. Database and pipeline
		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		p, err := initPipeline(ctx, cfg, store)
		if err != nil {
			log.Fatalf("Setup failed: %v\nCheck your modport.yaml and API keys.", err)
		}

		// 2. Watcher over the project sources
		cr, err := newCrawler(cfg)
		if err != nil {
			log.Fatalf("Failed to create crawler: %v", err)
		}
		w, err := watcher.New(watcher.Options{
			Root:     root,
			Matcher:  cr,
			Debounce: watchDebounce,
		})
		if err != nil {
			log.Fatalf("Failed to create watcher: %v", err)
		}
		defer w.Stop()

		// 3. Initial pass over everything already there
		paths, err := w.Prime()
		if err != nil {
			log.Fatalf("Failed to scan project: %v", err)
		}
		if len(paths) > 0 {
			fmt.Printf("🚀 Translating %d existing sources with %s...\n", len(paths), aiLabel(cfg))
			batch := p.Translate(ctx, paths)
			for i := range batch.Results {
				res := &batch.Results[i]
				printResult(res)
				recordResult(ctx, cfg, store, res)
			}
		}

		if err := w.Start(ctx); err != nil {
			log.Fatalf("Failed to start watcher: %v", err)
		}
		fmt.Printf("👀 Watching %s for changes. Ctrl+C to stop.\n", root)

		// 4. Retranslate on every content change
		for ev := range w.Events() {
			if ev.Op == watcher.OpDelete {
				fmt.Printf("🗑  %s removed; generated scripts left in place\n", ev.Path)
				continue
			}

			fmt.Printf("🔄 %s changed, retranslating...\n", ev.Path)
			res := p.TranslateFile(ctx, ev.AbsPath)
			printResult(res)
			recordResult(ctx, cfg, store, res)
		}
	},
}
