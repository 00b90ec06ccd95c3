package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"modport/internal/config"
	"modport/internal/crawler"
	"modport/internal/inference"
	"modport/internal/mappings"
	"modport/internal/pipeline"
	"modport/internal/storage"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig("modport.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx := context.Background()

	// 2. Find the Java sources
	cr, err := crawler.New(crawler.Options{
		Include: cfg.Project.Include,
		Exclude: cfg.Project.Exclude,
	})
	if err != nil {
		log.Fatalf("Failed to create crawler: %v", err)
	}

	fmt.Printf("🚀 Scanning mod project at %s...\n", cfg.Project.Root)
	files, err := cr.Collect(cfg.Project.Root)
	if err != nil {
		log.Fatalf("Failed to scan project: %v", err)
	}
	if len(files) == 0 {
		log.Fatal("No Java sources found. Check project.root and project.include in modport.yaml.")
	}
	fmt.Printf("✅ Found %d Java sources\n", len(files))

	// 3. Initialize the AI inference client
	if cfg.AI.APIKey == "" {
		log.Fatal("AI API Key is required (set MODPORT_API_KEY env or in modport.yaml)")
	}
	client, err := inference.NewClient(ctx, inference.ClientOptions{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		BaseURL:  cfg.AI.BaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to create inference client: %v", err)
	}

	// 4. Assemble the mapping table
	table := mappings.DefaultTable()
	if cfg.Translation.MappingsFile != "" {
		custom, err := mappings.LoadFile(cfg.Translation.MappingsFile)
		if err != nil {
			log.Fatalf("Failed to load mappings file: %v", err)
		}
		table.AddAll(custom.Entries())
	}

	// 5. Build the pipeline
	p, err := pipeline.New(pipeline.Options{
		Mappings:            table,
		Client:              client,
		Format:              cfg.Output.Format,
		EntryFile:           cfg.Output.EntryFile,
		TargetVersion:       cfg.Translation.TargetVersion,
		ConfidenceThreshold: cfg.Translation.ConfidenceThreshold,
		MaxIterations:       cfg.Translation.MaxIterations,
		Workers:             cfg.Translation.Workers,
		SegmentWorkers:      cfg.Translation.SegmentWorkers,
		Timeout:             cfg.TimeoutDuration(),
		InlineModel:         cfg.Output.InlineModel,
	})
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}

	// 6. Translate
	provider := cfg.AI.Provider
	if provider == "" {
		provider = "gemini"
	}
	fmt.Printf("🧠 Translating with %s (%s)...\n", provider, cfg.AI.Model)
	batch := p.Translate(ctx, files)

	// 7. Write the scripts and record the runs
	store, err := storage.NewSQLiteStore(cfg.Output.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	report := pipeline.NewRunReport("translate", cfg.Output.Dir)
	accepted := 0
	for i := range batch.Results {
		res := &batch.Results[i]
		report.AddFileMetric(pipeline.FileMetricFromResult(*res))

		if res.Err != nil {
			fmt.Printf("❌ %s: %v\n", res.SourceFile, res.Err)
		} else if res.Accepted {
			accepted++
			fmt.Printf("✅ %s (confidence %.2f)\n", res.SourceFile, res.Confidence)
		} else {
			fmt.Printf("⚠️  %s finished without acceptance (confidence %.2f)\n", res.SourceFile, res.Confidence)
		}

		if err := writeOutputs(cfg.Output.Dir, res); err != nil {
			log.Fatalf("Failed to write output for %s: %v", res.SourceFile, err)
		}
		if err := store.SaveRun(ctx, storage.RunFromResult("", res)); err != nil {
			log.Printf("Warning: failed to record run for %s: %v", res.SourceFile, err)
		}
	}

	if err := report.Save(filepath.Join(cfg.Output.Dir, cfg.Output.Report)); err != nil {
		log.Printf("Warning: failed to save run report: %v", err)
	}

	fmt.Printf("✨ Process complete! %d/%d accepted. Check the '%s' directory for generated scripts.\n",
		accepted, len(files), cfg.Output.Dir)
}

// writeOutputs writes a result's files under a directory named after the
// source file.
func writeOutputs(outDir string, res *pipeline.FileResult) error {
	if len(res.Files) == 0 {
		return nil
	}
	stem := filepath.Base(res.SourceFile)
	stem = stem[:len(stem)-len(filepath.Ext(stem))]
	dir := filepath.Join(outDir, stem)

	for _, f := range res.Files {
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
