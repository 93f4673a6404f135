package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/storymint/storymint/internal/chart"
	"github.com/storymint/storymint/internal/config"
	"github.com/storymint/storymint/internal/database"
	"github.com/storymint/storymint/internal/insight"
	"github.com/storymint/storymint/internal/llm"
	"github.com/storymint/storymint/internal/model"
	"github.com/storymint/storymint/internal/section"
	"github.com/storymint/storymint/internal/server"
	"github.com/storymint/storymint/internal/story"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "storymint",
	Short:   "Turn flat insight lists into data stories",
	Long:    "Storymint organizes analytical insights into a story manifest: a central thesis, ranked KPIs, thematic sections with audience-adapted narratives, and chart references.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for commands that touch neither the
		// store nor the synthesis strategy.
		if cmd.Name() == "init" || cmd.Name() == "version" || cmd.Name() == "charts" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(chartsCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("storymint", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/storymint/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to adjust the ontology, narrative mode, and LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show story store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Store:")
		fmt.Printf("  Stories: %d\n", stats.TotalStories)
		fmt.Printf("  Projects: %d\n", stats.TotalProjects)
		fmt.Printf("  Stored insights: %d\n", stats.TotalInsights)
		if stats.LatestStoryID != "" {
			fmt.Printf("  Latest story: %s\n", stats.LatestStoryID)
		}
		return nil
	},
}

// --- build command ---

var (
	buildInput     string
	buildProject   string
	buildObjective string
	buildMode      string
	buildOut       string
	buildNoSave    bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a story manifest from an insights file",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := insight.LoadFile(buildInput)
		if err != nil {
			return err
		}
		insights, err := insight.Normalize(doc.Insights)
		if err != nil {
			return err
		}

		project := buildProject
		if project == "" {
			project = doc.Project
		}
		objective := buildObjective
		if objective == "" {
			objective = doc.Objective
		}
		mode, err := resolveMode(buildMode)
		if err != nil {
			return err
		}

		builder, err := newBuilder()
		if err != nil {
			return err
		}

		m, err := builder.Build(context.Background(), insights, story.Request{
			ProjectName: project,
			Objective:   objective,
			Context:     doc.Context,
			ChartRefs:   doc.ChartRefs,
			Mode:        mode,
		})
		if err != nil {
			return err
		}

		if !buildNoSave {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.SaveStory(m, insights); err != nil {
				return fmt.Errorf("saving story: %w", err)
			}
		}

		if buildOut != "" {
			if err := writeManifest(m, buildOut); err != nil {
				return err
			}
		}

		fmt.Printf("\nStory: %s\n", m.StoryID)
		fmt.Printf("  Thesis: %s\n", m.Thesis.Title)
		fmt.Printf("  Mode: %s\n", m.NarrativeMode)
		fmt.Printf("  Sections: %d\n", len(m.Sections))
		fmt.Printf("  Top KPIs: %d\n", len(m.TopKPIs))
		if d := m.Metadata["dropped_insights"]; d != "" && d != "0" {
			fmt.Printf("  Unplaced insights: %s\n", d)
		}
		if !buildNoSave {
			fmt.Println("\nRun 'storymint serve' to view it.")
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildInput, "input", "i", "", "Path to insights JSON file (required)")
	buildCmd.Flags().StringVar(&buildProject, "project", "", "Project name (overrides the document)")
	buildCmd.Flags().StringVar(&buildObjective, "objective", "", "Analysis objective (overrides the document)")
	buildCmd.Flags().StringVarP(&buildMode, "mode", "m", "", "Narrative mode: executive, analyst, or technical")
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "Write the manifest JSON to a file ('-' for stdout)")
	buildCmd.Flags().BoolVar(&buildNoSave, "no-save", false, "Skip saving the story to the store")
	buildCmd.MarkFlagRequired("input")
}

// --- rebuild command ---

var (
	rebuildMode string
	rebuildOut  string
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [story-id]",
	Short: "Re-synthesize a stored story's narratives for a different audience",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storyID := args[0]

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		m, err := db.GetStory(storyID)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("story not found: %s", storyID)
		}
		insights, err := db.GetStoryInsights(storyID)
		if err != nil {
			return err
		}

		mode, err := resolveMode(rebuildMode)
		if err != nil {
			return err
		}

		builder, err := newBuilder()
		if err != nil {
			return err
		}

		rebuilt, err := builder.Rebuild(context.Background(), m, insights, mode)
		if err != nil {
			return err
		}
		if err := db.SaveStory(rebuilt, insights); err != nil {
			return fmt.Errorf("saving story: %w", err)
		}

		if rebuildOut != "" {
			if err := writeManifest(rebuilt, rebuildOut); err != nil {
				return err
			}
		}

		fmt.Printf("Rebuilt %s as %s (%s mode)\n", storyID, rebuilt.StoryID, rebuilt.NarrativeMode)
		return nil
	},
}

func init() {
	rebuildCmd.Flags().StringVarP(&rebuildMode, "mode", "m", "", "Narrative mode: executive, analyst, or technical")
	rebuildCmd.Flags().StringVarP(&rebuildOut, "out", "o", "", "Write the manifest JSON to a file ('-' for stdout)")
}

// --- list command ---

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored stories",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.ListStories(listLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No stories yet. Build one with: storymint build --input insights.json")
			return nil
		}

		fmt.Println("Stories:")
		fmt.Println()
		for _, r := range records {
			created := ""
			if r.CreatedAt != nil {
				created = *r.CreatedAt
			}
			fmt.Printf("  %s\n", r.StoryID)
			fmt.Printf("    %s\n", r.ThesisTitle)
			fmt.Printf("    %s | %s | %d sections | %d insights | %s\n",
				r.ProjectName, r.NarrativeMode, r.SectionCount, r.InsightCount, created)
			if r.DroppedCount > 0 {
				fmt.Printf("    %d insight(s) unplaced\n", r.DroppedCount)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum stories to list (0 = all)")
}

// --- show command ---

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show [story-id]",
	Short: "Print a stored story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		m, err := db.GetStory(args[0])
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("story not found: %s", args[0])
		}

		if showJSON {
			return writeManifest(m, "-")
		}
		printStorySummary(m)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the full manifest JSON")
}

// --- delete command ---

var deleteCmd = &cobra.Command{
	Use:   "delete [story-id]",
	Short: "Delete a stored story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteStory(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted story: %s\n", args[0])
		return nil
	},
}

// --- charts command ---

var chartsInput string

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Suggest a chart type for each insight in a file",
	Long:  "Chart suggestions are advisory output for the external renderer; the story pipeline itself only carries pre-assigned chart handles.",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := insight.LoadFile(chartsInput)
		if err != nil {
			return err
		}
		insights, err := insight.Normalize(doc.Insights)
		if err != nil {
			return err
		}
		if len(insights) == 0 {
			return model.ErrNoInsights
		}

		for _, in := range insights {
			shape := chart.ShapeFromJSON(in.SupportingData)
			chartType, params := chart.Select(in, shape)
			line := fmt.Sprintf("  %s: %s (x=%s", in.ID, chartType, params.XAxis)
			if params.YAxis != "" {
				line += ", y=" + params.YAxis
			}
			if params.SeriesBy != "" {
				line += ", series=" + params.SeriesBy
			}
			fmt.Printf("%s, agg=%s)\n", line, params.Aggregate)
		}
		return nil
	},
}

func init() {
	chartsCmd.Flags().StringVarP(&chartsInput, "input", "i", "", "Path to insights JSON file (required)")
	chartsCmd.MarkFlagRequired("input")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local preview server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port, cacheTTL)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- helpers ---

// newBuilder assembles the story builder from config: grouping choice,
// ontology tables, extraction limits, and the optional LLM overlay.
func newBuilder() (*story.Builder, error) {
	vocab := cfg.Vocabulary()

	var grouper section.Grouper
	switch cfg.Story.Grouping {
	case "", "keyword":
		grouper = section.NewKeywordGrouper(vocab)
	case "concept":
		grouper = section.NewConceptGrouper()
	default:
		return nil, fmt.Errorf("unknown grouping %q (want keyword or concept)", cfg.Story.Grouping)
	}

	opts := story.Options{
		MaxKPIs:        cfg.Story.MaxKPIs,
		SectionMaxKPIs: cfg.Story.SectionMaxKPIs,
		MinSectionSize: cfg.Story.MinSectionSize,
		MaxKeyFindings: cfg.Story.MaxKeyFindings,
	}

	provider := llm.CreateProvider(llm.Options{
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
		OllamaURL:         cfg.LLM.OllamaURL,
		OpenAIModel:       cfg.LLM.OpenAIModel,
		OpenAIBaseURL:     cfg.LLM.OpenAIBaseURL,
		APIKeyEnv:         cfg.LLM.APIKeyEnv,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
	if provider == nil {
		return story.NewBuilder(story.NewHeuristicStrategy(vocab, grouper), opts), nil
	}
	return story.NewBuilder(story.NewModelAssistedStrategy(provider, vocab, grouper), opts), nil
}

// resolveMode picks the narrative mode from the flag or config default.
func resolveMode(flag string) (model.NarrativeMode, error) {
	s := flag
	if s == "" {
		s = cfg.Story.Mode
	}
	return model.ParseNarrativeMode(s)
}

func writeManifest(m *model.Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	fmt.Printf("Wrote manifest: %s\n", path)
	return nil
}

func printStorySummary(m *model.Manifest) {
	fmt.Printf("Story: %s\n", m.StoryID)
	fmt.Printf("Project: %s\n", m.ProjectName)
	fmt.Printf("Mode: %s\n\n", m.NarrativeMode)

	fmt.Println(m.Thesis.Title)
	if m.Thesis.Hook != "" {
		fmt.Println(m.Thesis.Hook)
	}
	fmt.Println()

	if m.ExecutiveSummary != "" {
		fmt.Println(m.ExecutiveSummary)
		fmt.Println()
	}

	if len(m.TopKPIs) > 0 {
		fmt.Println("Top KPIs:")
		for _, k := range m.TopKPIs {
			line := fmt.Sprintf("  %d. %s %s", k.Rank, k.Value, k.Label)
			if k.Context != "" {
				line += " (" + k.Context + ")"
			}
			fmt.Println(line)
		}
		fmt.Println()
	}

	fmt.Println("Sections:")
	for _, sec := range m.Sections {
		fmt.Printf("  %d. %s (%d insights)\n", sec.Order+1, sec.Title, len(sec.InsightIDs))
	}

	if len(m.KeyFindings) > 0 {
		fmt.Println("\nKey findings:")
		for _, f := range m.KeyFindings {
			fmt.Printf("  - %s\n", f)
		}
	}
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "storymint.db")
	return database.Open(dbPath)
}
