// lusoctl is the operator CLI for the Luso AI Gateway
//
// Usage:
//
//	lusoctl emotion "Tenho tantas saudades da minha terra"
//	lusoctl adapt --dialect brazilian "Vais apanhar o autocarro?"
//	lusoctl services
//	lusoctl usage --limit 20
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/cultural"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/emotion"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/database"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "lusoctl",
		Usage:   "Inspect and exercise the Luso AI Gateway",
		Version: version,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection string",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json)",
			},
		},

		Commands: []*cli.Command{
			emotionCommand(),
			adaptCommand(),
			servicesCommand(),
			usageCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func emotionCommand() *cli.Command {
	return &cli.Command{
		Name:      "emotion",
		Usage:     "Score saudade, nostalgia and cultural markers locally",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "lexicon",
				Usage:   "Path to a lexicon YAML file (defaults to the embedded lexicon)",
				EnvVars: []string{"EMOTION_LEXICON_PATH"},
			},
		},
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if text == "" {
				return fmt.Errorf("text is required")
			}

			lex, err := emotion.DefaultLexicon()
			if path := c.String("lexicon"); path != "" {
				lex, err = emotion.LoadLexicon(path)
			}
			if err != nil {
				return fmt.Errorf("failed to load lexicon: %w", err)
			}

			result := emotion.NewAnalyzer(lex).Analyze(text)
			if c.String("format") == "json" {
				return printJSON(result)
			}

			w := newTable()
			fmt.Fprintf(w, "lexicon\t%s\n", result.LexiconVersion)
			fmt.Fprintf(w, "saudade\t%.2f\n", result.SaudadeIntensity)
			fmt.Fprintf(w, "nostalgia\t%.2f\n", result.NostalgiaLevel)
			fmt.Fprintf(w, "markers\t%s\n", strings.Join(result.CulturalMarkers, ", "))
			fmt.Fprintf(w, "needs support\t%v\n", result.RequiresEmotionalSupport())
			return w.Flush()
		},
	}
}

func adaptCommand() *cli.Command {
	return &cli.Command{
		Name:      "adapt",
		Usage:     "Rewrite Portuguese text for a dialect",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dialect",
				Aliases: []string{"d"},
				Value:   string(cultural.DialectBrazilian),
				Usage:   "Target dialect (brazilian, continental, african)",
			},
		},
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if text == "" {
				return fmt.Errorf("text is required")
			}

			dialect := cultural.Dialect(c.String("dialect"))
			if !dialect.Valid() {
				return fmt.Errorf("unknown dialect: %s", dialect)
			}

			adapted, changed := cultural.AdaptDialect(text, dialect)
			if c.String("format") == "json" {
				return printJSON(map[string]any{"text": adapted, "changed": changed, "dialect": dialect})
			}

			fmt.Println(adapted)
			if !changed {
				fmt.Fprintln(os.Stderr, "no dialect substitutions applied")
			}
			return nil
		},
	}
}

func servicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "services",
		Usage: "List active AI service configurations",
		Action: func(c *cli.Context) error {
			db, err := openDB(c)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			configs, err := db.ListActiveServiceConfigs(ctx)
			if err != nil {
				return err
			}

			if c.String("format") == "json" {
				return printJSON(configs)
			}

			w := newTable()
			fmt.Fprintln(w, "SERVICE\tTYPE\tPRIMARY\tCOST/REQ\tCAPABILITIES")
			for _, cfg := range configs {
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n",
					cfg.ServiceName,
					cfg.ServiceType,
					cfg.IsPrimary,
					cfg.CostPerRequest.String(),
					strings.Join(cfg.Capabilities, ","),
				)
			}
			return w.Flush()
		},
	}
}

func usageCommand() *cli.Command {
	return &cli.Command{
		Name:  "usage",
		Usage: "Show recent usage records",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   20,
				Usage:   "Number of records to show",
			},
		},
		Action: func(c *cli.Context) error {
			db, err := openDB(c)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			records, err := db.ListRecentUsage(ctx, c.Int("limit"))
			if err != nil {
				return err
			}

			if c.String("format") == "json" {
				return printJSON(records)
			}

			w := newTable()
			fmt.Fprintln(w, "CREATED\tSERVICE\tOPERATION\tSUCCESS\tLATENCY\tCONTEXT\tERROR")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%dms\t%s\t%s\n",
					rec.CreatedAt.Format(time.RFC3339),
					rec.ServiceName,
					rec.OperationType,
					rec.Success,
					rec.LatencyMs,
					deref(rec.CulturalContext),
					deref(rec.ErrorMessage),
				)
			}
			return w.Flush()
		},
	}
}

func openDB(c *cli.Context) (*database.DB, error) {
	url := c.String("database-url")
	if url == "" {
		return nil, fmt.Errorf("--database-url or DATABASE_URL is required")
	}
	return database.New(url)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
