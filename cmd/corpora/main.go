// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/corpora"
	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/auth"
	"github.com/poiesic/corpora/bulk"
	"github.com/poiesic/corpora/core"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "corpora",
		Usage: "Knowledge ingestion and retrieval pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "Postgres connection string; empty runs fully in memory",
				EnvVars: []string{"CORPORA_DSN"},
			},
			&cli.StringFlag{
				Name:    "blobs",
				Usage:   "Path to the blob store directory",
				EnvVars: []string{"CORPORA_BLOBS"},
				Value:   "./corpora-blobs",
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				EnvVars: []string{"CORPORA_EMBEDDING_HOST"},
				Value:   "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				EnvVars: []string{"CORPORA_EMBEDDING_MODEL"},
				Value:   "embeddinggemma",
			},
			&cli.IntFlag{
				Name:    "embedding-dimension",
				Usage:   "Declared embedding output dimension",
				EnvVars: []string{"CORPORA_EMBEDDING_DIMENSION"},
				Value:   768,
			},
			&cli.StringFlag{
				Name:    "api-token",
				Usage:   "API token for the embedding service",
				EnvVars: []string{"CORPORA_API_TOKEN"},
				Value:   "none",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Acting user id",
				Value: "cli",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Upload files and process them synchronously",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "language",
						Usage: "Document language code",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Tag to attach (repeatable)",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Chunk size in characters",
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Chunk overlap in characters",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a hybrid search query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Restrict to documents carrying every given tag",
					},
					&cli.StringFlag{
						Name:  "author",
						Usage: "Restrict to documents owned by this user",
					},
					&cli.IntFlag{
						Name:  "page",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "page-size",
						Value: 10,
					},
				},
			},
			{
				Name:      "reprocess",
				Usage:     "Re-run processing for existing documents",
				ArgsUsage: "DOCUMENT_ID...",
				Action:    reprocessCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Chunk size in characters",
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Chunk overlap in characters",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List documents",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Restrict to documents carrying every given tag",
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: 50,
					},
				},
			},
			{
				Name:   "tags",
				Usage:  "Manage tags",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List all tags with usage counts",
						Action: tagsListCommand,
					},
					{
						Name:      "create",
						Usage:     "Create a tag",
						ArgsUsage: "NAME",
						Action:    tagsCreateCommand,
					},
					{
						Name:      "delete",
						Usage:     "Delete an unused tag",
						ArgsUsage: "NAME",
						Action:    tagsDeleteCommand,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newSystem(c *cli.Context) (*corpora.System, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingDimension(c.Int("embedding-dimension")),
		ai.WithAPIToken(c.String("api-token")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []corpora.SystemOption{corpora.WithAIConfig(aiConfig)}
	if dsn := c.String("dsn"); dsn != "" {
		opts = append(opts, corpora.WithPostgres(dsn))
	}
	if blobs := c.String("blobs"); blobs != "" {
		opts = append(opts, corpora.WithBlobPath(blobs))
	}
	return corpora.NewSystem(c.Context, opts...)
}

func identity(c *cli.Context) auth.Identity {
	return auth.Identity{UserID: c.String("user"), Role: auth.RoleAdmin}
}

func processOptions(c *cli.Context) *core.ProcessOptions {
	size := c.Int("chunk-size")
	overlap := c.Int("chunk-overlap")
	if size == 0 && overlap == 0 {
		return nil
	}
	return &core.ProcessOptions{ChunkSize: size, ChunkOverlap: overlap}
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	system, err := newSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		doc, _, err := system.Upload(c.Context, identity(c), corpora.UploadRequest{
			FileName: filepath.Base(path),
			Language: c.String("language"),
			Data:     data,
			Tags:     c.StringSlice("tag"),
			Options:  processOptions(c),
		})
		if err != nil {
			return fmt.Errorf("uploading %s: %w", path, err)
		}

		if err := waitForDocument(c.Context, system, doc.ID); err != nil {
			return fmt.Errorf("processing %s: %w", path, err)
		}
		fmt.Printf("%s  %s\n", doc.ID, doc.FileName)
	}
	return nil
}

// waitForDocument polls until the document leaves its processing state.
func waitForDocument(ctx context.Context, system *corpora.System, docID string) error {
	for {
		doc, err := system.Document(ctx, docID)
		if err != nil {
			return err
		}
		switch doc.Status {
		case core.StatusProcessed:
			return nil
		case core.StatusError:
			return fmt.Errorf("processing failed: %s", doc.LastError)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}

	system, err := newSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	filters := core.SearchFilters{
		Tags:   c.StringSlice("tag"),
		Author: c.String("author"),
	}
	results, err := system.Search(c.Context, query, filters, c.Int("page"), c.Int("page-size"))
	if err != nil {
		return err
	}

	fmt.Printf("%d results (page %d)\n", results.Total, results.Page)
	for _, hit := range results.Hits {
		fmt.Printf("%.3f  %s  %s\n      %s\n",
			hit.Score, hit.Document.ID, hit.Document.Title, hit.Snippet)
	}
	return nil
}

func reprocessCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one document id is required")
	}

	system, err := newSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	result, err := system.Bulk(c.Context, identity(c), core.BulkReprocess,
		c.Args().Slice(), bulk.Params{Options: processOptions(c)})
	if err != nil {
		return err
	}
	for _, item := range result.Items {
		if item.Success {
			fmt.Printf("%s  scheduled\n", item.DocumentID)
		} else {
			fmt.Printf("%s  failed: %s\n", item.DocumentID, item.Error)
		}
	}
	return nil
}

func listCommand(c *cli.Context) error {
	system, err := newSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	docs, err := system.Documents(c.Context, core.SearchFilters{Tags: c.StringSlice("tag")}, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, doc := range docs {
		fmt.Printf("%s  %-12s  %s\n", doc.ID, doc.Status, doc.Title)
	}
	return nil
}

func tagsListCommand(c *cli.Context) error {
	system, err := newSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	all, err := system.Tags().List(c.Context)
	if err != nil {
		return err
	}
	for _, tag := range all {
		fmt.Printf("%-24s  %d\n", tag.Name, tag.UsageCount)
	}
	return nil
}

func tagsCreateCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("a tag name is required")
	}

	system, err := newSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	tag, err := system.Tags().Create(c.Context, identity(c), &core.Tag{Name: name})
	if err != nil {
		return err
	}
	fmt.Println(tag.ID)
	return nil
}

func tagsDeleteCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("a tag name is required")
	}

	system, err := newSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	tag, err := system.Tags().GetByName(c.Context, name)
	if err != nil {
		return err
	}
	return system.Tags().Delete(c.Context, identity(c), tag.ID)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
