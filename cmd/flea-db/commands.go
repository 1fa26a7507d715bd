package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sha1n/flea-db/internal/app"
	"github.com/sha1n/flea-db/internal/config"
	"github.com/sha1n/flea-db/internal/facet"
	"github.com/sha1n/flea-db/internal/fleadb"
	mcputil "github.com/sha1n/flea-db/internal/mcp"
	"github.com/sha1n/flea-db/internal/query"
	"github.com/spf13/cobra"
)

// dbCommand creates a subcommand that runs against an opened database.
func dbCommand(use, short string, args cobra.PositionalArgs, run func(cmd *cobra.Command, args []string, db *fleadb.DB) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(db *fleadb.DB) error {
				return run(cmd, args, db)
			})
		},
	}
	app.RegisterDBFlags(cmd.Flags())
	cmd.Flags().StringP("log-level", "l", "", "Log level: debug, info, warn or error")
	return cmd
}

func withDB(cmd *cobra.Command, fn func(db *fleadb.DB) error) (err error) {
	settings, err := config.LoadSettingsWithFlags(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	app.ConfigureLogging(settings.LogLevel)

	db, err := app.OpenDB(commandContext(cmd), &settings.DB, nil)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, db.Close())
	}()
	return fn(db)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func queryFlag(cmd *cobra.Command) (query.Query, error) {
	text, _ := cmd.Flags().GetString("query")
	return query.Parse([]byte(text))
}

func newFieldsCommand() *cobra.Command {
	return dbCommand("fields", "Print the indexed fields of the database", cobra.NoArgs,
		func(cmd *cobra.Command, args []string, db *fleadb.DB) error {
			return printJSON(cmd, mcputil.DescribeFields(db.Catalog()))
		})
}

func newStoreCommand() *cobra.Command {
	return dbCommand("store <file>", "Store the documents of a JSON array or JSON lines file ('-' reads stdin)", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string, db *fleadb.DB) error {
			docs, err := readDocuments(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			ids, err := db.StoreAll(ctx, docs)
			if err != nil {
				return err
			}
			if err := db.Commit(ctx); err != nil {
				return err
			}
			return printJSON(cmd, mcputil.StoreResult{IDs: ids})
		})
}

// readDocuments reads either a JSON array of documents or a stream of
// whitespace separated documents.
func readDocuments(stdin io.Reader, path string) ([][]byte, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	var raws []json.RawMessage
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("failed to parse document array: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		for {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err == io.EOF {
				break
			} else if err != nil {
				return nil, fmt.Errorf("failed to parse document %d: %w", len(raws), err)
			}
			raws = append(raws, raw)
		}
	}

	if len(raws) == 0 {
		return nil, errors.New("no documents to store")
	}
	docs := make([][]byte, len(raws))
	for i, r := range raws {
		docs[i] = r
	}
	return docs, nil
}

type queryOutput struct {
	Total     int                      `json:"total"`
	Page      int                      `json:"page"`
	Pages     int                      `json:"pages"`
	Documents []mcputil.SearchDocument `json:"documents"`
}

func newQueryCommand() *cobra.Command {
	cmd := dbCommand("query", "Print one page of the documents matching a query", cobra.NoArgs,
		func(cmd *cobra.Command, args []string, db *fleadb.DB) error {
			q, err := queryFlag(cmd)
			if err != nil {
				return err
			}
			sortText, _ := cmd.Flags().GetString("sort")
			page, _ := cmd.Flags().GetInt("page")
			size, _ := cmd.Flags().GetInt("page-size")

			ctx := commandContext(cmd)
			p, err := db.Query(q, query.ParseSort(sortText))
			if err != nil {
				return err
			}
			total, err := p.TotalHits(ctx)
			if err != nil {
				return err
			}
			pages, err := p.TotalPages(ctx, size)
			if err != nil {
				return err
			}

			out := queryOutput{Total: total, Page: page, Pages: pages, Documents: []mcputil.SearchDocument{}}
			if total > 0 {
				hits, err := p.Page(ctx, page, size)
				if err != nil {
					return err
				}
				for _, h := range hits {
					out.Documents = append(out.Documents, mcputil.SearchDocument{ID: h.ID, Source: h.Source})
				}
			}
			return printJSON(cmd, out)
		})
	cmd.Flags().StringP("query", "q", "", "Query as JSON, e.g. '{\"term\":{\"field\":\"$.id\",\"value\":\"7\"}}' (default all documents)")
	cmd.Flags().String("sort", "", "Comma separated sort fields, each optionally suffixed with :desc")
	cmd.Flags().Int("page", 1, "Page number, starting at 1")
	cmd.Flags().Int("page-size", 20, "Documents per page")
	return cmd
}

func newFacetsCommand() *cobra.Command {
	cmd := dbCommand("facets", "Print facet value counts over the documents matching a query", cobra.NoArgs,
		func(cmd *cobra.Command, args []string, db *fleadb.DB) error {
			q, err := queryFlag(cmd)
			if err != nil {
				return err
			}
			requested, _ := cmd.Flags().GetStringToInt("facet")
			max, _ := cmd.Flags().GetInt("max")
			prefix, _ := cmd.Flags().GetString("prefix")

			ctx := commandContext(cmd)
			if prefix != "" {
				if len(requested) != 1 {
					return fmt.Errorf("--prefix requires exactly one --facet, got %d", len(requested))
				}
				for name, n := range requested {
					resp, err := db.FacetValuesStartingWith(ctx, name, prefix, q, n)
					if err != nil {
						return err
					}
					return printJSON(cmd, []facet.Response{resp})
				}
			}

			var resps []facet.Response
			if len(requested) == 0 {
				resps, err = db.FacetValues(ctx, q, max)
			} else {
				var req *facet.Request
				if req, err = facet.RequestFromMap(requested); err == nil {
					resps, err = db.FacetValuesFor(ctx, q, req)
				}
			}
			if err != nil {
				return err
			}
			if resps == nil {
				resps = []facet.Response{}
			}
			return printJSON(cmd, resps)
		})
	cmd.Flags().StringToInt("facet", nil, "Facet to count and the maximum number of values to print, as name=max (repeatable)")
	cmd.Flags().Int("max", 10, "Maximum number of values per facet when no --facet is given")
	cmd.Flags().String("prefix", "", "Only print values starting with this prefix (requires one --facet)")
	cmd.Flags().StringP("query", "q", "", "Query as JSON restricting the counted documents (default all documents)")
	return cmd
}
