package client

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	config "github.com/heroku-miraheze/ed2kd/internal/config/server"
	"github.com/heroku-miraheze/ed2kd/pkg/db/search"
	"github.com/heroku-miraheze/ed2kd/pkg/db/store"
	"github.com/heroku-miraheze/ed2kd/pkg/ed2k"
)

func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect a catalog database",
		Long:  "Query a file-backed catalog database directly, without going through a server session.",
	}

	cmd.AddCommand(NewCatalogSearchCommand())
	cmd.AddCommand(NewCatalogSourcesCommand())

	return cmd
}

func openCatalog(ctx context.Context) (*store.SQLiteStore, *config.BaseServerConfig, error) {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load server configuration: %w", err)
	}

	catalog, err := store.NewSQLiteStore(store.SQLiteConfig{
		DSN:          cfg.Catalog.DSN,
		MaxOpenConns: cfg.Catalog.MaxOpenConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog store: %w", err)
	}
	if err := catalog.Connect(ctx); err != nil {
		catalog.Close()
		return nil, nil, fmt.Errorf("failed to connect catalog store: %w", err)
	}
	if err := catalog.Migrate(ctx); err != nil {
		catalog.Close()
		return nil, nil, fmt.Errorf("failed to migrate catalog store: %w", err)
	}

	return catalog, cfg, nil
}

func NewCatalogSearchCommand() *cobra.Command {
	var (
		ext        string
		fileType   string
		minSize    uint64
		maxSize    uint64
		minSources uint64
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search <term> [term...]",
		Short: "Search the catalog by name",
		Long:  "Search the catalog by file name terms combined with AND, optionally narrowed by attribute filters.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			catalog, cfg, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer catalog.Close()

			root := search.Term(args[0])
			for _, term := range args[1:] {
				root = search.And(root, search.Term(term))
			}
			if ext != "" {
				root = search.And(root, search.StrLeaf(search.KindExtension, ext))
			}
			if fileType != "" {
				root = search.And(root, search.StrLeaf(search.KindType, fileType))
			}
			if minSize > 0 {
				root = search.And(root, search.IntLeaf(search.KindMinSize, minSize))
			}
			if maxSize > 0 {
				root = search.And(root, search.IntLeaf(search.KindMaxSize, maxSize))
			}
			if minSources > 0 {
				root = search.And(root, search.IntLeaf(search.KindMinSources, minSources))
			}

			query, err := search.Compile(root, search.Limits{
				MaxMatchLen: cfg.Catalog.Search.MaxMatchLen,
				MaxFilters:  cfg.Catalog.Search.MaxFilters,
			})
			if err != nil {
				return fmt.Errorf("failed to compile search expression: %w", err)
			}

			if limit <= 0 || limit > cfg.Catalog.MaxResults {
				limit = cfg.Catalog.MaxResults
			}

			count, err := catalog.SearchFiles(ctx, query, limit, func(row *store.SearchRow) error {
				fmt.Printf("%x  %10d  %-5s  %d/%d sources  %s\n",
					row.Hash, row.Size, row.Type, row.SrcComplete, row.SrcAvail, row.Name)
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Printf("%d file(s) matched\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&ext, "ext", "", "only files with this extension")
	cmd.Flags().StringVar(&fileType, "type", "", "only files of this media category (audio, video, image, pro, doc, arc, iso)")
	cmd.Flags().Uint64Var(&minSize, "min-size", 0, "only files larger than this many bytes")
	cmd.Flags().Uint64Var(&maxSize, "max-size", 0, "only files smaller than this many bytes")
	cmd.Flags().Uint64Var(&minSources, "min-sources", 0, "only files with more than this many sources")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (default from config)")

	return cmd
}

func NewCatalogSourcesCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sources <hash>",
		Short: "List sources for a file",
		Long:  "List the peers currently offering the file with the given hex content hash.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			raw, err := hex.DecodeString(args[0])
			if err != nil || len(raw) != ed2k.HashSize {
				return fmt.Errorf("expected a %d-byte hex content hash", ed2k.HashSize)
			}
			var hash [ed2k.HashSize]byte
			copy(hash[:], raw)

			catalog, cfg, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer catalog.Close()

			if limit <= 0 || limit > cfg.Catalog.SourceLimit {
				limit = cfg.Catalog.SourceLimit
			}

			sources, err := catalog.SourcesForFile(ctx, hash, limit)
			if err != nil {
				return err
			}

			for _, ep := range sources {
				ip := net.IPv4(byte(ep.Addr>>24), byte(ep.Addr>>16), byte(ep.Addr>>8), byte(ep.Addr))
				fmt.Printf("%s:%d\n", ip, ep.Port)
			}
			fmt.Printf("%d source(s)\n", len(sources))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of sources (default from config)")

	return cmd
}
