package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/denisb0/resource_catalog/storage"
)

type app struct {
	logger *zap.Logger
	store  *storage.Store
}

// needsStore is false for the help and completion commands cobra generates.
func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	if !needsStore(cmd) {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	store, err := storage.Connect(cmd.Context(), cfg.DatabaseURI, storage.Options{
		Logger:             logger,
		MaxOpenConns:       cfg.MaxOpenConns,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return fmt.Errorf("db access error: %w", err)
	}

	a.logger, a.store = logger, store
	return nil
}

// close releases whatever open acquired. It is safe to call when open did not
// run or failed.
func (a *app) close() error {
	if a.logger != nil {
		defer func() { _ = a.logger.Sync() }()
	}
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func searchTerm(args []string) string {
	return strings.ToLower(strings.TrimSpace(strings.Join(args, " ")))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "resource_catalog",
		Short:             "Store and query links shared in chat channels",
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Create missing tables and indexes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.store.Migrate(cmd.Context())
			},
		},
		newIngestCmd(a),
		newSearchCmd(a),
		&cobra.Command{
			Use:   "sample [term]",
			Short: "Print one random resource whose description contains term",
			RunE: func(cmd *cobra.Command, args []string) error {
				resources, err := a.store.Sample(cmd.Context(), searchTerm(args))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resources)
			},
		},
		&cobra.Command{
			Use:   "count [term]",
			Short: "Print the number of resources whose description contains term",
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := a.store.Count(cmd.Context(), searchTerm(args))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			},
		},
	)

	return root
}

func newSearchCmd(a *app) *cobra.Command {
	var limit, page int

	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "List resources whose description contains term, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			resources, err := a.store.Search(cmd.Context(), searchTerm(args), limit, page)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resources)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "resources per page")
	cmd.Flags().IntVar(&page, "page", 0, "zero based page index")

	return cmd
}

func newIngestCmd(a *app) *cobra.Command {
	var allowDuplicates bool

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Store resources built from chat messages read from file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			messages, err := decodeMessages(in)
			if err != nil {
				return err
			}

			runLog := a.logger.With(zap.String("run_id", uuid.NewString()))
			stats, err := ingest(cmd.Context(), a.store, messages, allowDuplicates, runLog)
			runLog.Info("ingest finished",
				zap.Int("messages", stats.Messages),
				zap.Int("inserted", stats.Inserted),
				zap.Int("duplicates", stats.Duplicates),
				zap.Int("rejected", stats.Rejected),
			)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().BoolVar(&allowDuplicates, "allow-duplicates", false, "store resources whose fingerprint already exists")

	return cmd
}

func main() {
	a := &app{}
	err := newRootCmd(a).ExecuteContext(context.Background())
	if closeErr := a.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		log.Fatal(err)
	}
}
