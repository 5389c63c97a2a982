// Command catalogctl operates on the medications catalog from the shell: it
// searches the drug lookup service, imports results and manages saved records
// using the same store configuration as the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rxcatalog/medications-catalog/catalog"
	"github.com/rxcatalog/medications-catalog/config"
	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
	"github.com/rxcatalog/medications-catalog/rxnav"
	"github.com/rxcatalog/medications-catalog/store"
	"github.com/rxcatalog/medications-catalog/validation"
	"github.com/spf13/cobra"
)

// cli carries the dependencies every subcommand builds its catalog from.
type cli struct {
	driver   string
	dbURL    string
	asJSON   bool
	rxnav    string
	cfg      *config.Config
	openFn   func(ctx context.Context, opts store.Options) (interfaces.RecordStore, error)
	lookupFn func(baseURL string, timeout time.Duration) interfaces.ConceptLookup
}

func newCLI() *cli {
	return &cli{
		openFn: store.Open,
		lookupFn: func(baseURL string, timeout time.Duration) interfaces.ConceptLookup {
			return rxnav.NewClient(baseURL, timeout)
		},
	}
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(newCLI()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "catalogctl",
		Short:        "Manage the medications catalog",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.cfg = cfg
			if c.driver == "" {
				c.driver = cfg.DBDriver
			}
			if c.dbURL == "" {
				c.dbURL = cfg.DatabaseURL
			}
			if c.rxnav == "" {
				c.rxnav = cfg.RxNavBaseURL
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.driver, "driver", "", "store driver: memory, sqlite or postgres (default DB_DRIVER)")
	flags.StringVar(&c.dbURL, "db-url", "", "postgres connection string or sqlite path (default DATABASE_URL)")
	flags.StringVar(&c.rxnav, "rxnav-url", "", "drug lookup service base URL (default RXNAV_BASE_URL)")
	flags.BoolVar(&c.asJSON, "json", false, "print JSON instead of a table")

	rootCmd.AddCommand(c.searchCmd())
	rootCmd.AddCommand(c.importCmd())
	rootCmd.AddCommand(c.listCmd())
	rootCmd.AddCommand(c.deleteCmd())

	return rootCmd
}

func (c *cli) lookup() interfaces.ConceptLookup {
	return c.lookupFn(c.rxnav, c.cfg.RxNavTimeout)
}

// withCatalog opens the store, runs fn and closes the store.
func (c *cli) withCatalog(ctx context.Context, fn func(svc *catalog.Service) error) error {
	st, err := c.openFn(ctx, store.Options{
		Driver:         c.driver,
		URL:            c.dbURL,
		MaxConns:       c.cfg.DBMaxConns,
		MinConns:       c.cfg.DBMinConns,
		AcquireTimeout: c.cfg.DBAcquireTimeout,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	return fn(catalog.NewService(st, c.lookup(), validation.NewDataValidator()))
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <medication name>",
		Short: "Search the lookup service for savable medications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.NewDataValidator().ValidateInput(args[0]); err != nil {
				return err
			}

			svc := catalog.NewService(nil, c.lookup(), validation.NewDataValidator())
			candidates, err := svc.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printCandidates(cmd.OutOrStdout(), candidates)
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <medication name>",
		Short: "Search and save every result not already in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.NewDataValidator().ValidateInput(args[0]); err != nil {
				return err
			}

			return c.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				candidates, err := svc.Search(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(candidates) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No medications found.")
					return nil
				}

				outcome := svc.SaveMultiple(cmd.Context(), candidates)
				if c.asJSON {
					return writeJSON(cmd.OutOrStdout(), outcome)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved: %d, skipped: %d\n", outcome.SavedCount, outcome.SkippedCount)
				for _, msg := range outcome.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), msg)
				}
				if !outcome.Success {
					return fmt.Errorf("no medications were saved")
				}
				return nil
			})
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var (
		page   int
		limit  int
		search string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved medications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				result := svc.List(cmd.Context(), entities.ListQuery{Search: search, Page: page, Limit: limit})
				if result.Failed {
					return fmt.Errorf("error loading saved medications")
				}
				if c.asJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tRXCUI\tNAME\tSYNONYM")
				for _, rec := range result.Records {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", rec.ID, rec.Rxcui, rec.Name, rec.Synonym)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				p := result.Pagination
				fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d records)\n", p.CurrentPage, p.TotalPages, p.TotalRecords)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", entities.DefaultPage, "page number")
	cmd.Flags().IntVar(&limit, "limit", entities.DefaultLimit, "records per page")
	cmd.Flags().StringVar(&search, "search", "", "filter on name, synonym or rxcui")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved medication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid medication id %q", args[0])
			}

			return c.withCatalog(cmd.Context(), func(svc *catalog.Service) error {
				res, err := svc.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !res.Removed {
					return fmt.Errorf("medication %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Medication %d deleted.\n", id)
				return nil
			})
		},
	}
}

func (c *cli) printCandidates(w io.Writer, candidates []entities.CandidateRecord) error {
	if c.asJSON {
		return writeJSON(w, candidates)
	}
	if len(candidates) == 0 {
		fmt.Fprintln(w, "No medications found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RXCUI\tNAME\tSYNONYM")
	for _, cand := range candidates {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", cand.Rxcui, cand.Name, cand.Synonym)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
