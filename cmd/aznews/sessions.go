package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deusflow/aznews/internal/app"
	"github.com/deusflow/aznews/internal/cache"
	"github.com/deusflow/aznews/internal/config"
	"github.com/deusflow/aznews/internal/storage"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and clean up stored scraping sessions",
	}
	cmd.AddCommand(sessionsListCmd(), sessionsCleanupCmd())
	return cmd
}

func sessionsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printSessions(cmd, sessions)

			st, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d sessions, %d articles stored\n", st.Sessions, st.Articles)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of sessions to show")
	return cmd
}

func sessionsCleanupCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "cleanup N",
		Short: "Delete the newest N sessions and their articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("N must be a positive number, got %q", args[0])
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.ListSessions(cmd.Context(), n)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions found to delete")
				return nil
			}

			fmt.Fprintln(out, "Sessions to delete:")
			printSessions(cmd, sessions)
			if !yes && !confirm(cmd, len(sessions)) {
				fmt.Fprintln(out, "Operation cancelled")
				return nil
			}

			known, closeKnown := openKnownURLs(cmd)
			defer closeKnown()
			res, err := app.DeleteSessions(cmd.Context(), store, known, n)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted %d sessions and %d articles\n", res.Sessions, res.Articles)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func openStore(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := config.LoadStorage()
	if err != nil {
		return nil, err
	}
	return storage.Open(cmd.Context(), cfg.DatabaseURL)
}

// openKnownURLs connects to the shared Redis cache when one is configured.
// An in-process cache dies with the run, so there is nothing to evict
// without Redis.
func openKnownURLs(cmd *cobra.Command) (cache.URLs, func()) {
	cfg, err := config.LoadStorage()
	if err != nil || cfg.RedisURL == "" {
		return nil, func() {}
	}
	r, err := cache.NewRedis(cmd.Context(), cfg.RedisURL, cfg.KnownURLTTL)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: redis unavailable, deleted articles stay cached: %v\n", err)
		return nil, func() {}
	}
	return r, func() { r.Close() }
}

func confirm(cmd *cobra.Command, n int) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "\nThis will delete %d sessions and all their articles. Type 'yes' to confirm: ", n)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

func printSessions(cmd *cobra.Command, sessions []storage.Session) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tFOUND\tNEW\tLINKED\tDURATION\tSUMMARY")
	for _, s := range sessions {
		duration := "-"
		if s.DurationSeconds.Valid {
			duration = fmt.Sprintf("%.1fs", s.DurationSeconds.Float64)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
			s.ID,
			s.CreatedAt.UTC().Format("2006-01-02 15:04"),
			s.ArticlesCount,
			s.NewArticlesCount,
			s.LinkedArticles,
			duration,
			preview(s.Summary.String, 50),
		)
	}
	w.Flush()
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
