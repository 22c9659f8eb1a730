package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lazypower/memofeed/internal/client"
	"github.com/lazypower/memofeed/internal/feed"
	"github.com/lazypower/memofeed/internal/pager"
	"github.com/lazypower/memofeed/internal/store"
	"github.com/spf13/cobra"
)

var (
	feedFilter   string
	feedOrder    string
	feedPageSize int
	feedLocal    bool
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Browse memos as an infinite masonry feed",
	Long: `Open the memo feed in the terminal. Cards are laid out in as many columns
as the window fits and further pages load as you scroll.

By default the feed reads from the memofeed server. With --local it reads
the database directly.`,
	RunE: runFeed,
}

func init() {
	feedCmd.Flags().StringVarP(&feedFilter, "filter", "f", "", `filter expression, e.g. "tagSearch:go,pinned:true"`)
	feedCmd.Flags().StringVarP(&feedOrder, "order", "o", "", "sort order (default from config)")
	feedCmd.Flags().IntVarP(&feedPageSize, "page-size", "n", 0, "memos per page (default from config)")
	feedCmd.Flags().BoolVar(&feedLocal, "local", false, "read the database directly instead of the server")
}

func runFeed(cmd *cobra.Command, args []string) error {
	logger := loggerFromContext(cmd.Context())

	q := client.ListQuery{
		Filter:   feedFilter,
		OrderBy:  feedOrder,
		PageSize: feedPageSize,
	}
	if q.OrderBy == "" {
		q.OrderBy = cfg.Feed.OrderBy
	}
	if q.PageSize <= 0 {
		q.PageSize = cfg.Feed.PageSize
	}

	var src pager.Source[store.Memo]
	if feedLocal {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		s, err := localFeed(db, q)
		if err != nil {
			return err
		}
		src = s
	} else {
		c := client.New(cfg.ServerURL())
		ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
		ok := c.Healthy(ctx)
		cancel()
		if !ok {
			return fmt.Errorf("memofeed server not reachable at %s (run `memofeed serve` or use --local)", c.URL())
		}
		src = c.Feed(q)
	}

	title := "memofeed"
	if q.Filter != "" {
		title += " · " + q.Filter
	}

	m := feed.New(src, feed.Options{
		Title:             title,
		MinColumnWidth:    cfg.Feed.MinColumnWidth,
		PlaceholderHeight: cfg.Feed.PlaceholderHeight,
		Style:             cfg.Feed.Style,
		Pager: pager.Options{
			ScrollThreshold:  cfg.Feed.ScrollThreshold,
			ScrollableMargin: cfg.Feed.ScrollableMargin,
			SettleDelay:      cfg.Feed.SettleDelay.Duration,
			RetryDelay:       cfg.Feed.RetryDelay.Duration,
		},
		Logger: logger,
	})
	defer m.Close()

	logger.Debug("feed starting", "filter", q.Filter, "order", q.OrderBy, "page_size", q.PageSize, "local", feedLocal)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	return nil
}

// localFeed pages through the database without going through the server.
// The filter and order are validated up front so a typo fails before the
// screen switches.
func localFeed(db *store.DB, q client.ListQuery) (pager.Source[store.Memo], error) {
	filter, err := store.ParseFilter(q.Filter)
	if err != nil {
		return nil, err
	}
	order, err := store.ParseOrder(q.OrderBy)
	if err != nil {
		return nil, err
	}
	return pager.SourceFunc[store.Memo](func(ctx context.Context, cursor string) (pager.Page[store.Memo], error) {
		if err := ctx.Err(); err != nil {
			return pager.Page[store.Memo]{}, err
		}
		res, err := db.ListMemos(store.ListOptions{
			Filter:    filter,
			OrderBy:   order,
			PageSize:  q.PageSize,
			PageToken: cursor,
		})
		if err != nil {
			return pager.Page[store.Memo]{}, err
		}
		return pager.Page[store.Memo]{Items: res.Memos, NextCursor: res.NextPageToken}, nil
	}), nil
}
