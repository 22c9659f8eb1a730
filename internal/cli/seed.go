package cli

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/lazypower/memofeed/internal/store"
	"github.com/spf13/cobra"
)

var (
	seedCount int
	seedRand  uint64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with sample memos",
	Long:  "Create sample memos of varied length with tags, links, task lists and code so the feed has something to lay out.",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 60, "number of memos to create")
	seedCmd.Flags().Uint64Var(&seedRand, "seed", 1, "random seed")
}

func runSeed(cmd *cobra.Command, args []string) error {
	logger := loggerFromContext(cmd.Context())

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	uids, err := seedMemos(db, seedCount, rand.New(rand.NewPCG(seedRand, seedRand)), time.Now())
	if err != nil {
		return err
	}
	logger.Debug("seeded", "count", len(uids), "db", db.Path)
	fmt.Fprintf(cmd.OutOrStdout(), "Created %d memos in %s\n", len(uids), db.Path)
	return nil
}

var (
	seedTags = []string{"go", "reading", "ideas", "work/standup", "work/retro", "recipes", "travel", "music"}

	seedSentences = []string{
		"Started the morning with a long walk and no phone.",
		"The masonry layout finally stops jumping when pages arrive.",
		"Remember to rotate the backup drive on Friday.",
		"Half the bugs this week came from one off-by-one in a cursor.",
		"Tried the new ramen place on the corner, broth was excellent.",
		"Write things down before they feel important.",
		"Pairing session went well, we deleted more code than we added.",
		"Rain all day, good excuse to finish the book.",
		"Small tools that do one thing keep surprising me.",
		"Need a better name for the sync worker.",
	}

	seedExtras = []func(r *rand.Rand) string{
		func(r *rand.Rand) string {
			return "See https://go.dev/doc/effective_go for the details."
		},
		func(r *rand.Rand) string {
			return "- [x] draft outline\n- [ ] review with the team\n- [ ] publish"
		},
		func(r *rand.Rand) string {
			return "```go\nfor range time.Tick(time.Second) {\n\tfmt.Println(\"tick\")\n}\n```"
		},
		func(r *rand.Rand) string {
			return fmt.Sprintf("> %s", seedSentences[r.IntN(len(seedSentences))])
		},
	}
)

// seedMemos creates n sample memos with display times spread over the
// days before now, pinning a few and commenting on some. It returns the
// uids of the top-level memos.
func seedMemos(db *store.DB, n int, r *rand.Rand, now time.Time) ([]string, error) {
	visibilities := []string{store.VisibilityPublic, store.VisibilityProtected, store.VisibilityPrivate}

	uids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		m := &store.Memo{
			Creator:     "seed",
			Content:     sampleContent(r),
			Visibility:  visibilities[r.IntN(len(visibilities))],
			Pinned:      r.IntN(12) == 0,
			DisplayTime: now.Add(-time.Duration(i)*3*time.Hour - time.Duration(r.IntN(120))*time.Minute).UnixMilli(),
		}
		if err := db.CreateMemo(m); err != nil {
			return uids, fmt.Errorf("seed memo %d: %w", i, err)
		}
		uids = append(uids, m.UID)

		if i > 0 && r.IntN(5) == 0 {
			c := &store.Memo{
				Creator:   "seed",
				Content:   seedSentences[r.IntN(len(seedSentences))],
				ParentUID: uids[r.IntN(len(uids)-1)],
			}
			if err := db.CreateMemo(c); err != nil {
				return uids, fmt.Errorf("seed comment %d: %w", i, err)
			}
		}
		if i > 0 && r.IntN(6) == 0 {
			if err := db.AddReference(m.UID, uids[r.IntN(len(uids)-1)]); err != nil {
				return uids, fmt.Errorf("seed reference %d: %w", i, err)
			}
		}
	}
	return uids, nil
}

func sampleContent(r *rand.Rand) string {
	var b strings.Builder
	for i, k := 0, 1+r.IntN(4); i < k; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(seedSentences[r.IntN(len(seedSentences))])
	}
	if r.IntN(3) == 0 {
		b.WriteString("\n\n")
		b.WriteString(seedExtras[r.IntN(len(seedExtras))](r))
	}
	if r.IntN(2) == 0 {
		b.WriteString("\n\n#")
		b.WriteString(seedTags[r.IntN(len(seedTags))])
	}
	return b.String()
}
