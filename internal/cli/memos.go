package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lazypower/memofeed/internal/store"
	"github.com/spf13/cobra"
)

// openDB is a helper that opens the database for CLI commands.
func openDB() (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}

// --- list command ---

var (
	listFilter   string
	listOrder    string
	listState    string
	listPageSize int
	listToken    string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of memos",
	Long:  "List one page of top-level memos. The last line carries the token for the next page, if any.",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	filter, err := store.ParseFilter(listFilter)
	if err != nil {
		return err
	}
	order, err := store.ParseOrder(listOrder)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	res, err := db.ListMemos(store.ListOptions{
		Filter:    filter,
		OrderBy:   order,
		State:     strings.ToUpper(listState),
		PageSize:  listPageSize,
		PageToken: listToken,
	})
	if err != nil {
		return fmt.Errorf("list memos: %w", err)
	}

	printList(cmd.OutOrStdout(), res)
	return nil
}

func printList(w io.Writer, res *store.ListResult) {
	if len(res.Memos) == 0 {
		fmt.Fprintln(w, "No memos found.")
		return
	}
	for _, m := range res.Memos {
		pin := " "
		if m.Pinned {
			pin = "*"
		}
		fmt.Fprintf(w, "%s %s  %s  %s\n", pin, m.UID, displayTime(m.DisplayTime), summary(m.Content, 60))
	}
	if res.NextPageToken != "" {
		fmt.Fprintf(w, "\nnext page: --page-token %s\n", res.NextPageToken)
	}
}

// --- memo commands ---

var memoCmd = &cobra.Command{
	Use:   "memo",
	Short: "Create and manage memos",
}

var (
	memoVisibility string
	memoPinned     bool
	memoCreator    string
	memoFile       string
)

var memoAddCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Create a memo",
	Long:  "Create a memo from the arguments, from --file, or from stdin when --file is \"-\".",
	RunE:  runMemoAdd,
}

var memoShowCmd = &cobra.Command{
	Use:   "show <uid>",
	Short: "Show a memo with its comments and references",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoShow,
}

var memoCommentCmd = &cobra.Command{
	Use:   "comment <uid> <content>",
	Short: "Comment on a memo",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runMemoComment,
}

var memoLinkCmd = &cobra.Command{
	Use:   "link <uid> <related-uid>",
	Short: "Record that a memo references another",
	Args:  cobra.ExactArgs(2),
	RunE:  runMemoLink,
}

var memoUnlinkCmd = &cobra.Command{
	Use:   "unlink <uid> <related-uid>",
	Short: "Remove a reference between memos",
	Args:  cobra.ExactArgs(2),
	RunE:  runMemoUnlink,
}

var memoArchiveCmd = &cobra.Command{
	Use:   "archive <uid>",
	Short: "Archive a memo",
	Args:  cobra.ExactArgs(1),
	RunE:  updateRun(func(u *store.MemoUpdate) { s := store.StateArchived; u.State = &s }),
}

var memoRestoreCmd = &cobra.Command{
	Use:   "restore <uid>",
	Short: "Restore an archived memo",
	Args:  cobra.ExactArgs(1),
	RunE:  updateRun(func(u *store.MemoUpdate) { s := store.StateNormal; u.State = &s }),
}

var memoPinCmd = &cobra.Command{
	Use:   "pin <uid>",
	Short: "Pin a memo",
	Args:  cobra.ExactArgs(1),
	RunE:  updateRun(func(u *store.MemoUpdate) { b := true; u.Pinned = &b }),
}

var memoUnpinCmd = &cobra.Command{
	Use:   "unpin <uid>",
	Short: "Unpin a memo",
	Args:  cobra.ExactArgs(1),
	RunE:  updateRun(func(u *store.MemoUpdate) { b := false; u.Pinned = &b }),
}

var memoRmCmd = &cobra.Command{
	Use:   "rm <uid>",
	Short: "Delete a memo and its comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoRm,
}

func init() {
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", `filter expression, e.g. "tagSearch:go,pinned:true"`)
	listCmd.Flags().StringVarP(&listOrder, "order", "o", "", `sort order: "display_time desc", "display_time asc" or "pinned desc, display_time desc"`)
	listCmd.Flags().StringVar(&listState, "state", "", "NORMAL or ARCHIVED (default NORMAL)")
	listCmd.Flags().IntVarP(&listPageSize, "page-size", "n", store.DefaultPageSize, "memos per page")
	listCmd.Flags().StringVar(&listToken, "page-token", "", "token from a previous page")

	memoAddCmd.Flags().StringVar(&memoVisibility, "visibility", store.VisibilityPrivate, "PUBLIC, PROTECTED or PRIVATE")
	memoAddCmd.Flags().BoolVar(&memoPinned, "pinned", false, "pin the memo")
	memoAddCmd.Flags().StringVar(&memoCreator, "creator", "", "creator name (default $USER)")
	memoAddCmd.Flags().StringVar(&memoFile, "file", "", `read content from a file, "-" for stdin`)

	memoCmd.AddCommand(memoAddCmd)
	memoCmd.AddCommand(memoShowCmd)
	memoCmd.AddCommand(memoCommentCmd)
	memoCmd.AddCommand(memoLinkCmd)
	memoCmd.AddCommand(memoUnlinkCmd)
	memoCmd.AddCommand(memoArchiveCmd)
	memoCmd.AddCommand(memoRestoreCmd)
	memoCmd.AddCommand(memoPinCmd)
	memoCmd.AddCommand(memoUnpinCmd)
	memoCmd.AddCommand(memoRmCmd)
}

func runMemoAdd(cmd *cobra.Command, args []string) error {
	content, err := readContent(cmd.InOrStdin(), memoFile, args)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	m := &store.Memo{
		Creator:    creatorName(memoCreator),
		Content:    content,
		Visibility: strings.ToUpper(memoVisibility),
		Pinned:     memoPinned,
	}
	if err := db.CreateMemo(m); err != nil {
		return fmt.Errorf("create memo: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), m.UID)
	return nil
}

func runMemoShow(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	m, err := db.GetMemo(args[0])
	if err != nil {
		return fmt.Errorf("get memo: %w", err)
	}
	comments, err := db.ListComments(m.UID)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	rel, err := db.ListRelations(m.UID)
	if err != nil {
		return fmt.Errorf("list relations: %w", err)
	}

	printMemo(cmd.OutOrStdout(), m, comments, rel)
	return nil
}

func printMemo(w io.Writer, m *store.Memo, comments []store.Memo, rel *store.Relations) {
	fmt.Fprintf(w, "## %s\n\n", m.UID)
	fmt.Fprintf(w, "  %s · %s · %s", displayTime(m.DisplayTime), strings.ToLower(m.Visibility), strings.ToLower(m.State))
	if m.Pinned {
		fmt.Fprint(w, " · pinned")
	}
	fmt.Fprintln(w)
	if len(m.Tags) > 0 {
		fmt.Fprintf(w, "  #%s\n", strings.Join(m.Tags, " #"))
	}
	fmt.Fprintf(w, "\n%s\n", m.Content)

	if len(comments) > 0 {
		fmt.Fprintf(w, "\n## Comments (%d)\n\n", len(comments))
		for _, c := range comments {
			fmt.Fprintf(w, "- %s %s: %s\n", displayTime(c.DisplayTime), c.Creator, summary(c.Content, 70))
		}
	}
	if len(rel.Referencing) > 0 {
		fmt.Fprintln(w, "\n## References")
		for _, r := range rel.Referencing {
			fmt.Fprintf(w, "- %s %s\n", r.UID, summary(r.Content, 60))
		}
	}
	if len(rel.ReferencedBy) > 0 {
		fmt.Fprintln(w, "\n## Referenced by")
		for _, r := range rel.ReferencedBy {
			fmt.Fprintf(w, "- %s %s\n", r.UID, summary(r.Content, 60))
		}
	}
}

func runMemoComment(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	c := &store.Memo{
		Creator:   creatorName(""),
		Content:   strings.Join(args[1:], " "),
		ParentUID: args[0],
	}
	if err := db.CreateMemo(c); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), c.UID)
	return nil
}

func runMemoLink(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := db.AddReference(args[0], args[1]); err != nil {
		return fmt.Errorf("link: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], args[1])
	return nil
}

func runMemoUnlink(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := db.RemoveReference(args[0], args[1]); err != nil {
		return fmt.Errorf("unlink: %w", err)
	}
	return nil
}

// updateRun returns a RunE applying a fixed update to the memo named by
// the first argument.
func updateRun(set func(*store.MemoUpdate)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		var u store.MemoUpdate
		set(&u)
		m, err := db.UpdateMemo(args[0], u)
		if err != nil {
			return fmt.Errorf("update memo: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s pinned=%t\n", m.UID, strings.ToLower(m.State), m.Pinned)
		return nil
	}
}

func runMemoRm(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := db.DeleteMemo(args[0]); err != nil {
		return fmt.Errorf("delete memo: %w", err)
	}
	return nil
}

// readContent picks memo content from a file, stdin or the arguments.
func readContent(stdin io.Reader, file string, args []string) (string, error) {
	var content string
	switch file {
	case "":
		content = strings.Join(args, " ")
	case "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		content = string(b)
	default:
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		content = string(b)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New("memo content is empty")
	}
	return content, nil
}

func creatorName(flag string) string {
	if flag != "" {
		return flag
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "anonymous"
}

func displayTime(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

// summary returns the first line of s, cut to n runes.
func summary(s string, n int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	r := []rune(line)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return line
}
