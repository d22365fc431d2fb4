// Package main provides the CLI entrypoint for topicq.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/topicq/internal/app"
	"github.com/verte-zerg/topicq/internal/config"
	"github.com/verte-zerg/topicq/internal/dataset"
	"github.com/verte-zerg/topicq/internal/logstore"
	"github.com/verte-zerg/topicq/internal/model"
	"github.com/verte-zerg/topicq/internal/stats"
	"github.com/verte-zerg/topicq/internal/store"
	"github.com/verte-zerg/topicq/internal/suggest"
	"github.com/verte-zerg/topicq/internal/tui"
)

const (
	defaultStatsDays      = 14
	defaultStatsSmoothing = 1
	defaultChartHeight    = 8
)

var (
	dataPath     string
	dataLang     string
	storePath    string
	limit        int
	cooldownDays float64
	jitter       float64
	seed         int64

	selGroups []string
	selPerson string
	selQuery  string

	suggestExplain bool

	logIn string

	clearVisible bool
	clearAll     bool
	clearYes     bool

	statsDays        int
	statsSmoothing   int
	statsTop         int
	statsChart       bool
	statsChartHeight int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "topicq",
		Short:         "Conversation topic tracker and suggester",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTUICmd,
	}

	defaults := config.Defaults()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dataPath, "data", defaults.DataPath, "dataset file (.json, .yaml or .yml)")
	flags.StringVar(&dataLang, "lang", defaults.Lang, "locale used to sort names")
	flags.StringVar(&storePath, "db", defaults.StorePath, "SQLite file holding the log")
	flags.IntVar(&limit, "limit", defaults.Policy.Limit, "number of suggestions")
	flags.Float64Var(&cooldownDays, "cooldown-days", defaults.Policy.CooldownDays, "days before an asked question is suggested again")
	flags.Float64Var(&jitter, "jitter", defaults.Policy.Jitter, "random score jitter range (0 disables)")
	flags.Int64Var(&seed, "seed", 0, "seed for score jitter (0 uses the clock)")
	flags.StringSliceVarP(&selGroups, "group", "g", nil, "selected group ids (repeatable or comma-separated)")
	flags.StringVarP(&selPerson, "person", "p", "", "focal person id")
	flags.StringVarP(&selQuery, "query", "q", "", "free-text search")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newGroupsCmd())
	rootCmd.AddCommand(newPeopleCmd())
	rootCmd.AddCommand(newSuggestCmd())
	rootCmd.AddCommand(newQuestionCmd("ask", "Log a question as asked", app.Asked))
	rootCmd.AddCommand(newQuestionCmd("pass", "Log a question as passed", app.Pass))
	rootCmd.AddCommand(newMemoCmd())
	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

type session struct {
	app   *app.App
	store *store.SQLite
}

func (s *session) Close() {
	if cerr := s.store.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	s := config.Defaults()
	s.Apply(fileCfg)
	applyStringFlag(cmd, "data", &s.DataPath, dataPath)
	applyStringFlag(cmd, "lang", &s.Lang, dataLang)
	applyStringFlag(cmd, "db", &s.StorePath, storePath)
	applyIntFlag(cmd, "limit", &s.Policy.Limit, limit)
	applyFloatFlag(cmd, "cooldown-days", &s.Policy.CooldownDays, cooldownDays)
	applyFloatFlag(cmd, "jitter", &s.Policy.Jitter, jitter)
	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

func openSession(cmd *cobra.Command) (*session, error) {
	s, err := resolveSettings(cmd)
	if err != nil {
		return nil, err
	}
	catalog, err := dataset.Open(cmd.Context(), s.DataPath, dataset.NewCollator(s.Lang))
	if err != nil {
		return nil, dataLoadError(s.DataPath, err)
	}
	st, err := store.Open(s.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	var rankOpts []suggest.Option
	if seed != 0 {
		rankOpts = append(rankOpts, suggest.WithSeed(seed))
	}
	a := app.New(
		catalog,
		logstore.New(st, logstore.WithWarn(logErrf)),
		logstore.NewAccordion(st),
		suggest.NewRanker(s.Policy, rankOpts...),
	)
	return &session{app: a, store: st}, nil
}

// currentSelection builds the selection from the flags, dropping a --person
// the selected groups and query do not offer.
func currentSelection(a *app.App) model.Selection {
	ids := make([]string, 0, len(selGroups))
	for _, id := range selGroups {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return a.ResolveSelection(model.Selection{
		GroupIDs: ids,
		PersonID: strings.TrimSpace(selPerson),
		Query:    selQuery,
	})
}

func runTUICmd(cmd *cobra.Command, _ []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	program := tea.NewProgram(tui.NewModel(sess.app, currentSelection(sess.app)), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE:  runGroupsCmd,
	}
}

func runGroupsCmd(cmd *cobra.Command, _ []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	groups := sess.app.Catalog().Groups()
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g.ID, g.Name, fmt.Sprintf("%d", len(g.People))})
	}
	return writeTable(cmd.OutOrStdout(), []string{"ID", "Name", "People"}, rows, map[int]bool{2: true})
}

func newPeopleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "people",
		Short: "List people in the selected groups",
		Args:  cobra.NoArgs,
		RunE:  runPeopleCmd,
	}
}

func runPeopleCmd(cmd *cobra.Command, _ []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	sel := currentSelection(sess.app)
	if !sel.HasGroups() {
		return app.ErrNoGroupSelected
	}
	catalog := sess.app.Catalog()
	people := sess.app.PersonOptions(sel)
	rows := make([][]string, 0, len(people))
	for _, p := range people {
		rows = append(rows, []string{
			p.ID,
			p.Name,
			strings.Join(catalog.PersonGroupIDs(p.ID), ","),
			strings.Join(p.Tags, ","),
		})
	}
	return writeTable(cmd.OutOrStdout(), []string{"ID", "Name", "Groups", "Tags"}, rows, nil)
}

func newSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Show ranked question suggestions",
		Args:  cobra.NoArgs,
		RunE:  runSuggestCmd,
	}
	cmd.Flags().BoolVar(&suggestExplain, "explain", false, "list every candidate with its exclusion reason")
	return cmd
}

func runSuggestCmd(cmd *cobra.Command, _ []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	sel := currentSelection(sess.app)
	if !sel.HasGroups() {
		return app.ErrNoGroupSelected
	}
	now := time.Now()
	out := cmd.OutOrStdout()
	if suggestExplain {
		verdicts := sess.app.Explain(cmd.Context(), sel)
		rows := make([][]string, 0, len(verdicts))
		for _, v := range verdicts {
			score := "-"
			if v.Exclusion == suggest.Eligible {
				score = fmt.Sprintf("%.1f", v.Score)
			}
			rows = append(rows, append(suggestionCells(v.Suggestion, now), v.Exclusion.String(), score))
		}
		headers := []string{"Question", "Person", "Group", "Asked", "Pass", "Last asked", "Status", "Score"}
		return writeTable(out, headers, rows, map[int]bool{3: true, 4: true, 7: true})
	}

	suggestions := sess.app.Suggest(cmd.Context(), sel)
	if len(suggestions) == 0 {
		_, err := fmt.Fprintln(out, "No suggestions.")
		return err
	}
	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		rows = append(rows, append(suggestionCells(s, now), fmt.Sprintf("%.1f", s.Score)))
	}
	headers := []string{"Question", "Person", "Group", "Asked", "Pass", "Last asked", "Score"}
	return writeTable(out, headers, rows, map[int]bool{3: true, 4: true, 6: true})
}

func suggestionCells(s model.Suggestion, now time.Time) []string {
	return []string{
		s.Text,
		s.PersonName,
		s.GroupName,
		fmt.Sprintf("%d", s.Stat.Asked),
		fmt.Sprintf("%d", s.Stat.Pass),
		stats.FormatAgo(s.Stat.LastAskedAt, now),
	}
}

func newQuestionCmd(use, short string, mode app.Mode) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <question>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuestionCmd(cmd, mode, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&logIn, "in", "", "group id to log the question under")
	return cmd
}

func runQuestionCmd(cmd *cobra.Command, mode app.Mode, question string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	sel := currentSelection(sess.app)
	ref := app.QuestionRef{GroupID: strings.TrimSpace(logIn), PersonID: sel.PersonID}
	e, err := sess.app.LogQuestion(cmd.Context(), sel, mode, question, ref)
	if err != nil {
		return err
	}
	return printEntry(cmd.OutOrStdout(), e)
}

func newMemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "memo <text>",
		Short: "Save a memo for the selection",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runMemoCmd,
	}
}

func runMemoCmd(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	e, err := sess.app.SaveMemo(cmd.Context(), currentSelection(sess.app), strings.Join(args, " "))
	if err != nil {
		return err
	}
	return printEntry(cmd.OutOrStdout(), e)
}

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show or delete log entries",
		Args:  cobra.NoArgs,
		RunE:  runLogListCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List log entries matching the selection, newest first",
		Args:  cobra.NoArgs,
		RunE:  runLogListCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete log entries by id",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLogRmCmd,
	})
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the visible entries or the whole log",
		Args:  cobra.NoArgs,
		RunE:  runLogClearCmd,
	}
	clearCmd.Flags().BoolVar(&clearVisible, "visible", false, "delete entries matching the selection")
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "delete every entry")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip confirmation")
	cmd.AddCommand(clearCmd)
	return cmd
}

func runLogListCmd(cmd *cobra.Command, _ []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	entries := sess.app.VisibleLogs(cmd.Context(), currentSelection(sess.app))
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No log entries.")
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006/01/02 15:04"),
			e.Type(),
			e.GroupName,
			e.PersonName,
			e.Text,
			e.ID,
		})
	}
	return writeTable(out, []string{"When", "Type", "Group", "Person", "Text", "ID"}, rows, nil)
}

func runLogRmCmd(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	for _, id := range args {
		if err := sess.app.DeleteEntry(cmd.Context(), id); err != nil {
			if errors.Is(err, logstore.ErrNotFound) {
				return fmt.Errorf("%w: %s", err, id)
			}
			return err
		}
	}
	return nil
}

func runLogClearCmd(cmd *cobra.Command, _ []string) error {
	if clearVisible == clearAll {
		return fmt.Errorf("exactly one of --visible or --all is required")
	}
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if clearAll {
		if !clearYes && !confirm(cmd.InOrStdin(), out, "Delete the entire log?") {
			return nil
		}
		return sess.app.DeleteAll(ctx)
	}

	sel := currentSelection(sess.app)
	visible := sess.app.VisibleLogs(ctx, sel)
	if len(visible) == 0 {
		return app.ErrNothingToDelete
	}
	if !clearYes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Delete %d visible log entries?", len(visible))) {
		return nil
	}
	n, err := sess.app.DeleteVisible(ctx, sel)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Deleted %d entries.\n", n)
	return err
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show question statistics",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsDays, "days", defaultStatsDays, "days of activity to chart")
	cmd.Flags().IntVar(&statsSmoothing, "smoothing", defaultStatsSmoothing, "moving average window for the activity chart")
	cmd.Flags().IntVar(&statsTop, "top", 0, "limit the table to the N busiest questions")
	cmd.Flags().BoolVar(&statsChart, "chart", true, "draw the daily activity chart")
	cmd.Flags().IntVar(&statsChartHeight, "chart-height", defaultChartHeight, "activity chart height in rows")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if statsDays < 0 {
		return fmt.Errorf("--days must be >= 0")
	}
	if statsTop < 0 {
		return fmt.Errorf("--top must be >= 0")
	}
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	report := sess.app.Report(ctx, statsDays, statsSmoothing)
	table := report
	if statsTop > 0 && len(table.Keys) > statsTop {
		table.Keys = table.Keys[:statsTop]
	}
	if err := stats.RenderSummary(out, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if statsChart && len(report.Keys) > 0 {
		if err := stats.RenderActivityChart(out, report.Activity, 0, statsChartHeight); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if err := stats.RenderQuestionTable(out, table, time.Now(), stats.TerminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	updated, ok, err := sess.store.UpdatedAt(ctx, logstore.LogKey)
	if err != nil {
		logErrf("failed to read log timestamp: %v\n", err)
		return nil
	}
	if ok {
		if _, err := fmt.Fprintf(out, "\nLog last written %s\n", updated.Local().Format("2006/01/02 15:04")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func printEntry(w io.Writer, e model.Entry) error {
	who := e.GroupName
	if e.PersonName != "" {
		who = e.PersonName + " @ " + e.GroupName
	}
	if _, err := fmt.Fprintf(w, "%s %s: %s (%s)\n", e.ID, e.Type(), e.Text, who); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool) error {
	if err := stats.WriteTable(w, headers, rows, rightAlign, stats.TerminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	if _, err := fmt.Fprintf(out, "%s [y/N] ", prompt); err != nil {
		return false
	}
	reader := bufio.NewReader(in)
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyFloatFlag(cmd *cobra.Command, name string, target *float64, value float64) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func dataLoadError(path string, err error) error {
	hints := []string{
		fmt.Sprintf("expected dataset at: %s", path),
		`the file must be JSON or YAML with a top-level "groups" list`,
		"set the path with --data or [data] path via: topicq config",
	}
	return fmt.Errorf("failed to load dataset: %w\n%s", err, strings.Join(hints, "\n"))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
