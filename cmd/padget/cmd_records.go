package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"padget/internal/slides"
	"padget/internal/store"
)

var (
	listJSON bool
	listKind string

	addTitle       string
	addDescription string
	addUploader    string
	addKind        string

	editTitle       string
	editDescription string
	editUploader    string
	editURL         string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued presentations",
	Long: `Lists every record in document order. The index column is the position used
by edit, touch, remove and show.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var showCmd = &cobra.Command{
	Use:   "show [index]",
	Short: "Show one record with its embed link",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Add a presentation link",
	Long: `Adds a record for the given URL. The kind (google or link) is detected from
the URL unless --type is set, and a title is derived from the host when --title
is empty.

Example:
  padget add https://docs.google.com/presentation/d/1AbC/edit --title "Kickoff"`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit [index]",
	Short: "Edit a record's title, description, uploader or URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var touchCmd = &cobra.Command{
	Use:   "touch [index]",
	Short: "Bump a record's last-modified time",
	Args:  cobra.ExactArgs(1),
	RunE:  runTouch,
}

var removeCmd = &cobra.Command{
	Use:     "remove [index]",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a record; later records shift down",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record totals by kind",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print records as JSON")
	listCmd.Flags().StringVar(&listKind, "type", "", "Only show google or link records")

	addCmd.Flags().StringVar(&addTitle, "title", "", "Title (derived from the URL when empty)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "Description")
	addCmd.Flags().StringVar(&addUploader, "uploader", "", "Uploader name (default Anonymous)")
	addCmd.Flags().StringVar(&addKind, "type", "", "google or link (detected when empty)")

	bindEditFlags(editCmd)
}

func bindEditFlags(c *cobra.Command) {
	c.Flags().StringVar(&editTitle, "title", "", "New title")
	c.Flags().StringVar(&editDescription, "description", "", "New description")
	c.Flags().StringVar(&editUploader, "uploader", "", "New uploader")
	c.Flags().StringVar(&editURL, "url", "", "New URL")
}

func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("index must be an integer, got %q", arg)
	}
	return i, nil
}

func runList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	kind, err := slides.ParseKind(listKind)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	records := st.List()
	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No presentations yet. Add one with: padget add <url>"))
		return nil
	}

	t := newTable(fmt.Sprintf("Presentations (%s)", st.Path()), "#", "Title", "Type", "Uploader", "Modified", "URL")
	for i, r := range records {
		if kind != "" && r.Kind != kind {
			continue
		}
		t.addRow(strconv.Itoa(i), truncate(r.Title, 40), kindBadge(r.Kind), r.Uploader, r.LastModified, truncate(r.URL, 60))
	}
	fmt.Fprint(out, t.render())
	return nil
}

// recordMarkdown lays a record out as a markdown card.
func recordMarkdown(index int, r slides.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Title)
	fmt.Fprintf(&sb, "- **Index:** %d\n", index)
	fmt.Fprintf(&sb, "- **ID:** %d\n", r.ID)
	fmt.Fprintf(&sb, "- **Type:** %s\n", r.Kind.Label())
	fmt.Fprintf(&sb, "- **Uploader:** %s\n", r.Uploader)
	fmt.Fprintf(&sb, "- **Added:** %s\n", r.CreatedAt)
	fmt.Fprintf(&sb, "- **Modified:** %s\n", r.LastModified)
	fmt.Fprintf(&sb, "- **URL:** %s\n", r.URL)
	if embed, ok := slides.EmbedURL(r); ok {
		fmt.Fprintf(&sb, "- **Embed:** %s\n", embed)
	} else {
		sb.WriteString("- **Embed:** not available, open the link directly\n")
	}
	if r.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.Description)
	}
	return sb.String()
}

func runShow(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	r, err := st.Get(index)
	if err != nil {
		return err
	}

	md := recordMarkdown(index, r)
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		if rendered, rerr := renderer.Render(md); rerr == nil {
			md = rendered
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), md)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	kind, err := slides.ParseKind(addKind)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}

	_, rec, err := st.Append(slides.Draft{
		URL:         args[0],
		Title:       addTitle,
		Description: addDescription,
		Uploader:    addUploader,
		Kind:        kind,
	})
	if err != nil {
		return err
	}
	logger.Info("Record added", zap.Int("id", rec.ID), zap.String("url", rec.URL))
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("'%s' uploaded successfully!", rec.Title)))
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("title") && !flags.Changed("description") &&
		!flags.Changed("uploader") && !flags.Changed("url") {
		return fmt.Errorf("nothing to change: pass --title, --description, --uploader or --url")
	}

	fields := make(map[string]string, 4)
	for name, value := range map[string]string{
		"title":       editTitle,
		"description": editDescription,
		"uploader":    editUploader,
		"url":         editURL,
	} {
		if flags.Changed(name) {
			fields[name] = value
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	rec, err := st.UpdateFields(index, fields)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("'%s' updated", rec.Title)))
	return nil
}

func runTouch(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	rec, err := st.Touch(index)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "'%s' last modified %s\n", rec.Title, rec.LastModified)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	rec, err := st.RemoveAt(index)
	if err != nil {
		return err
	}
	logger.Info("Record removed", zap.Int("index", index), zap.Int("id", rec.ID))
	fmt.Fprintln(cmd.OutOrStdout(), errStyle.Render(fmt.Sprintf("'%s' deleted successfully!", rec.Title)))
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	s := st.Stats()
	t := newTable("Statistics", "Total", "Google Slides", "Web Links")
	t.addRow(strconv.Itoa(s.Total), strconv.Itoa(s.Google), strconv.Itoa(s.Links))
	fmt.Fprint(cmd.OutOrStdout(), t.render())
	return nil
}

// describeChange renders a store change for terminal output.
func describeChange(c store.Change) string {
	switch c.Op {
	case store.OpReload:
		return fmt.Sprintf("reloaded: %d records", c.Count)
	default:
		return fmt.Sprintf("%s #%d '%s'", c.Op, c.Index, c.Record.Title)
	}
}
