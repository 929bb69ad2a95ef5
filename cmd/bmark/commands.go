package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xxxsen/bmark/internal/board"
	"github.com/xxxsen/bmark/internal/client"
	"github.com/xxxsen/bmark/internal/model"
	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
)

func newLoginCmd(opts *clientOptions) *cobra.Command {
	var (
		provider string
		email    string
		register bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "sign in with an oauth provider or email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var identity *model.Identity
			switch {
			case email != "":
				password, err := readPassword(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				if register {
					identity, err = s.auth.Register(ctx, email, password)
				} else {
					identity, err = s.auth.LoginPassword(ctx, email, password)
				}
				if err != nil {
					return err
				}
			default:
				if provider == "" {
					provider, err = pickProvider(ctx, s.client)
					if err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Opening %s sign-in in your browser...\n", provider)
				identity, err = s.auth.LoginOAuth(ctx, provider)
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", identity.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "oauth provider (github or google)")
	cmd.Flags().StringVar(&email, "email", "", "sign in with email and password instead of oauth")
	cmd.Flags().BoolVar(&register, "register", false, "create the account first (with --email)")
	return cmd
}

// pickProvider uses the only enabled provider, or asks when there are several.
func pickProvider(ctx context.Context, c *client.Client) (string, error) {
	props, err := c.Properties(ctx)
	if err != nil {
		return "", err
	}
	switch len(props.OAuthProviders) {
	case 0:
		return "", errors.New("no oauth provider is enabled, use --email")
	case 1:
		return props.OAuthProviders[0], nil
	}
	return "", fmt.Errorf("pick one with --provider: %s", strings.Join(props.OAuthProviders, ", "))
}

func readPassword(prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "sign out and forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			if err := s.auth.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			identity, err := s.identity(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, identity.Label())
			if identity.Email != "" && identity.Email != identity.Label() {
				fmt.Fprintln(out, identity.Email)
			}
			if stored := s.auth.Stored(); stored != nil && stored.Provider != "" {
				fmt.Fprintf(out, "via %s\n", stored.Provider)
			}
			return nil
		},
	}
}

func newListCmd(opts *clientOptions) *cobra.Command {
	var query, tag, sortKey, layout string
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "list bookmarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(query, tag, sortKey)
			if err != nil {
				return err
			}
			render := renderTable
			switch layout {
			case "rows", "":
			case "cards":
				render = renderCards
			default:
				return fmt.Errorf("unknown layout %q, expected cards or rows", layout)
			}
			s, err := opts.connect()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			identity, err := s.identity(ctx)
			if err != nil {
				return err
			}
			items, err := s.client.List(ctx, identity.ID)
			if err != nil {
				return err
			}
			view := board.Derive(board.Mirror(items), criteria)
			if len(view) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No bookmarks match.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), render(view))
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive search over title, url and note")
	cmd.Flags().StringVarP(&tag, "tag", "t", board.AllTags, "tag filter")
	cmd.Flags().StringVarP(&sortKey, "sort", "s", string(board.SortNewest), "newest, oldest or alpha")
	cmd.Flags().StringVar(&layout, "layout", "rows", "rows or cards")
	return cmd
}

func parseCriteria(query, tag, sortKey string) (board.Criteria, error) {
	filter, ok := board.ParseTagFilter(tag)
	if !ok {
		return board.Criteria{}, fmt.Errorf("unknown tag %q", tag)
	}
	key, ok := board.ParseSortKey(sortKey)
	if !ok {
		return board.Criteria{}, fmt.Errorf("unknown sort %q", sortKey)
	}
	return board.Criteria{Query: query, Tag: filter, Sort: key}, nil
}

func renderTable(items []model.Bookmark) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "TAG", "URL").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 2 {
				if tag := items[row].Tag; tag.Color() != "" {
					return cell.Foreground(lipgloss.Color(tag.Color()))
				}
			}
			return cell
		})
	for _, item := range items {
		t.Row(item.ID, item.Title, string(item.Tag), item.URL)
	}
	return t.String()
}

// renderCards prints one bordered block per bookmark, three to a line.
func renderCards(items []model.Bookmark) string {
	const perLine = 3
	card := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(32)
	title := lipgloss.NewStyle().Bold(true)
	muted := lipgloss.NewStyle().Faint(true)

	var lines []string
	var row []string
	for i, item := range items {
		body := title.Render(item.Title) + "\n" + muted.Render(item.URL)
		if item.Note != "" {
			body += "\n" + item.Note
		}
		if item.Tag != model.TagNone {
			body += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color(item.Tag.Color())).Render("#"+string(item.Tag))
		}
		body += "\n" + muted.Render(item.ID)
		row = append(row, card.Render(body))
		if len(row) == perLine || i == len(items)-1 {
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

type draftFlags struct {
	title   string
	url     string
	note    string
	tag     string
	suggest bool
}

func (f *draftFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "bookmark title")
	cmd.Flags().StringVar(&f.url, "url", "", "bookmark url")
	cmd.Flags().StringVar(&f.note, "note", "", "free-form note")
	cmd.Flags().StringVar(&f.tag, "tag", "", "one of "+tagNames())
	cmd.Flags().BoolVar(&f.suggest, "suggest-tag", false, "ask the server to pick a tag")
}

func tagNames() string {
	names := make([]string, 0, len(model.Tags()))
	for _, tag := range model.Tags() {
		names = append(names, string(tag))
	}
	return strings.Join(names, ", ")
}

func parseTagFlag(s string) (model.Tag, error) {
	if strings.TrimSpace(s) == "" {
		return model.TagNone, nil
	}
	tag, ok := model.ParseTag(s)
	if !ok {
		return model.TagNone, fmt.Errorf("unknown tag %q, expected %s", s, tagNames())
	}
	return tag, nil
}

// suggestTag fills an empty tag from the server. An unavailable assistant
// leaves the draft untagged.
func suggestTag(ctx context.Context, c *client.Client, d *board.Draft, warn io.Writer) error {
	tag, err := c.SuggestTag(ctx, d.Title, d.URL, d.Note)
	if errors.Is(err, client.ErrAIUnavailable) {
		fmt.Fprintln(warn, "tag suggestions are not enabled on this server")
		return nil
	}
	if err != nil {
		return err
	}
	d.Tag = tag
	return nil
}

func newAddCmd(opts *clientOptions) *cobra.Command {
	flags := &draftFlags{}
	cmd := &cobra.Command{
		Use:   "add [url]",
		Short: "add a bookmark",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.url = args[0]
			}
			tag, err := parseTagFlag(flags.tag)
			if err != nil {
				return err
			}
			draft := board.Draft{Title: flags.title, URL: flags.url, Note: flags.note, Tag: tag}
			if !board.CanSubmit(draft) {
				return board.ErrInvalidDraft
			}
			s, err := opts.connect()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			identity, err := s.identity(ctx)
			if err != nil {
				return err
			}
			if flags.suggest && draft.Tag == model.TagNone {
				if err := suggestTag(ctx, s.client, &draft, cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			item, err := s.client.Insert(ctx, identity.ID, draft.Fields())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", item.ID, item.Title)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newEditCmd(opts *clientOptions) *cobra.Command {
	flags := &draftFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "change a bookmark, unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			identity, err := s.identity(ctx)
			if err != nil {
				return err
			}
			items, err := s.client.List(ctx, identity.ID)
			if err != nil {
				return err
			}
			idx := board.Mirror(items).IndexOf(args[0])
			if idx < 0 {
				return fmt.Errorf("bookmark %s: %w", args[0], appErr.ErrNotFound)
			}
			draft := board.DraftFrom(items[idx])
			if cmd.Flags().Changed("title") {
				draft.Title = flags.title
			}
			if cmd.Flags().Changed("url") {
				draft.URL = flags.url
			}
			if cmd.Flags().Changed("note") {
				draft.Note = flags.note
			}
			if cmd.Flags().Changed("tag") {
				if draft.Tag, err = parseTagFlag(flags.tag); err != nil {
					return err
				}
			}
			if flags.suggest {
				draft.Tag = model.TagNone
				if err := suggestTag(ctx, s.client, &draft, cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			if !board.CanSubmit(draft) {
				return board.ErrInvalidDraft
			}
			item, err := s.client.Update(ctx, args[0], draft.Fields())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s\n", item.ID, item.Title)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newRemoveCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "delete bookmarks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			if _, err := s.identity(ctx); err != nil {
				return err
			}
			for _, id := range args {
				if err := s.client.Delete(ctx, id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
}

func newExportCmd(opts *clientOptions) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "download all bookmarks as json, html or markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.connect()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			if _, err := s.identity(ctx); err != nil {
				return err
			}
			file, err := s.client.Export(ctx, format)
			if err != nil {
				return err
			}
			if output == "-" {
				_, err = cmd.OutOrStdout().Write(file.Data)
				return err
			}
			if output == "" {
				output = file.Name
			}
			if err := os.WriteFile(output, file.Data, 0o600); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, html or markdown")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout")
	return cmd
}

func newImportCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "import a browser bookmarks html or a json export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer func() { _ = f.Close() }()
			s, err := opts.connect()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context())
			defer cancel()
			if _, err := s.identity(ctx); err != nil {
				return err
			}
			result, err := s.client.Import(ctx, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d bookmarks (%d skipped)\n", result.Created, result.Total, result.Skipped)
			return nil
		},
	}
}
