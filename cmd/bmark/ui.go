package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bmark/internal/board"
	"github.com/xxxsen/bmark/internal/client"
	"github.com/xxxsen/bmark/internal/tui"
)

func newUICmd(opts *clientOptions) *cobra.Command {
	var layout, query, tag, sortKey string
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "open the interactive board",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(query, tag, sortKey)
			if err != nil {
				return err
			}
			var startLayout tui.Layout
			switch layout {
			case "cards", "":
				startLayout = tui.LayoutCards
			case "rows":
				startLayout = tui.LayoutRows
			default:
				return fmt.Errorf("unknown layout %q, expected cards or rows", layout)
			}
			s, err := opts.connect()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			faviconBase := ""
			if props, err := s.client.Properties(ctx); err == nil {
				faviconBase = props.FaviconBase
			} else {
				logutil.GetLogger(ctx).Warn("load server properties failed", zap.Error(err))
			}

			b := board.New(s.auth, s.client, client.NewFeed(s.client, client.DefaultFeedSettings()))
			defer b.Close()
			b.SetCriteria(criteria)
			b.Start(ctx)

			app := tui.NewApp(tui.AppParams{
				Board:       b,
				Context:     ctx,
				FaviconBase: faviconBase,
				Layout:      startLayout,
				SignOut:     s.auth.Logout,
			})
			if _, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
				return fmt.Errorf("run ui: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&layout, "layout", "cards", "cards or rows")
	cmd.Flags().StringVarP(&query, "query", "q", "", "initial search")
	cmd.Flags().StringVarP(&tag, "tag", "t", board.AllTags, "initial tag filter")
	cmd.Flags().StringVarP(&sortKey, "sort", "s", string(board.SortNewest), "initial sort")
	return cmd
}
