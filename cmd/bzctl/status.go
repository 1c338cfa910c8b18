package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/spf13/cobra"
)

func newStatusCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List or post status updates",
	}
	cmd.AddCommand(newStatusListCmd(e), newStatusPostCmd(e))
	return cmd
}

func newStatusListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List status updates from the last 24 hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			if _, err := e.session(ctx); err != nil {
				return err
			}
			now := time.Now()
			posts, err := e.remote.ListStatus(ctx, now.Add(-chat.StatusRetention))
			if err != nil {
				return err
			}
			if e.jsonOut {
				return outputJSON(posts)
			}
			if len(posts) == 0 {
				fmt.Println("No status updates.")
				return nil
			}
			w := newTable(os.Stdout)
			fmt.Fprintln(w, "AUTHOR\tWHEN\tTYPE\tCONTENT")
			for _, p := range posts {
				author := p.AuthorName
				if author == "" {
					author = chat.UnknownAuthor
				}
				content := p.Content
				if p.Caption != "" {
					content += " (" + p.Caption + ")"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", author, clock(p.CreatedAt, now), p.Type, content)
			}
			return w.Flush()
		},
	}
}

func newStatusPostCmd(e *env) *cobra.Command {
	var typ, caption, background string
	cmd := &cobra.Command{
		Use:   "post <content...>",
		Short: "Post a status update",
		Long:  "Post a status update. For image and video posts the content is the media URL.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			st, err := e.remote.PostStatus(ctx, backend.NewStatus{
				Type:            typ,
				Content:         strings.Join(args, " "),
				Caption:         caption,
				BackgroundColor: background,
			})
			if err != nil {
				return err
			}
			if e.jsonOut {
				return outputJSON(st)
			}
			fmt.Printf("Posted %s\n", st.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", backend.StatusTypeText, "text, image or video")
	cmd.Flags().StringVar(&caption, "caption", "", "caption for media posts")
	cmd.Flags().StringVar(&background, "background", "", "background color for text posts")
	return cmd
}
