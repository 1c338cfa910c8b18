package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/chat"
	"github.com/spf13/cobra"
)

// resolveContact accepts a profile id or an exact @username.
func resolveContact(ctx context.Context, e *env, arg, selfID string) (string, error) {
	name, ok := strings.CutPrefix(arg, "@")
	if !ok {
		return arg, nil
	}
	profiles, err := e.remote.SearchProfiles(ctx, name, selfID, chat.SearchLimit)
	if err != nil {
		return "", err
	}
	for _, p := range profiles {
		if strings.EqualFold(p.Username, name) {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("no user @%s", name)
}

func newChatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List recent chats with unread counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			contacts, err := chat.NewAggregator(e.remote, e.cfg.Client).Load(ctx, sess.UserID)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return outputJSON(contacts)
			}
			if len(contacts) == 0 {
				fmt.Println("No conversations yet.")
				return nil
			}
			now := time.Now()
			w := newTable(os.Stdout)
			fmt.Fprintln(w, "NAME\tUNREAD\tWHEN\tLAST MESSAGE\tID")
			for _, c := range contacts {
				unread := ""
				if c.UnreadCount > 0 {
					unread = fmt.Sprint(c.UnreadCount)
				}
				var when string
				if c.LastMessageTime != nil {
					when = clock(*c.LastMessageTime, now)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Name, unread, when, c.LastMessage, c.ID)
			}
			return w.Flush()
		},
	}
}

func newSendCmd(e *env) *cobra.Command {
	var image, audio, file bool
	cmd := &cobra.Command{
		Use:   "send <contact id | @username> <text...>",
		Short: "Send a message",
		Long:  "Send a message. With --image, --audio or --file the text is the attachment URL.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			to, err := resolveContact(ctx, e, args[0], sess.UserID)
			if err != nil {
				return err
			}

			kind := chat.KindText
			switch {
			case image:
				kind = chat.KindImage
			case audio:
				kind = chat.KindAudio
			case file:
				kind = chat.KindFile
			}
			m, err := e.remote.SendMessage(ctx, to, chat.Compose(kind, strings.Join(args[1:], " ")))
			if err != nil {
				return err
			}
			if e.jsonOut {
				return outputJSON(m)
			}
			fmt.Printf("Sent %s\n", m.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&image, "image", false, "send an image URL")
	cmd.Flags().BoolVar(&audio, "audio", false, "send an audio URL")
	cmd.Flags().BoolVar(&file, "file", false, "send a file URL")
	cmd.MarkFlagsMutuallyExclusive("image", "audio", "file")
	return cmd
}

func newReadCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "read <contact id | @username>",
		Short: "Mark a conversation as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			from, err := resolveContact(ctx, e, args[0], sess.UserID)
			if err != nil {
				return err
			}
			n, err := e.remote.MarkRead(ctx, from, sess.UserID)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return outputJSON(map[string]int{"marked": n})
			}
			fmt.Printf("Marked %d message(s) as read.\n", n)
			return nil
		},
	}
}

func newThreadCmd(e *env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "thread <contact id | @username>",
		Short: "Print a conversation, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			with, err := resolveContact(ctx, e, args[0], sess.UserID)
			if err != nil {
				return err
			}
			msgs, err := e.remote.Thread(ctx, sess.UserID, with, limit)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return outputJSON(msgs)
			}
			for _, m := range msgs {
				fmt.Println(formatMessage(m, sess.UserID))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", chat.ThreadLimit, "maximum number of messages")
	return cmd
}

func formatMessage(m backend.Message, selfID string) string {
	who := "<"
	if m.SenderID == selfID {
		who = ">"
	}
	body := m.Text
	if chat.Classify(m.Text) != chat.KindText {
		body = fmt.Sprintf("%s %s", chat.Preview(m.Text), chat.Payload(m.Text))
	}
	tick := ""
	if m.SenderID == selfID {
		tick = " ✓"
		if m.Status != backend.StatusSent {
			tick = " ✓✓"
		}
	}
	return fmt.Sprintf("%s %s %s%s", m.CreatedAt.Local().Format("02/01 15:04"), who, body, tick)
}

func newSearchCmd(e *env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search profiles by name or @username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			term := strings.TrimPrefix(args[0], "@")
			profiles, err := e.remote.SearchProfiles(ctx, term, sess.UserID, limit)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return outputJSON(profiles)
			}
			if len(profiles) == 0 {
				fmt.Println("No results.")
				return nil
			}
			w := newTable(os.Stdout)
			fmt.Fprintln(w, "NAME\tUSERNAME\tID")
			for _, p := range profiles {
				handle := ""
				if p.Username != "" {
					handle = "@" + p.Username
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.FullName, handle, p.ID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", chat.SearchLimit, "maximum number of results")
	return cmd
}
