package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// readPassword takes the password from the flag, the terminal without echo,
// or the first line of stdin, in that order.
func readPassword(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password on stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newSignUpCmd(e *env) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "signup <email> <full name>",
		Short: "Create an account and sign in",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(password)
			if err != nil {
				return err
			}
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			sess, err := e.remote.SignUp(ctx, args[0], pw, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if e.jsonOut {
				return outputJSON(sess)
			}
			fmt.Printf("Signed up as %s (%s)\n", sess.Email, sess.UserID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func newSignInCmd(e *env) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "signin <email>",
		Short: "Sign in and store the session for this instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(password)
			if err != nil {
				return err
			}
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			sess, err := e.remote.SignIn(ctx, args[0], pw)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return outputJSON(sess)
			}
			fmt.Printf("Signed in as %s\n", sess.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func newSignOutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			if err := e.remote.SignOut(ctx); err != nil {
				return err
			}
			if err := e.prefs.SetActiveChat(""); err != nil {
				e.logger.Warn("failed to clear active chat", zap.Error(err))
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			p, err := e.remote.Profile(ctx, sess.UserID)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return outputJSON(map[string]any{"session": sess, "profile": p})
			}
			fmt.Printf("User:    %s\n", p.FullName)
			fmt.Printf("Email:   %s\n", sess.Email)
			fmt.Printf("ID:      %s\n", sess.UserID)
			if p.Username != "" {
				fmt.Printf("Handle:  @%s\n", p.Username)
			}
			fmt.Printf("Expires: %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}
