package main

import (
	"fmt"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/chat"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

func newProfileCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit profiles",
	}
	cmd.AddCommand(newProfileShowCmd(e), newProfileUpdateCmd(e), newProfileQRCmd(e))
	return cmd
}

func newProfileShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id | @username]",
		Short: "Show a profile, your own by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			sess, err := e.session(ctx)
			if err != nil {
				return err
			}
			id := sess.UserID
			if len(args) == 1 {
				if id, err = resolveContact(ctx, e, args[0], ""); err != nil {
					return err
				}
			}
			p, err := e.remote.Profile(ctx, id)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return outputJSON(p)
			}
			about := p.About
			if about == "" {
				about = chat.DefaultAbout
			}
			fmt.Printf("Name:     %s\n", p.FullName)
			if p.Username != "" {
				fmt.Printf("Username: @%s\n", p.Username)
			}
			fmt.Printf("About:    %s\n", about)
			if p.Phone != "" {
				fmt.Printf("Phone:    %s\n", p.Phone)
			}
			if p.IsVerified {
				fmt.Printf("Verified: %s\n", p.VerifiedSubtitle)
			}
			fmt.Printf("ID:       %s\n", p.ID)
			return nil
		},
	}
}

func newProfileUpdateCmd(e *env) *cobra.Command {
	var u backend.ProfileUpdate
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change fields of your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if u.Empty() {
				return fmt.Errorf("nothing to update; pass at least one flag")
			}
			ctx, cancel := e.ctx(cmd)
			defer cancel()
			if err := e.remote.UpdateProfile(ctx, u); err != nil {
				return err
			}
			fmt.Println("Profile updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&u.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&u.Username, "username", "", "username, with or without @")
	cmd.Flags().StringVar(&u.About, "about", "", "about text")
	cmd.Flags().StringVar(&u.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&u.AvatarURL, "avatar", "", "avatar URL")
	return cmd
}

func newProfileQRCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "qr",
		Short: "Print a QR code of your invite link",
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
			if p.Username == "" {
				return fmt.Errorf("set a username first: bzctl profile update --username <name>")
			}
			qr, err := qrcode.New(chat.InviteURL(p.Username), qrcode.Medium)
			if err != nil {
				return fmt.Errorf("encode qr: %w", err)
			}
			fmt.Print(qr.ToSmallString(false))
			fmt.Println(chat.InviteURL(p.Username))
			return nil
		},
	}
}
