package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const cmdTimeout = 15 * time.Second

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account and trigger the verification email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			st, err := loadState()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
			defer cancel()

			user, err := newAPIClient(st).Register(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Printf("registered %s, check your inbox for the verification link\n", user.Email)
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			st, err := loadState()
			if err != nil {
				return err
			}
			client := newAPIClient(st)

			ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
			defer cancel()
			if _, err := client.Login(ctx, args[0], password); err != nil {
				return err
			}
			st.Token = client.Token()
			if err := saveState(st); err != nil {
				return err
			}
			fmt.Println("logged in")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadState()
			if err != nil {
				return err
			}
			if st.Token != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
				defer cancel()
				// Best effort; the token is stateless anyway.
				_ = newAPIClient(st).Logout(ctx)
			}
			st.Token = ""
			if err := saveState(st); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
