package cmd

import (
	"context"
	"fmt"

	"bankclient/internal/service"

	"github.com/spf13/cobra"
)

func NewRegisterCommand() *cobra.Command {
	var phone, password, currency string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user with one account in the given currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *service.Session) error {
				resp, err := s.Register(ctx, phone, password, currency)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registration successful! user id %d\n", resp.UserID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&currency, "currency", "EUR", "account currency")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func NewLoginCommand() *cobra.Command {
	var phone, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and pull the transaction history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *service.Session) error {
				resp, err := s.Login(ctx, phone, password)
				if err != nil {
					return err
				}
				printAccount(cmd, resp.AccountInfo)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *service.Session) error {
				if err := s.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func NewUpdateUserCommand() *cobra.Command {
	var phone, password string
	cmd := &cobra.Command{
		Use:   "update-user",
		Short: "Change phone number and password of the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *service.Session) error {
				resp, err := s.UpdateUser(ctx, phone, password)
				if err != nil {
					return err
				}
				printAccount(cmd, resp.AccountInfo)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&phone, "new-phone", "", "new phone number")
	cmd.Flags().StringVar(&password, "new-password", "", "new password")
	_ = cmd.MarkFlagRequired("new-phone")
	_ = cmd.MarkFlagRequired("new-password")
	return cmd
}

func NewDeleteUserCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user",
		Short: "Delete the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *service.Session) error {
				if err := s.DeleteUser(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "User deleted")
				return nil
			})
		},
	}
}
