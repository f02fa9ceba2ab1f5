package cmd

import (
	"context"
	"fmt"

	"bankclient/internal/model"
	"bankclient/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func printAccount(cmd *cobra.Command, a model.AccountInfo) {
	fmt.Fprintf(cmd.OutOrStdout(), "Account %d (%s): %s %s\n", a.ID, a.OwnerPhoneNumber, a.Balance.StringFixed(2), a.Currency)
}

func NewBalanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the account of the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *service.Session) error {
				account, err := s.Account()
				if err != nil {
					return err
				}
				printAccount(cmd, account)
				return nil
			})
		},
	}
}

func NewDepositCommand() *cobra.Command {
	var amount string
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Add money to the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			return withSession(cmd, func(ctx context.Context, s *service.Session) error {
				account, err := s.Deposit(ctx, value)
				if err != nil {
					return err
				}
				printAccount(cmd, account)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount to add")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func NewUsersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *service.Session) error {
				users, err := s.Users(ctx)
				if err != nil {
					return err
				}
				for _, u := range users {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", u.ID, u.PhoneNumber)
				}
				return nil
			})
		},
	}
}
