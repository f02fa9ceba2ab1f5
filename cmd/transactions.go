package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"bankclient/internal/model"
	"bankclient/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func NewSendCommand() *cobra.Command {
	var to, amount, comment string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send money to another user",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			return withSession(cmd, func(ctx context.Context, s *service.Session) error {
				tx, err := s.SendMoney(ctx, to, value, comment)
				if err != nil {
					return err
				}
				if tx == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Transfer accepted")
					return nil
				}
				printTransactions(cmd, []model.TransactionInfo{*tx})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "receiver phone number")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to send")
	cmd.Flags().StringVar(&comment, "comment", "", "comment")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func NewSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the cached transaction history from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *service.Session) error {
				txs, err := s.SyncTransactions(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d transactions\n", len(txs))
				return nil
			})
		},
	}
}

func NewHistoryCommand() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the cached transaction history",
		Long: `Query the cached transaction history, newest first.

Filters: all, incoming, outgoing, comment=<text>, phone=<receiver>,
amount=<lo>..<hi>, time=<lo>..<hi> (epoch milliseconds). Ranges are inclusive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ParseFilter(filter)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *service.Session) error {
				txs, err := s.History(ctx, f)
				if err != nil {
					return err
				}
				printTransactions(cmd, txs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "filter expression")
	return cmd
}

// ParseFilter reads the history filter syntax.
func ParseFilter(expr string) (model.Filter, error) {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "", "all":
		return model.All{}, nil
	case "incoming":
		return model.Incoming{}, nil
	case "outgoing":
		return model.Outgoing{}, nil
	}

	name, arg, ok := strings.Cut(expr, "=")
	if !ok {
		return nil, fmt.Errorf("unknown filter %q", expr)
	}
	switch name {
	case "comment":
		return model.CommentEquals{Text: arg}, nil
	case "phone":
		return model.CounterpartyPhoneEquals{Phone: arg}, nil
	case "amount":
		lo, hi, err := splitRange(arg)
		if err != nil {
			return nil, err
		}
		loAmount, err := decimal.NewFromString(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", lo, err)
		}
		hiAmount, err := decimal.NewFromString(hi)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", hi, err)
		}
		return model.AmountBetween{Lo: loAmount, Hi: hiAmount}, nil
	case "time":
		lo, hi, err := splitRange(arg)
		if err != nil {
			return nil, err
		}
		loTime, err := strconv.ParseInt(lo, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", lo, err)
		}
		hiTime, err := strconv.ParseInt(hi, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", hi, err)
		}
		return model.TimeBetween{Lo: loTime, Hi: hiTime}, nil
	}
	return nil, fmt.Errorf("unknown filter %q", name)
}

func splitRange(arg string) (string, string, error) {
	lo, hi, ok := strings.Cut(arg, "..")
	if !ok || lo == "" || hi == "" {
		return "", "", fmt.Errorf("range %q must look like <lo>..<hi>", arg)
	}
	return lo, hi, nil
}

func printTransactions(cmd *cobra.Command, txs []model.TransactionInfo) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tFROM\tTO\tAMOUNT\tCOMMENT")
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%s (%d)\t%s (%d)\t%s\t%s\n",
			time.UnixMilli(tx.TransactionTime).Format(time.RFC3339),
			tx.SenderPhoneNumber, tx.SendingAccountID,
			tx.ReceiverPhoneNumber, tx.ReceivingAccountID,
			tx.Amount.String(), tx.Comment)
	}
	_ = w.Flush()
}
