package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/paycore/internal/models"
	"github.com/baharkarakas/paycore/internal/services"
)

func migrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.cfg.Store = "postgres"
			c.cfg.Migrate = true
			if err := c.open(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "migrations applied")
			return nil
		},
	}
}

func payerCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "payer", Short: "Manage payers"}

	var (
		email, name, pin, balance string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a payer",
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := models.ParseMoney(balance)
			if err != nil {
				return fmt.Errorf("--balance: %w", err)
			}
			u, err := c.accounts.RegisterPayer(cmd.Context(), services.NewPayer{
				Email: email, DisplayName: name, PIN: pin, InitialBalance: amt,
			})
			if err != nil {
				return err
			}
			return c.print(u)
		},
	}
	create.Flags().StringVar(&email, "email", "", "payer email")
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&pin, "pin", "", "6-digit PIN")
	create.Flags().StringVar(&balance, "balance", "0", "opening balance, e.g. 100.00")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("pin")

	show := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Print a payer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.accounts.GetPayer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(u)
		},
	}

	status := func(use string, st models.UserStatus) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <user-id>",
			Short: "Set payer status to " + string(st),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.accounts.SetStatus(cmd.Context(), args[0], st); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s %s\n", args[0], st)
				return nil
			},
		}
	}

	cmd.AddCommand(create, show, status("freeze", models.UserFrozen), status("unfreeze", models.UserActive))
	return cmd
}

func cardCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "card", Short: "Manage payer cards"}

	var number, cvv, expiry string
	add := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Attach a card to a payer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := c.accounts.AddCard(cmd.Context(), args[0], services.NewCard{Number: number, CVV: cvv, Expiry: expiry})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s %s added\n", card.Provider, card.Masked())
			return nil
		},
	}
	add.Flags().StringVar(&number, "number", "", "card number")
	add.Flags().StringVar(&cvv, "cvv", "", "card CVV")
	add.Flags().StringVar(&expiry, "expiry", "", "expiry as MM/YY")
	_ = add.MarkFlagRequired("number")
	_ = add.MarkFlagRequired("cvv")
	_ = add.MarkFlagRequired("expiry")

	remove := &cobra.Command{
		Use:   "remove <user-id> <card-number>",
		Short: "Detach a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.accounts.RemoveCard(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "card removed")
			return nil
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}

func merchantCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "merchant", Short: "Manage merchants"}

	var name, email, webhook string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a merchant on the free plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.accounts.RegisterMerchant(cmd.Context(), services.NewMerchant{BusinessName: name, Email: email, WebhookURL: webhook})
			if err != nil {
				return err
			}
			return c.print(m)
		},
	}
	create.Flags().StringVar(&name, "name", "", "business name")
	create.Flags().StringVar(&email, "email", "", "contact email")
	create.Flags().StringVar(&webhook, "webhook", "", "webhook URL for transaction events")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")

	show := &cobra.Command{
		Use:   "show <merchant-id>",
		Short: "Print a merchant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.accounts.GetMerchant(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(m)
		},
	}

	cmd.AddCommand(create, show)
	return cmd
}

func depositCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <user-id> <amount>",
		Short: "Credit a payer's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := models.ParseMoney(args[1])
			if err != nil {
				return err
			}
			tx, err := c.ledger.Deposit(cmd.Context(), args[0], amt)
			if err != nil {
				return err
			}
			return c.print(tx)
		},
	}
}

func txnCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "txn", Short: "Inspect and create transactions"}

	var amount, description, merchant, typ, plan string
	create := &cobra.Command{
		Use:   "create",
		Short: "Record a PENDING transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := models.ParseMoney(amount)
			if err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			tx, err := c.ledger.CreateTransaction(cmd.Context(), services.NewTransaction{
				Amount:      amt,
				Description: description,
				MerchantID:  merchant,
				Type:        models.TransactionType(typ),
				PlanID:      plan,
			})
			if err != nil {
				return err
			}
			return c.print(tx)
		},
	}
	create.Flags().StringVar(&amount, "amount", "", "amount, e.g. 50.00")
	create.Flags().StringVar(&description, "description", "", "free text")
	create.Flags().StringVar(&merchant, "merchant", "", "merchant id")
	create.Flags().StringVar(&typ, "type", string(models.TxnPayment), "transaction type")
	create.Flags().StringVar(&plan, "plan", "", "plan id for SUBSCRIPTION_FEE")
	_ = create.MarkFlagRequired("amount")

	show := &cobra.Command{
		Use:   "show <txn-id>",
		Short: "Print a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := c.ledger.GetTransaction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(tx)
		},
	}

	cmd.AddCommand(create, show)
	return cmd
}

func expireStaleCmd(c *cli) *cobra.Command {
	var (
		ttl   time.Duration
		batch int
	)
	cmd := &cobra.Command{
		Use:   "expire-stale",
		Short: "Expire PENDING transactions older than --ttl",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.ledger.ExpireStale(cmd.Context(), ttl, batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "expired %d transactions\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", c.cfg.CheckoutTTL, "age after which a pending transaction expires")
	cmd.Flags().IntVar(&batch, "batch", 1000, "maximum transactions to expire")
	return cmd
}
