package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/paycore/internal/app"
	"github.com/baharkarakas/paycore/internal/config"
	"github.com/baharkarakas/paycore/internal/plans"
	repo "github.com/baharkarakas/paycore/internal/repository"
	"github.com/baharkarakas/paycore/internal/services"
)

type cli struct {
	cfg config.Config
	log *slog.Logger
	out io.Writer

	accounts *services.AccountService
	ledger   *services.LedgerService
	release  func()
}

func (c *cli) wire(repos repo.Repositories) {
	c.accounts = services.NewAccountService(repos, c.log)
	c.ledger = services.NewLedgerService(repos, plans.Default(), nil, c.cfg.SettleMaxRetries, c.log)
}

// open connects to the configured store once.
func (c *cli) open(ctx context.Context) error {
	if c.accounts != nil {
		return nil
	}
	repos, release, err := app.OpenStore(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	c.release = release
	c.wire(repos)
	return nil
}

func (c *cli) Close() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "paycore-admin",
		Short:         "Operator tooling for the paycore ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "migrate" {
				return nil
			}
			return c.open(cmd.Context())
		},
	}
	root.AddCommand(
		migrateCmd(c),
		payerCmd(c),
		cardCmd(c),
		merchantCmd(c),
		depositCmd(c),
		txnCmd(c),
		expireStaleCmd(c),
	)
	return root
}
