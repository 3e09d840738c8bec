// Command paycore-admin manages payers, cards and merchants directly against
// the store. It is an operator tool and bypasses the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/baharkarakas/paycore/internal/config"
	"github.com/baharkarakas/paycore/internal/logger"
)

func main() {
	cfg := config.Load()
	c := &cli{cfg: cfg, log: logger.New(cfg.Env), out: os.Stdout}
	defer c.Close()

	if err := newRootCmd(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		c.Close()
		os.Exit(1)
	}
}
