// deliveryctl runs one settlement operation against the database and prints
// the result as JSON.
//
// Usage: deliveryctl [--company CODE] [--actor USER_ID] <command> [args]
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"water-delivery/internal/adapters/cli"
	"water-delivery/internal/bootstrap"
	"water-delivery/internal/config"
	"water-delivery/internal/core"
	"water-delivery/internal/logger"
)

func main() {
	companyCode := pflag.String("company", "", "company code (defaults to COMPANY_CODE or the only company)")
	actorID := pflag.Int("actor", 0, "user id recorded on adjustments")
	pflag.CommandLine.SetInterspersed(false)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: deliveryctl [flags] <command> [args]\n\nFlags:\n")
		pflag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\n"+cli.Usage)
	}
	pflag.Parse()

	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(cli.ExitUsage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(false); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Logs go to stderr so stdout stays pure JSON.
	zlog, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	os.Exit(run(cfg, zlog, *companyCode, *actorID, pflag.Args()))
}

func run(cfg *config.Config, zlog *zap.Logger, companyCode string, actorID int, args []string) int {
	defer zlog.Sync()
	ctx := context.Background()

	rt, err := bootstrap.Build(ctx, cfg, zlog)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return cli.ExitError
	}
	defer func() {
		if err := rt.Close(ctx); err != nil {
			zlog.Warn("event drain incomplete", zap.Error(err))
		}
	}()

	var company *core.Company
	if companyCode != "" {
		company, err = rt.Service.ResolveCompany(ctx, companyCode)
	} else {
		company, err = rt.Service.LoadDefaultCompany(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "company: %v\n", err)
		return cli.ExitError
	}

	if err := cli.Run(ctx, rt.Service, company.ID, actorID, args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}
