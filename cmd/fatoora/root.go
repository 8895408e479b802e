package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/fatoora-client/internal/app"
	"github.com/samvad-hq/fatoora-client/internal/config"
	"github.com/samvad-hq/fatoora-client/internal/logger"
	"github.com/samvad-hq/fatoora-client/pkg/zatca"
)

var version = "dev"

// runtime carries what PersistentPreRunE builds for the subcommands.
type runtime struct {
	environment string
	svc         *app.Service
	log         logger.Logger
}

// newRootCmd returns the command tree and a cleanup that releases whatever the
// executed subcommand opened.
func newRootCmd() (*cobra.Command, func() error) {
	rt := &runtime{}

	root := &cobra.Command{
		Use:   "fatoora",
		Short: "Submit e-invoices to the ZATCA Fatoora gateway",
		Long: `fatoora talks to the ZATCA Fatoora e-invoicing gateway.

Onboarding:
  fatoora compliance-csid --csr egs.csr --otp 123345
  fatoora comply --invoice simplified.xml --uuid <uuid> --hash <hash>
  fatoora production-csid

Day to day:
  fatoora report --invoice simplified.xml --uuid <uuid> --hash <hash>
  fatoora clear --invoice standard.xml --uuid <uuid> --hash <hash> --out cleared.xml
  fatoora status <uuid>
  fatoora batch invoices.yaml

Settings come from configs/.env and the environment (ZATCA_ENVIRONMENT,
ZATCA_CERTIFICATE, ZATCA_SECRET, CREDENTIALS_FILE, PUBLISHERS_FILE, LEDGER_PATH).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.start(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&rt.environment, "environment", "e", "", "Gateway environment: sandbox, simulation or production (env: ZATCA_ENVIRONMENT)")

	root.AddCommand(
		newReportCmd(rt),
		newClearCmd(rt),
		newComplyCmd(rt),
		newComplianceCSIDCmd(rt),
		newProductionCSIDCmd(rt),
		newRenewCSIDCmd(rt),
		newStatusCmd(rt),
		newBatchCmd(rt),
	)
	return root, rt.stop
}

func (rt *runtime) start(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if rt.environment != "" {
		env, err := zatca.ParseEnvironment(rt.environment)
		if err != nil {
			return err
		}
		cfg.Environment = env
		cfg.ZatcaEnvironment = env.String()
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.DebugObj("fatoora starting", "config", cfg.Redacted())

	svc, err := app.NewService(cmd.Context(), cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize service", "error", err.Error())
		return err
	}
	rt.svc = svc
	rt.log = log
	return nil
}

func (rt *runtime) stop() error {
	defer func() { _ = logger.Close() }()
	if rt.svc == nil {
		return nil
	}
	err := rt.svc.Close()
	rt.svc = nil
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
