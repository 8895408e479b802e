package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/fatoora-client/internal/app"
	"github.com/samvad-hq/fatoora-client/internal/batch"
	"github.com/samvad-hq/fatoora-client/pkg/zatca"
)

type invoiceFlags struct {
	path string
	hash string
	uuid string
}

func (f *invoiceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "invoice", "", "Path to the signed invoice XML")
	cmd.Flags().StringVar(&f.hash, "hash", "", "Base64 invoice hash (empty sends the placeholder hash)")
	cmd.Flags().StringVar(&f.uuid, "uuid", "", "Invoice UUID")
	_ = cmd.MarkFlagRequired("invoice")
	_ = cmd.MarkFlagRequired("uuid")
}

func (f *invoiceFlags) load() (app.Invoice, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return app.Invoice{}, fmt.Errorf("read invoice: %w", err)
	}
	return app.Invoice{SignedXML: raw, Hash: strings.TrimSpace(f.hash), UUID: strings.TrimSpace(f.uuid)}, nil
}

type onboardingFlags struct {
	csrPath string
	otp     string
}

func (f *onboardingFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.csrPath, "csr", "", "Path to the certificate signing request")
	cmd.Flags().StringVar(&f.otp, "otp", "", "One-time password from the Fatoora portal")
	_ = cmd.MarkFlagRequired("csr")
	_ = cmd.MarkFlagRequired("otp")
}

func (f *onboardingFlags) csr() ([]byte, error) {
	raw, err := os.ReadFile(f.csrPath)
	if err != nil {
		return nil, fmt.Errorf("read csr: %w", err)
	}
	return raw, nil
}

func newReportCmd(rt *runtime) *cobra.Command {
	var (
		inv       invoiceFlags
		clearance bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report a signed simplified invoice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := inv.load()
			if err != nil {
				return err
			}
			resp, err := rt.svc.Report(cmd.Context(), in, clearance)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	inv.bind(cmd)
	cmd.Flags().BoolVar(&clearance, "clearance-status", true, "Send Clearance-Status: 1")
	return cmd
}

func newClearCmd(rt *runtime) *cobra.Command {
	var (
		inv       invoiceFlags
		clearance bool
		out       string
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear a signed standard invoice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := inv.load()
			if err != nil {
				return err
			}
			resp, err := rt.svc.Clear(cmd.Context(), in, clearance)
			if err != nil {
				return describe(err)
			}
			if out != "" && resp.ClearedInvoice != "" {
				xml, err := resp.DecodedClearedInvoice()
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, xml, 0o644); err != nil {
					return fmt.Errorf("write cleared invoice: %w", err)
				}
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	inv.bind(cmd)
	cmd.Flags().BoolVar(&clearance, "clearance-status", true, "Send Clearance-Status: 1")
	cmd.Flags().StringVar(&out, "out", "", "Write the cleared invoice XML to this path")
	return cmd
}

func newComplyCmd(rt *runtime) *cobra.Command {
	var inv invoiceFlags
	cmd := &cobra.Command{
		Use:   "comply",
		Short: "Run a signed invoice through the compliance check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := inv.load()
			if err != nil {
				return err
			}
			resp, err := rt.svc.CheckCompliance(cmd.Context(), in)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	inv.bind(cmd)
	return cmd
}

func newComplianceCSIDCmd(rt *runtime) *cobra.Command {
	var f onboardingFlags
	cmd := &cobra.Command{
		Use:   "compliance-csid",
		Short: "Request a compliance CSID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			csr, err := f.csr()
			if err != nil {
				return err
			}
			resp, err := rt.svc.IssueComplianceCertificate(cmd.Context(), csr, f.otp)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), certificateSummary(resp.RequestID, resp.DispositionMessage, ""))
		},
	}
	f.bind(cmd)
	return cmd
}

func newProductionCSIDCmd(rt *runtime) *cobra.Command {
	var requestID string
	cmd := &cobra.Command{
		Use:   "production-csid",
		Short: "Exchange the compliance CSID for a production CSID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := rt.svc.IssueProductionCertificate(cmd.Context(), requestID)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), certificateSummary(resp.RequestID, resp.DispositionMessage, ""))
		},
	}
	cmd.Flags().StringVar(&requestID, "request-id", "", "Compliance request id (defaults to the saved compliance profile)")
	return cmd
}

func newRenewCSIDCmd(rt *runtime) *cobra.Command {
	var f onboardingFlags
	cmd := &cobra.Command{
		Use:   "renew-csid",
		Short: "Renew the production CSID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			csr, err := f.csr()
			if err != nil {
				return err
			}
			resp, err := rt.svc.RenewProductionCertificate(cmd.Context(), csr, f.otp)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), certificateSummary(resp.RequestID, resp.DispositionMessage, resp.TokenType))
		},
	}
	f.bind(cmd)
	return cmd
}

func newStatusCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status <uuid>",
		Short: "Show the recorded outcomes of a submitted invoice, one per operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := rt.svc.Status(args[0])
			if err != nil {
				return err
			}
			if len(subs) == 0 {
				return fmt.Errorf("no submission recorded for %s", args[0])
			}
			return printJSON(cmd.OutOrStdout(), subs)
		},
	}
}

func newBatchCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <manifest>",
		Short: "Submit every invoice listed in a YAML/JSON manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := batch.LoadManifest(args[0])
			if err != nil {
				return err
			}
			summary, err := batch.NewRunner(rt.svc, rt.log).Run(cmd.Context(), m)
			if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil {
				return perr
			}
			return err
		},
	}
}

// certificateSummary leaves the token and secret out of command output.
func certificateSummary(requestID zatca.RequestID, disposition, tokenType string) map[string]string {
	out := map[string]string{
		"request_id":          requestID.String(),
		"disposition_message": disposition,
	}
	if tokenType != "" {
		out["token_type"] = tokenType
	}
	return out
}

// describe appends the gateway error list to a rejected call.
func describe(err error) error {
	zerr, ok := zatca.AsError(err)
	if !ok || len(zerr.Errors()) == 0 {
		return err
	}
	msgs := make([]string, 0, len(zerr.Errors()))
	for _, d := range zerr.Errors() {
		msgs = append(msgs, d.String())
	}
	return errors.Join(err, errors.New(strings.Join(msgs, "; ")))
}
