package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	jwttoken "revalidation/internal/jwt_token"
	id "revalidation/pkg/domain"
	"revalidation/pkg/platform/secrets"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "revalctl",
		Short:         "Operate the revalidation cycle service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newReconcileCmd(a),
		newStatusCmd(a),
		newExportCmd(a),
		newTokenCmd(a),
		newAdminTokenCmd(a),
	)
	return root
}

func newReconcileCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair completed cycles that lack a submission audit record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Reconcile.Timeout)
			defer cancel()
			svc, closeFn, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := svc.Reconcile(ctx, dryRun)
			if err != nil {
				return err
			}
			if err := a.printJSON(report); err != nil {
				return err
			}
			if report.Failed > 0 {
				return codeError(2, "%d cycle(s) could not be repaired", report.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report missing audit records without writing")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a subject's current cycle and expiry status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subjectID, err := id.ParseSubjectID(subject)
			if err != nil {
				return codeError(3, "invalid --subject: %v", err)
			}
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			current, err := svc.GetCurrentCycle(cmd.Context(), subjectID)
			if err != nil {
				return err
			}
			return a.printJSON(current)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Subject ID")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var subject, cycle, format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a completed cycle's archived snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subjectID, err := id.ParseSubjectID(subject)
			if err != nil {
				return codeError(3, "invalid --subject: %v", err)
			}
			cycleID, err := id.ParseCycleID(cycle)
			if err != nil {
				return codeError(3, "invalid --cycle: %v", err)
			}
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			artifact, err := svc.ExportCycle(cmd.Context(), subjectID, cycleID, format)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = a.out.Write(artifact.Body)
				return err
			}
			if err := os.WriteFile(out, artifact.Body, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(a.out, "wrote %s (%d bytes)\n", out, len(artifact.Body))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&subject, "subject", "", "Subject ID")
	f.StringVar(&cycle, "cycle", "", "Cycle ID")
	f.StringVar(&format, "format", "json", "Export format (json)")
	f.StringVar(&out, "out", "", "Write to file instead of stdout")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("cycle")
	return cmd
}

// newTokenCmd issues a bearer token for a subject, for local testing against
// a server sharing JWT_SIGNING_KEY.
func newTokenCmd(a *app) *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subjectID, err := id.ParseSubjectID(subject)
			if err != nil {
				return codeError(3, "invalid --subject: %v", err)
			}
			jwtService := jwttoken.NewJWTService(a.cfg.Server.JWTSigningKey, a.cfg.Server.JWTIssuer, a.cfg.Server.JWTAudience)
			token, err := jwtService.GenerateAccessToken(subjectID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Subject ID")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// newAdminTokenCmd mints an admin API token. The hash goes into
// ADMIN_API_TOKEN; the plaintext is handed to operators.
func newAdminTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "admin-token",
		Short: "Generate an admin API token and its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			token, err := secrets.Generate()
			if err != nil {
				return err
			}
			hash, err := secrets.Hash(token)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "token: %s\nADMIN_API_TOKEN=%s\n", token, hash)
			return nil
		},
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
