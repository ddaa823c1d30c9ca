package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/export"
	"github.com/dukerupert/railinspect/inspection"
	"github.com/dukerupert/railinspect/internal/audit"
	"github.com/dukerupert/railinspect/internal/email"
	"github.com/dukerupert/railinspect/internal/migrations"
	"github.com/dukerupert/railinspect/internal/queue"
	"github.com/dukerupert/railinspect/postgres"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *options) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := opts.openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if status {
				return migrations.Status(pool)
			}
			return migrations.Up(pool, opts.logger)
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "Show migration status instead of applying")
	return cmd
}

func newReconcileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <report-id>",
		Short: "Create missing pending results for a draft report",
		Long: `Ensure every active checklist activity has a result row for the report.

Only drafts are reconciled. The command fails when the checklist store is
unavailable rather than reconciling against the fallback checklist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportID, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := opts.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			db := postgres.NewDB(pool, opts.logger)
			report, err := db.TripReportService.FindReportByID(ctx, reportID)
			if err != nil {
				return err
			}
			if !report.Status.IsEditable() {
				return fmt.Errorf("report %s is %s; only drafts are reconciled", reportID, report.Status)
			}

			loader := inspection.NewLoader(db.ChecklistService, db.ResultService, inspection.NopCache{}, nil, opts.logger)
			checklist, err := loader.Load(ctx)
			if err != nil {
				return err
			}
			if checklist.Degraded {
				return fmt.Errorf("checklist store unavailable: %w", checklist.Cause)
			}

			reconciler := inspection.NewReconciler(db.ChecklistService, db.ResultService, loader, opts.logger)
			result, err := reconciler.Reconcile(ctx, reportID, report.InspectorID, checklist)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "missing: %d, created: %d\n", len(result.Missing), result.Created)
			for id, ferr := range result.Failed {
				fmt.Fprintf(out, "  failed %s: %v\n", id, ferr)
			}
			if len(result.Failed) > 0 {
				return fmt.Errorf("%d activities could not be reconciled", len(result.Failed))
			}
			return nil
		},
	}
}

func newRenderCmd(opts *options) *cobra.Command {
	var (
		outPath  string
		pdf      bool
		timezone string
	)

	cmd := &cobra.Command{
		Use:   "render <report-id>",
		Short: "Render a trip report document",
		Long: `Render a trip report to HTML, or to PDF with --pdf.

The document is written to --out, or to stdout when no path is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportID, err := parseID(args[0])
			if err != nil {
				return err
			}
			location, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("invalid --timezone: %w", err)
			}

			ctx := cmd.Context()
			pool, err := opts.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			db := postgres.NewDB(pool, opts.logger)
			loader := inspection.NewLoader(db.ChecklistService, db.ResultService, inspection.NopCache{}, nil, opts.logger)
			printer := export.NewPrinter("chrome", time.Minute)
			exporter := export.NewService(db.TripReportService, db.ProfileService, loader, nil, nil, printer, location, opts.logger)

			html, _, err := exporter.RenderReport(ctx, reportID)
			if err != nil {
				return err
			}
			data := []byte(html)
			if pdf {
				data, err = printer.PrintPDF(ctx, html)
				if err != nil {
					return fmt.Errorf("printing pdf: %w", err)
				}
			}

			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", outPath, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the document to a file")
	cmd.Flags().BoolVar(&pdf, "pdf", false, "Print to PDF with headless Chrome")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "Time zone for report timestamps")
	return cmd
}

func newApproveUserCmd(opts *options) *cobra.Command {
	var (
		reject bool
		reason string
		notify bool
	)

	cmd := &cobra.Command{
		Use:   "approve-user <profile-id>",
		Short: "Approve or reject a pending signup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID, err := parseID(args[0])
			if err != nil {
				return err
			}
			status := railinspect.ProfileStatusApproved
			if reject {
				status = railinspect.ProfileStatusRejected
				if reason == "" {
					return fmt.Errorf("--reason is required with --reject")
				}
			}

			ctx := cmd.Context()
			pool, err := opts.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			db := postgres.NewDB(pool, opts.logger)
			profile, err := db.ProfileService.ReviewProfile(ctx, profileID, status, reason)
			if err != nil {
				return err
			}

			if notify {
				q, err := queue.NewQueue(pool, opts.logger, railinspect.DefaultQueueConfig())
				if err != nil {
					return err
				}
				job, err := email.EnqueueSignupDecision(ctx, q, profile.ID)
				if err != nil {
					return fmt.Errorf("queueing decision email: %w", err)
				}
				opts.logger.Info("decision email queued", "job_id", job.ID.String())
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(profile)
		},
	}
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject instead of approve")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to the applicant")
	cmd.Flags().BoolVar(&notify, "notify", true, "Queue the decision email")
	return cmd
}

func newPruneAuditCmd(opts *options) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune-audit",
		Short: "Delete audit entries older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}

			ctx := cmd.Context()
			pool, err := opts.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			db := postgres.NewDB(pool, opts.logger)
			n, err := audit.NewLogger(db.AuditService, opts.logger).Prune(ctx, time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d audit entries\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 365, "Retention in days")
	return cmd
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}
