package main

import (
	"context"
	"fmt"
	"io"

	awspkg "github.com/rmtechsolution/valentine-backend/pkg/aws"
	"github.com/rmtechsolution/valentine-backend/services/story-service/config"
	"github.com/rmtechsolution/valentine-backend/services/story-service/database"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/repository"
	"github.com/spf13/cobra"
)

var attemptStatuses = []string{
	models.AttemptStatusCreated,
	models.AttemptStatusDismissed,
	models.AttemptStatusPaid,
	models.AttemptStatusSaved,
	models.AttemptStatusSaveFailed,
}

type attemptLister interface {
	ListByStatus(ctx context.Context, status string, limit int) ([]models.PaymentAttempt, error)
}

type attemptWriter interface {
	PutMany(ctx context.Context, attempts []models.PaymentAttempt) error
}

func migrateDDBCmd() *cobra.Command {
	var table string
	var limit int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate-ddb",
		Short: "Copy the Postgres payment ledger into DynamoDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if table != "" {
				cfg.DynamoTable = table
			}

			db, err := database.ConnectPostgres(cmd.Context(), cfg, warnLogger(cmd))
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			src := repository.NewGormAttemptRepository(db)

			var dst attemptWriter = discardWriter{}
			if !dryRun {
				awsCfg, err := awspkg.LoadAWSConfig(cmd.Context())
				if err != nil {
					return err
				}
				dst = repository.NewDynamoAttemptRepository(awspkg.NewDynamoDBClient(awsCfg), cfg.DynamoTable)
			}
			return copyAttempts(cmd.Context(), src, dst, limit, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "DynamoDB table (default LEDGER_DYNAMO_TABLE)")
	cmd.Flags().IntVar(&limit, "limit", 100000, "maximum attempts copied per status")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count attempts without writing")
	return cmd
}

// copyAttempts copies every status bucket of src into dst.
func copyAttempts(ctx context.Context, src attemptLister, dst attemptWriter, limit int, out io.Writer) error {
	total := 0
	for _, status := range attemptStatuses {
		attempts, err := src.ListByStatus(ctx, status, limit)
		if err != nil {
			return fmt.Errorf("list %s attempts: %w", status, err)
		}
		if len(attempts) == 0 {
			continue
		}
		if err := dst.PutMany(ctx, attempts); err != nil {
			return fmt.Errorf("write %s attempts: %w", status, err)
		}
		fmt.Fprintf(out, "%-12s %d\n", status, len(attempts))
		total += len(attempts)
	}
	fmt.Fprintf(out, "copied %d attempts\n", total)
	return nil
}

type discardWriter struct{}

func (discardWriter) PutMany(context.Context, []models.PaymentAttempt) error { return nil }
