package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	awspkg "github.com/rmtechsolution/valentine-backend/pkg/aws"
	"github.com/rmtechsolution/valentine-backend/services/story-service/config"
	"github.com/rmtechsolution/valentine-backend/services/story-service/database"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func attemptsCmd() *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List payment attempts by status, e.g. paid stories that failed to save",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(warnLogger(cmd))
			if err != nil {
				return err
			}
			ledger, closeLedger, err := openLedger(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeLedger()

			attempts, err := ledger.ListByStatus(cmd.Context(), status, limit)
			if err != nil {
				return fmt.Errorf("list attempts: %w", err)
			}
			return printAttempts(cmd.OutOrStdout(), attempts)
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", models.AttemptStatusSaveFailed, "attempt status")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum rows")
	return cmd
}

// warnLogger writes warnings and errors to the command's stderr.
func warnLogger(cmd *cobra.Command) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(cmd.ErrOrStderr()), zapcore.WarnLevel))
}

// openLedger connects to the ledger backend selected by cfg.
func openLedger(cmd *cobra.Command, cfg *config.Config) (repository.AttemptRepository, func(), error) {
	if cfg.UsesPostgres() {
		db, err := database.ConnectPostgres(cmd.Context(), cfg, warnLogger(cmd))
		if err != nil {
			return nil, nil, err
		}
		return repository.NewGormAttemptRepository(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	}

	awsCfg, err := awspkg.LoadAWSConfig(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return repository.NewDynamoAttemptRepository(awspkg.NewDynamoDBClient(awsCfg), cfg.DynamoTable), func() {}, nil
}

func printAttempts(w io.Writer, attempts []models.PaymentAttempt) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tPAYMENT\tAMOUNT\tPROMO\tEMAIL\tSTATUS\tGATEWAY\tCREATED\tREASON")
	for _, a := range attempts {
		paymentID := "-"
		if a.PaymentID != nil {
			paymentID = *a.PaymentID
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.GatewayOrderID,
			paymentID,
			a.AmountMinor,
			dash(a.PromoCode),
			dash(a.Email),
			a.Status,
			dash(a.GatewayStatus),
			a.CreatedAt.Format(time.RFC3339),
			dash(a.FailureReason),
		)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
