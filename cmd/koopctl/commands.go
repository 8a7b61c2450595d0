package main

import (
	"fmt"
	"os"

	"koop-backend/internal/cycle"
	"koop-backend/internal/database"
	"koop-backend/internal/transfer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func exportCmd(e *env) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-data",
		Short: "Write producers, products, users and profiles to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := transfer.Export(e.db, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			e.log.Info("data exported", zap.String("file", out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "koop-export.xlsx", "destination workbook")
	return cmd
}

func importCmd(e *env) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "import-data",
		Short: "Load an xlsx workbook written by export-data",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := transfer.Import(e.db, e.svc.Stock, f)
			if err != nil {
				return err
			}
			e.svc.Catalog.InvalidateAll()
			e.log.Info("data imported",
				zap.String("file", in),
				zap.Any("producers", res.Producers),
				zap.Any("products", res.Products),
				zap.Any("users", res.Users),
				zap.Any("profiles", res.Profiles),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "workbook to import")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func resetDeliveredCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-delivered-quantities",
		Short: "Zero the delivered quantity of every product before a new week",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.runner.ResetDeliveredQuantities()
			if err != nil {
				return err
			}
			e.log.Info("delivered quantities reset", zap.Int64("products", n))
			return nil
		},
	}
}

func setDeadlineCmd(e *env) *cobra.Command {
	var (
		producer string
		weekday  string
		hour     int
	)
	cmd := &cobra.Command{
		Use:   "set-product-order-deadline",
		Short: "Set the order deadline of every product of a producer to the next weekday and hour",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := cycle.ParseWeekday(weekday)
			if err != nil {
				return err
			}
			if hour < 0 || hour > 23 {
				return fmt.Errorf("hour must be within 0..23, got %d", hour)
			}
			deadline, n, err := e.runner.SetProducerOrderDeadline(producer, day, hour)
			if err != nil {
				return err
			}
			e.log.Info("order deadline set",
				zap.String("producer", producer),
				zap.Time("deadline", deadline),
				zap.Int64("products", n),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&producer, "producer", "", "producer slug")
	cmd.Flags().StringVar(&weekday, "weekday", "", "weekday name, e.g. monday")
	cmd.Flags().IntVar(&hour, "hour", 0, "hour in the koop time zone")
	_ = cmd.MarkFlagRequired("producer")
	_ = cmd.MarkFlagRequired("weekday")
	return cmd
}

func advanceDeadlinesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "advance-order-deadlines",
		Short: "Move past order deadlines forward by whole weeks",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.runner.AdvanceOrderDeadlines()
			if err != nil {
				return err
			}
			e.log.Info("order deadlines advanced", zap.Int("rows", n))
			return nil
		},
	}
}

func sendSummariesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "send-order-summary-to-users",
		Short: "E-mail every member a summary of their order for the current week",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.runner.SendOrderSummaries(cmd.Context())
			if err != nil {
				return err
			}
			e.log.Info("order summaries sent", zap.Int("sent", n))
			return nil
		},
	}
}

func seedWeightSchemesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-weight-schemes",
		Short: "Insert the standard quantity choices",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := database.SeedWeightSchemes(e.db)
			if err != nil {
				return err
			}
			e.log.Info("weight schemes seeded", zap.Int("added", n))
			return nil
		},
	}
}
