package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Poll external job state and advance items",
	Long:  `Reconciles one item with --item, or sweeps every item that still has in-flight media jobs or scheduled posts.`,
	RunE:  reconcileItems,
}

func init() {
	reconcileCmd.Flags().String("item", "", "reconcile only this item id")
	reconcileCmd.Flags().Duration("timeout", 5*time.Minute, "give up after this long")
	rootCmd.AddCommand(reconcileCmd)
}

func reconcileItems(cmd *cobra.Command, _ []string) error {
	defer StopApp()

	itemID, _ := cmd.Flags().GetString("item")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if itemID != "" {
		report, err := reconciler.Reconcile(ctx, itemID)
		if err != nil {
			return fmt.Errorf("reconcile %s: %w", itemID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "advanced=%d processing=%d failed=%d\n", report.Advanced, report.StillProcessing, report.Failed)
		return nil
	}

	report, err := reconciler.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("reconcile sweep: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "advanced=%d processing=%d failed=%d\n", report.Advanced, report.StillProcessing, report.Failed)
	return nil
}
