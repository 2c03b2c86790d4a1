package cmd

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var produceCmd = &cobra.Command{
	Use:   "produce",
	Short: "Run one production cycle for a client now",
	Long:  `Generates a new content item for the client, ignoring its schedule slot, and prints the resulting item state.`,
	RunE:  produceNow,
}

func init() {
	produceCmd.Flags().String("client", "", "client id to produce for")
	_ = produceCmd.MarkFlagRequired("client")
	rootCmd.AddCommand(produceCmd)
}

func produceNow(cmd *cobra.Command, _ []string) error {
	defer StopApp()

	clientID, _ := cmd.Flags().GetString("client")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Generation.Timeout+cfg.Scheduler.CycleLockTTL)
	defer cancel()

	item, err := scheduler.ProduceNow(ctx, clientID)
	if err != nil {
		return fmt.Errorf("produce for %s: %w", clientID, err)
	}

	logrus.WithFields(logrus.Fields{
		"item":     item.ID,
		"status":   item.Status,
		"question": item.Question,
	}).Info("[PRODUCE] Item created")
	for _, kind := range domain.GeneratedKinds {
		if a, ok := item.Artifacts[kind]; ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-10s %s\n", a.Kind, a.Status, a.Error)
		}
	}
	return nil
}
