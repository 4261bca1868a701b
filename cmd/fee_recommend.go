package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/validator-vault/pkg/withdrawalfee"
)

var (
	feeExcess  uint64
	feeCount   uint64
	feePending uint64
)

// queueState is a fixed reading of the withdrawal request queue.
type queueState struct {
	excess  uint64
	pending uint64
}

func (q queueState) ExcessRequests() (uint64, error) { return q.excess, nil }

func (q queueState) RequestCount() (uint64, error) { return q.pending, nil }

var feeRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend the fee for a batch of withdrawal requests",
	Long:  `Prints the fee in wei for a batch of withdrawal requests at the given queue excess, for the current block and for the block after it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return recommendFee()
	},
	SilenceUsage: true,
}

func init() {
	feeCmd.AddCommand(feeRecommendCmd)

	feeRecommendCmd.Flags().Uint64Var(&feeExcess, "excess", 0, "Excess withdrawal requests of the current block")
	feeRecommendCmd.Flags().Uint64Var(&feeCount, "count", 1, "Number of withdrawal requests in the batch")
	feeRecommendCmd.Flags().Uint64Var(&feePending, "pending", 0, "Requests already added in the current block")

	if err := feeRecommendCmd.MarkFlagRequired("excess"); err != nil {
		panic(err)
	}
}

func recommendFee() error {
	if feeCount == 0 {
		return errors.New("count must be at least 1")
	}

	estimator := withdrawalfee.NewEstimator(queueState{excess: feeExcess, pending: feePending})

	current, err := estimator.RecommendedFee(feeCount)
	if err != nil {
		return errors.Wrap(err, "failed to compute fee")
	}

	projected, err := estimator.ProjectedFee(feeCount)
	if err != nil {
		return errors.Wrap(err, "failed to compute projected fee")
	}

	log.WithFields(logrus.Fields{
		"excess":  feeExcess,
		"count":   feeCount,
		"pending": feePending,
	}).Debug("Computed withdrawal request fee")

	fmt.Printf("Current block: %s wei\n", current.Dec())
	fmt.Printf("Next block:    %s wei\n", projected.Dec())

	return nil
}
