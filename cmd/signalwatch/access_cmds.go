package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tradevision/pkg/signalclient"
)

func newAccessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "access",
		Short: "Show where you sit in the onboarding funnel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadState()
			if err != nil {
				return err
			}
			client := newAPIClient(st)
			gate := signalclient.NewGate(client)

			ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
			defer cancel()
			state, status, err := gate.Check(ctx)
			if err != nil {
				return err
			}
			printAccess(state, status)
			return nil
		},
	}
}

func newLinkBrokerCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "link-broker [trader-id]",
		Short: "Link a Pocket Option trader id, or refresh the deposit total",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadState()
			if err != nil {
				return err
			}
			client := newAPIClient(st)

			ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
			defer cancel()

			var status *signalclient.AccessStatus
			switch {
			case refresh:
				status, err = client.CheckBalance(ctx)
			case len(args) == 1:
				status, err = client.VerifyPocketOption(ctx, args[0])
			default:
				return fmt.Errorf("provide a trader id or --refresh")
			}
			if err != nil {
				return err
			}
			printAccess(signalclient.DeriveGateState(status), status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-check the deposit total instead of linking")
	return cmd
}

func newSymbolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symbols",
		Short: "List tradable symbols and timeframes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadState()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
			defer cancel()

			sl, err := newAPIClient(st).GetSymbols(ctx)
			if err != nil {
				return err
			}
			fmt.Println("symbols:   ", sl.Symbols)
			fmt.Println("timeframes:", sl.Timeframes)
			return nil
		},
	}
}

func printAccess(state signalclient.GateState, status *signalclient.AccessStatus) {
	fmt.Printf("state: %s\n", state)
	if status.Message != "" {
		fmt.Printf("info:  %s\n", status.Message)
	}
	switch state {
	case signalclient.GateEmailUnverified:
		fmt.Println("next:  verify your email (check your inbox)")
	case signalclient.GateBrokerUnlinked:
		fmt.Println("next:  link your Pocket Option trader id with `signalwatch link-broker <id>`")
	case signalclient.GateDepositInsufficient:
		fmt.Printf("next:  deposit at least $%.0f (currently $%.2f)\n", status.MinRequired, status.Balance)
	case signalclient.GateFullAccess:
		fmt.Printf("level: %s, deposit $%.2f\n", status.AccessLevel, status.Balance)
	}
}
