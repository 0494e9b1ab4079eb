package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tradevision/pkg/signalclient"
)

func newWatchCmd() *cobra.Command {
	var (
		symbol   string
		tf       string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live signal and countdown for a pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadState()
			if err != nil {
				return err
			}
			if st.Token == "" {
				return fmt.Errorf("not logged in, run `signalwatch login` first")
			}
			if symbol == "" {
				symbol = st.SelectedSymbol
			}
			if tf == "" {
				tf = st.SelectedTF
			}
			if symbol == "" || tf == "" {
				return fmt.Errorf("no pair selected, pass --symbol and --tf")
			}
			symbol = strings.ToUpper(symbol)

			client := newAPIClient(st)
			gate := signalclient.NewGate(client)

			checkCtx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
			gateState, status, err := gate.Check(checkCtx)
			cancel()
			if err != nil {
				return fmt.Errorf("access check failed: %w", err)
			}
			if !gateState.Allowed() {
				printAccess(gateState, status)
				return fmt.Errorf("signals are locked")
			}

			// Remember the selection for the next run.
			st.SelectedSymbol = symbol
			st.SelectedTF = tf
			if err := saveState(st); err != nil {
				return err
			}

			poller := signalclient.NewPoller(client, symbol, tf,
				signalclient.WithPollInterval(interval),
				signalclient.WithUpdateFunc(render),
			)
			fmt.Printf("watching %s %s (ctrl-c to stop)\n", symbol, tf)
			if err := poller.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol, e.g. EURUSD")
	cmd.Flags().StringVar(&tf, "tf", "", "timeframe, e.g. 5m")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "poll interval")
	return cmd
}

func render(s signalclient.State) {
	switch {
	case errors.Is(s.Err, signalclient.ErrAuthExpired):
		fmt.Printf("\r%-78s", "session expired, log in again")
	case s.Err != nil:
		fmt.Printf("\r%-78s", fmt.Sprintf("error: %v", s.Err))
	case s.Signal == nil:
		fmt.Printf("\r%-78s", fmt.Sprintf("%s %s: waiting for a signal...", s.Symbol, s.Timeframe))
	default:
		line := fmt.Sprintf("%s %s %s @ %.5f  enters %s  expires in %s  %3.0f%%",
			s.Signal.Symbol, s.Signal.Timeframe, s.Signal.Direction, s.Signal.Price,
			s.Signal.EnterAt.Local().Format("15:04:05"),
			s.Countdown.Remaining.Round(time.Second),
			s.Countdown.Progress*100)
		if s.Stats != nil && s.Stats.N > 0 {
			line += fmt.Sprintf("  [win rate %.1f%% over %d]", s.Stats.WinRateLastN*100, s.Stats.N)
		}
		fmt.Printf("\r%-78s", line)
	}
}
