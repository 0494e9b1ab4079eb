package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tradevision/pkg/signalclient"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:   "signalwatch",
		Short: "Terminal client for the TradeVision signals API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("TV_SERVER_URL", "http://localhost:8000"), "signals API base URL")

	root.AddCommand(
		newRegisterCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newAccessCmd(),
		newLinkBrokerCmd(),
		newSymbolsCmd(),
		newWatchCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newAPIClient builds a client seeded from the state file. The auth
// expiry hook wipes the stored token so the next run prompts a login.
func newAPIClient(st *clientState) *signalclient.Client {
	return signalclient.New(serverURL,
		signalclient.WithToken(st.Token),
		signalclient.WithAuthExpiredHook(func() {
			st.Token = ""
			if err := saveState(st); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			fmt.Fprintln(os.Stderr, "session expired, please log in again")
		}),
	)
}
