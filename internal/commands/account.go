package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gaborage/b2c2-cli/b2c2"
)

func (a *app) newInstrumentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "instruments",
		Short: "List your tradable instruments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Getting the list of your tradable instruments..")
			instruments, err := sess.client.Instruments(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Your tradable instruments are:")
			for _, instrument := range instruments {
				fmt.Fprintln(out, instrument.Name)
			}
			return nil
		},
	}
}

func (a *app) newBalanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show your balance per currency",
		Long: `Shows the available balance in each supported currency.

The balance is the net result of all trade and settlement activity. A
positive amount is owed to you by B2C2; a negative amount is owed by you.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd)
			if err != nil {
				return err
			}
			return printBalance(cmd, sess)
		},
	}
}

func printBalance(cmd *cobra.Command, sess *session) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Getting your balance..")
	balance, err := sess.client.Balance(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Your balance is:")
	writeBalance(cmd, balance)
	return nil
}

func writeBalance(cmd *cobra.Command, balance b2c2.Balance) {
	out := cmd.OutOrStdout()
	for _, currency := range balance.Currencies() {
		fmt.Fprintf(out, "%s: %s\n", currency, b2c2.FormatDecimal(balance[currency]))
	}
}

func (a *app) newAccountInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "account-info",
		Short: "Show your risk exposure and trade limits",
		Long: `Shows the current and maximum risk exposure and the maximum quantity
allowed per trade. Risk exposure is the sum of all negative balances in USD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Getting your account information..")
			info, err := sess.client.AccountInfo(cmd.Context())
			if err != nil {
				return err
			}
			printFields(out, info.Fields())
			return nil
		},
	}
}

func (a *app) newOverviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show balance and account information together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd)
			if err != nil {
				return err
			}

			var (
				balance b2c2.Balance
				info    *b2c2.AccountInfo
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				balance, err = sess.client.Balance(ctx)
				return err
			})
			g.Go(func() error {
				var err error
				info, err = sess.client.AccountInfo(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Your balance is:")
			writeBalance(cmd, balance)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Your account information is:")
			printFields(out, info.Fields())
			return nil
		},
	}
}
