package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPredictCmd() *cobra.Command {
	var network, settings, weights, input string

	cmd := &cobra.Command{
		Use:     "predict",
		Short:   "Print the output of a trained network for one input",
		Example: `  brain predict --network xor.xml --weights xor.brain --input "1,0"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			signal, err := parseSignal(input)
			if err != nil {
				return err
			}

			net, _, err := loadNetwork(network, settings, weights, 0)
			if err != nil {
				return err
			}

			out, err := net.PredictRaw(signal)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatSignal(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&network, "network", "", "network descriptor (.xml, .yaml)")
	cmd.Flags().StringVar(&settings, "settings", "", "settings descriptor, for layers without an activation stored in the weights")
	cmd.Flags().StringVar(&weights, "weights", "", "weights file (.xml or binary)")
	cmd.Flags().StringVar(&input, "input", "", "comma separated input signal")
	for _, name := range []string{"network", "weights", "input"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
