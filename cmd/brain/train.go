package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brain-ml/brain/internal/config"
	"github.com/brain-ml/brain/internal/nn"
)

type trainFlags struct {
	network  string
	settings string
	data     string
	init     string
	out      string
	seed     uint64
}

func newTrainCmd() *cobra.Command {
	var f trainFlags

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a network and save its weights",
		Long: `Train a network described by --network with the settings of --settings on
the dataset described by --data, then write the weights to --out.

Weights are written as XML when --out ends in .xml and as a binary weight
file otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTrain(ctx, cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.network, "network", "", "network descriptor (.xml, .yaml)")
	cmd.Flags().StringVar(&f.settings, "settings", "", "training settings descriptor (.xml, .yaml)")
	cmd.Flags().StringVar(&f.data, "data", "", "data descriptor (.xml, .yaml)")
	cmd.Flags().StringVar(&f.init, "init", "", "initial weights file")
	cmd.Flags().StringVar(&f.out, "out", "", "output weights file (.xml or binary)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed, overrides the settings seed (0 keeps it)")
	for _, name := range []string{"network", "settings", "data", "out"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runTrain(ctx context.Context, cmd *cobra.Command, f trainFlags) error {
	net, settings, err := loadNetwork(f.network, f.settings, f.init, f.seed)
	if err != nil {
		return err
	}

	descriptor, err := config.LoadData(f.data)
	if err != nil {
		return err
	}
	samples, err := descriptor.Load(newRand(settings.Seed))
	if err != nil {
		return err
	}
	if labels := samples.Labels(); len(labels) > 0 {
		log.Info().Strs("labels", labels).Msg("labelled dataset")
	}

	report, err := net.Train(ctx, samples)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), nn.ResultOf(err))
		return fmt.Errorf("training failed: %w", err)
	}

	if err := net.Save(f.out); err != nil {
		return err
	}
	log.Info().Str("path", f.out).Str("run_id", report.RunID.String()).Msg("weights saved")

	fmt.Fprintf(cmd.OutOrStdout(), "%s iterations=%d error=%g converged=%t run=%s\n",
		nn.ResultOf(nil), report.Iterations, report.Error, report.Converged, report.RunID)
	return nil
}
