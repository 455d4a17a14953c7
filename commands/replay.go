package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zeu5/tablesim-decider/monitor"
	"github.com/zeu5/tablesim-decider/types"
	"github.com/zeu5/tablesim-decider/util"
)

func ReplayCommand() *cobra.Command {
	var saveFile string

	cmd := &cobra.Command{
		Use:   "replay [states file]",
		Short: "Run a recorded sequence of states through the monitor and the engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return replay(cmd.Context(), args[0], saveFile)
		},
	}
	cmd.Flags().StringVarP(&saveFile, "save", "s", "", "Write the replayed steps and the episode timeline to this file")
	return cmd
}

func replay(ctx context.Context, path, saveFile string) error {
	states, err := util.ReadStates(path)
	if err != nil {
		return err
	}
	engine, err := loadEngine(cfg, logger)
	if err != nil {
		return err
	}
	m := monitor.NewMonitor(monitor.NewMemoryHistory(cfg.Monitor.HistorySize), cfg.Monitor.RepeatThreshold, logger)
	report := types.NewEpisodeReport(path)
	prior := make([]*types.WorldState, 0)

	if saveFile != "" {
		if err := util.WriteToFile(saveFile, "Replay: "+path); err != nil {
			return err
		}
	}
	// step lines reach the save file as they are produced, so a failing
	// replay still leaves the steps that ran
	emit := func(line string) error {
		fmt.Println(line)
		if saveFile == "" {
			return nil
		}
		return util.AppendToFile(saveFile, line)
	}

	for i, state := range states {
		status, err := m.Evaluate(ctx, state)
		if err != nil {
			return err
		}
		report.AddStatus(status)
		if status.Terminal() {
			if err := emit(fmt.Sprintf("%4d %-24s", i, status)); err != nil {
				return err
			}
			break
		}
		action, err := engine.SelectAction(state, prior)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		report.AddAction(action)
		if err := emit(fmt.Sprintf("%4d %-24s %s", i, status, action.Hash())); err != nil {
			return err
		}

		prior = append(prior, state.Copy())
		if len(prior) > cfg.Features.HistoryBuffer {
			prior = prior[len(prior)-cfg.Features.HistoryBuffer:]
		}
	}

	if saveFile != "" {
		return util.AppendToFile(saveFile, report.StringTimeline())
	}
	return nil
}
