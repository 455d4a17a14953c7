package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zeu5/tablesim-decider/features"
	"github.com/zeu5/tablesim-decider/geometry"
	"github.com/zeu5/tablesim-decider/util"
)

func FootprintCommand() *cobra.Command {
	var container string
	var figPath string

	cmd := &cobra.Command{
		Use:   "footprint [state file]",
		Short: "Plot the free placement cells of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return footprint(args[0], container, figPath)
		},
	}
	cmd.Flags().StringVar(&container, "container", "box", "Container to search: stack, drawer, box or lid")
	cmd.Flags().StringVarP(&figPath, "out", "o", "footprint.png", "Path of the heat map image")
	return cmd
}

func footprint(statePath, container, figPath string) error {
	state, err := util.ReadState(statePath)
	if err != nil {
		return err
	}
	if err := state.Validate(); err != nil {
		return err
	}
	s, ok, err := geometry.SearchFor(state, features.ContainerOf(container))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s has no placement footprint", container)
	}
	ds := geometry.NewFootprintDataSet(s, state)
	if err := geometry.PlotFootprint(ds, figPath); err != nil {
		return err
	}
	bs, err := ds.JSON()
	if err != nil {
		return err
	}
	jsonPath := strings.TrimSuffix(figPath, filepath.Ext(figPath)) + ".json"
	if err := util.WriteToFile(jsonPath, string(bs)); err != nil {
		return err
	}
	fmt.Printf("%s: %d free cells of %d\n", ds.Container, ds.Free(), s.Region.Width()*s.Region.Height())
	return nil
}
