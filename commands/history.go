package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/zeu5/tablesim-decider/monitor"
	"github.com/zeu5/tablesim-decider/server"
)

func HistoryCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "history [episode]",
		Short: "Print the monitor window stored in redis for an episode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			episode := server.DefaultEpisode
			if len(args) == 1 {
				episode = args[0]
			}
			if addr == "" {
				addr = cfg.Monitor.RedisAddr
			}
			return printHistory(cmd.Context(), addr, episode)
		},
	}
	cmd.Flags().StringVar(&addr, "redis", "", "Redis address, overrides monitor.redis_addr")
	return cmd
}

func printHistory(ctx context.Context, addr, episode string) error {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	defer cli.Close()

	h := monitor.NewRedisHistory(cli, episode, cfg.Monitor.HistorySize)
	snapshots, err := h.Snapshots(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d states\n", monitor.HistoryKey(episode), len(snapshots))
	for i, s := range snapshots {
		repeats := 0
		for _, other := range snapshots {
			if other.Equivalent(s) {
				repeats++
			}
		}
		fmt.Printf("%3d gripper=%s open=%t holding=%q drawer=%d repeats=%d\n",
			i, s.GripperPosition.Hash(), s.GripperOpen, s.ObjectInGripper, s.DrawerOpening, repeats)
	}
	return nil
}
