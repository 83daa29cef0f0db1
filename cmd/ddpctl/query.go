package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bbernstein/lacylights-ddp/pkg/ddp"
)

func newQueryCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a receiver and print its reply",
		Long: `Query sends a DDP QUERY and prints the reply payload.

The status device (251) answers with a JSON status document; other devices
answer with an empty acknowledgment.

Examples:
  ddpctl query
  ddpctl query --device 250 --raw`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.IntP("device", "d", int(ddp.IDStatus), "Device id to query")
	flags.Bool("raw", false, "Print the payload as received")

	_ = v.BindPFlag("query.device", flags.Lookup("device"))
	_ = v.BindPFlag("query.raw", flags.Lookup("raw"))
	return cmd
}

func runQuery(ctx context.Context, cmd *cobra.Command, v *viper.Viper) error {
	device := v.GetInt("query.device")
	if device < 0 || device > 255 {
		return fmt.Errorf("device id %d out of range", device)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout(v))
	defer cancel()

	addr := targetAddr(v)
	payload, err := ddp.Query(ctx, addr, byte(device))
	if err != nil {
		if errors.Is(err, ddp.ErrNoReply) {
			return fmt.Errorf("no reply from %s for device %d", addr, device)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if len(payload) == 0 {
		fmt.Fprintf(out, "Device %d acknowledged with no data\n", device)
		return nil
	}
	if v.GetBool("query.raw") {
		fmt.Fprintln(out, string(payload))
		return nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, payload, "", "  "); err != nil {
		// not JSON
		fmt.Fprintln(out, string(payload))
		return nil
	}
	fmt.Fprintln(out, pretty.String())
	return nil
}
