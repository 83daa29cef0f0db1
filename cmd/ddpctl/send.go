package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bbernstein/lacylights-ddp/pkg/ddp"
)

func newSendCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Stream random RGB frames to a receiver",
		Long: `Send streams frames of random RGB pixels to one DDP device.

Frames longer than one packet are split at increasing offsets with PUSH set
on the last packet only.

Examples:
  # 30 pixels to the display every half second, forever
  ddpctl send

  # 10 frames of 600 pixels to device 2
  ddpctl send --device 2 --pixels 600 --count 10 --interval 50ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSend(ctx, cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.IntP("device", "d", int(ddp.IDDisplay), "Destination device id")
	flags.Int("pixels", 30, "Pixels per frame")
	flags.Duration("interval", 500*time.Millisecond, "Delay between frames")
	flags.IntP("count", "n", 0, "Number of frames to send (0 = until interrupted)")
	flags.Int64("seed", 0, "Random seed (0 = time based)")

	for _, name := range []string{"device", "pixels", "interval", "count", "seed"} {
		_ = v.BindPFlag("send."+name, flags.Lookup(name))
	}
	return cmd
}

func runSend(ctx context.Context, cmd *cobra.Command, v *viper.Viper) error {
	device := v.GetInt("send.device")
	if device < 0 || device > 255 {
		return fmt.Errorf("device id %d out of range", device)
	}
	pixels := v.GetInt("send.pixels")
	if pixels <= 0 {
		return fmt.Errorf("pixels must be positive")
	}
	interval := v.GetDuration("send.interval")
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	count := v.GetInt("send.count")
	seed := v.GetInt64("send.seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	addr := targetAddr(v)
	sender, err := ddp.Dial(addr)
	if err != nil {
		return err
	}
	defer func() { _ = sender.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sending %d pixels to device %d at %s every %v\n", pixels, device, addr, interval)

	rng := rand.New(rand.NewSource(seed))
	frame := make([]byte, pixels*3)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for sent := 0; count == 0 || sent < count; sent++ {
		if sent > 0 {
			select {
			case <-ctx.Done():
				fmt.Fprintf(out, "Sent %d frames\n", sent)
				return nil
			case <-ticker.C:
			}
		}

		rng.Read(frame)
		if err := sender.SendFrame(byte(device), frame); err != nil {
			return err
		}
		if v.GetBool("verbose") {
			fmt.Fprintf(out, "frame %d: %d packets\n", sent+1, len(ddp.BuildFrame(byte(device), frame)))
		}
	}

	fmt.Fprintf(out, "Sent %d frames\n", count)
	return nil
}
