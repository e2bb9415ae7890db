package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eleven-am/mediaworker/internal/domain"
	"github.com/eleven-am/mediaworker/internal/hwaccel"
)

var accelerators = []domain.Accelerator{
	domain.AccelCUDA,
	domain.AccelQSV,
	domain.AccelVideoToolbox,
	domain.AccelVAAPI,
	domain.AccelNone,
}

func newAccelCommand(_ *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "accel",
		Short: "Detect hardware acceleration available to ffmpeg",
		Long: "Lists the accelerators ffmpeg reports together with their scale filters and marks the one " +
			"hwaccel = \"auto\" would select.",
		RunE: func(cmd *cobra.Command, args []string) error {
			detectCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			available, err := hwaccel.Detect(detectCtx)
			if err != nil {
				return err
			}

			found := make(map[domain.Accelerator]bool, len(available))
			for _, a := range available {
				found[a] = true
			}
			selected := hwaccel.Select(available)

			rows := make([][]string, 0, len(accelerators))
			for _, accel := range accelerators {
				hw := hwaccel.NewConfig(accel)
				mark := ""
				if accel == selected {
					mark = "*"
				}
				rows = append(rows, []string{string(accel), hw.ScaleFilter, hw.PixelFormat, yesNo(found[accel]), mark})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Accelerator", "Scale", "Format", "Available", "Selected"}, rows))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Detection timeout")

	return cmd
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
