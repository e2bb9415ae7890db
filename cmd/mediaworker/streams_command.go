package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eleven-am/mediaworker"
	"github.com/eleven-am/mediaworker/internal/probe"
)

type declaredStream struct {
	mediaworker.StreamDescriptor
	Graph string `json:"graph"`
}

type streamsOutput struct {
	JobID   string           `json:"job_id"`
	Streams []declaredStream `json:"streams"`
}

func newStreamsCommand(ctx *commandContext) *cobra.Command {
	var inventoryPath string
	var params map[string]string
	var output string

	cmd := &cobra.Command{
		Use:   "streams [media-url]",
		Short: "Declare streams and filters for an inventory",
		Long: "Runs init-process against a stream inventory and prints the declared streams with " +
			"their filter chains. The inventory comes from --inventory (ffprobe JSON, - for stdin) " +
			"or from running ffprobe on media-url.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := resolveOutput(output, cmd.OutOrStdout())
			if mode != outputJSON && mode != outputTable {
				return fmt.Errorf("unsupported output %q (use auto, json or table)", output)
			}
			if (inventoryPath == "") == (len(args) == 0) {
				return fmt.Errorf("provide either --inventory or a media url")
			}

			w, _, err := ctx.newWorker(cmd)
			if err != nil {
				return err
			}

			var inventory []mediaworker.StreamInfo
			if inventoryPath != "" {
				inventory, err = readInventory(cmd, inventoryPath)
			} else {
				inventory, err = probe.Probe(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			jobID := mediaworker.NewJobID()
			descriptors, err := w.InitProcess(cmd.Context(), jobID, inventory, params)
			if err != nil {
				return err
			}
			defer w.EndingProcess(jobID)

			out := streamsOutput{JobID: jobID, Streams: make([]declaredStream, 0, len(descriptors))}
			for _, d := range descriptors {
				out.Streams = append(out.Streams, declaredStream{
					StreamDescriptor: d,
					Graph:            mediaworker.RenderFilters(d.Filters),
				})
			}

			if mode == outputTable {
				rows := make([][]string, 0, len(out.Streams))
				for _, d := range out.Streams {
					rows = append(rows, []string{strconv.Itoa(d.StreamIndex), string(d.Kind), d.Graph})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "job %s\n%s\n", jobID, renderTable([]string{"Index", "Kind", "Filters"}, rows))
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "", "ffprobe-style JSON inventory file, - for stdin")
	cmd.Flags().StringVar(&output, "output", outputAuto, "Output (auto, json, table)")
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "Job parameter as key=value (repeatable)")

	return cmd
}

func readInventory(cmd *cobra.Command, path string) ([]mediaworker.StreamInfo, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open inventory: %w", err)
		}
		defer f.Close()
		r = f
	}
	return probe.ReadInventory(r)
}
