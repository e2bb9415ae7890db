package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eleven-am/mediaworker"
	"github.com/eleven-am/mediaworker/internal/domain"
	"github.com/eleven-am/mediaworker/internal/subtitle"
)

type documentOutput struct {
	File   string            `json:"file"`
	Status domain.Status     `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Cues   []mediaworker.Cue `json:"cues"`
}

func newSubtitlesCommand(ctx *commandContext) *cobra.Command {
	var format string
	var outDir string
	var workers int

	cmd := &cobra.Command{
		Use:   "subtitles <file.ttml>...",
		Short: "Resolve EBU-TTML documents into timed cues",
		Long: "Decodes each document, resolves it through the worker pool and prints the cues as JSON, " +
			"or writes one WebVTT file per document with --format vtt.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "vtt" {
				return fmt.Errorf("unsupported format %q (use json or vtt)", format)
			}

			w, cfg, err := ctx.newWorker(cmd)
			if err != nil {
				return err
			}

			jobID := mediaworker.NewJobID()
			outputs := resolveDocuments(cmd.Context(), w, jobID, args, workers)
			w.EndingProcess(jobID)

			if err := cmd.Context().Err(); err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(outputs); err != nil {
					return err
				}
			} else {
				for _, out := range outputs {
					if out.Status != domain.StatusSuccess {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", out.File, out.Detail)
						continue
					}
					path, err := writeVTT(out, outDir, cfg.Timebase())
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
			}

			failed := 0
			for _, out := range outputs {
				if out.Status != domain.StatusSuccess {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(outputs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, vtt)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Directory for WebVTT files (default: next to each input)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Pool size (default: dispatch.workers from config)")

	return cmd
}

// resolveDocuments decodes every file and runs the decoded documents through
// a worker pool. Each file is its own stream index, so files resolve in
// parallel. The returned slice follows the order of files.
func resolveDocuments(ctx context.Context, w *mediaworker.Worker, jobID string, files []string, workers int) []documentOutput {
	outputs := make([]documentOutput, len(files))
	pending := make([]int, 0, len(files))
	docs := make([]*mediaworker.Document, len(files))

	for i, file := range files {
		outputs[i] = documentOutput{File: file, Cues: []mediaworker.Cue{}}
		doc, err := decodeFile(file)
		if err != nil {
			outputs[i].Status = domain.StatusError
			outputs[i].Detail = err.Error()
			continue
		}
		docs[i] = doc
		pending = append(pending, i)
	}

	reporter := w.Progress(jobID)
	done := len(files) - len(pending)
	report := func() {
		_ = reporter.PublishProgress(done * 100 / len(files))
	}
	if done > 0 {
		report()
	}
	if len(pending) == 0 {
		return outputs
	}

	pool := w.NewPool(workers)
	if err := pool.Start(ctx); err != nil {
		for _, i := range pending {
			outputs[i].Status = domain.StatusError
			outputs[i].Detail = err.Error()
		}
		return outputs
	}
	defer pool.Stop()

	submitErr := make(chan error, 1)
	go func() {
		for _, i := range pending {
			task := mediaworker.Task{JobID: jobID, StreamIndex: i, Document: docs[i]}
			if err := pool.Submit(ctx, task); err != nil {
				submitErr <- err
				return
			}
		}
	}()

	for received := 0; received < len(pending); {
		select {
		case res := <-pool.Results():
			received++
			done++
			out := &outputs[res.Task.StreamIndex]
			switch {
			case res.Err != nil:
				out.Status = domain.StatusError
				out.Detail = res.Err.Error()
			case res.Subtitle != nil:
				out.Status = res.Subtitle.Status
				out.Detail = res.Subtitle.Detail
				out.Cues = res.Subtitle.Cues
			}
			report()
		case err := <-submitErr:
			markUnresolved(outputs, pending, err)
			return outputs
		case <-ctx.Done():
			markUnresolved(outputs, pending, ctx.Err())
			return outputs
		}
	}

	return outputs
}

func markUnresolved(outputs []documentOutput, pending []int, err error) {
	for _, i := range pending {
		if outputs[i].Status == "" {
			outputs[i].Status = domain.StatusError
			outputs[i].Detail = err.Error()
		}
	}
}

func decodeFile(path string) (*mediaworker.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return mediaworker.DecodeTTML(f)
}

func writeVTT(out documentOutput, dir string, tb subtitle.Timebase) (string, error) {
	if dir == "" {
		dir = filepath.Dir(out.File)
	}
	name := strings.TrimSuffix(filepath.Base(out.File), filepath.Ext(out.File)) + ".vtt"
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create webvtt: %w", err)
	}
	if err := subtitle.WriteWebVTT(f, out.Cues, tb); err != nil {
		f.Close()
		return "", fmt.Errorf("write webvtt: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close webvtt: %w", err)
	}
	return path, nil
}
