package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"carpet-studio/internal/app"
	"carpet-studio/internal/export"
	"carpet-studio/internal/studio"
)

func (c *cli) generateCmd() *cobra.Command {
	var (
		imagePath   string
		strokesPath string
		brush       float64
		outDir      string
		sinkNames   []string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Cut out a product photo and render variants A and B",
		Long: "generate isolates the product with the removal service, or with the brush strokes\n" +
			"in --strokes, renders both carpet variants and exports cutout.png, variant-a.png\n" +
			"and variant-b.png to --out or to the configured sinks.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc := c.app.Studio

			sinks, err := c.pickSinks(outDir, sinkNames)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(imagePath)
			if err != nil {
				return err
			}

			id := svc.NewSession(ctx)
			defer c.app.Sessions.Delete(id)

			events, wait := printEvents(cmd.ErrOrStderr())
			err = run(ctx, svc, id, raw, strokesPath, brush, events)
			close(events)
			wait()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range sortedKeys(sinks) {
				files, err := svc.Export(ctx, id, sinks[name])
				if err != nil {
					return fmt.Errorf("export to %s: %w", name, err)
				}
				for _, f := range files {
					fmt.Fprintf(out, "%s\t%s\n", name, f)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "product photo (jpeg, png, webp or gif)")
	cmd.Flags().StringVar(&strokesPath, "strokes", "", "JSON file of brush strokes for a manual mask instead of auto removal")
	cmd.Flags().Float64Var(&brush, "brush", 0, "brush radius for --strokes (default 24)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write the PNGs to this folder")
	cmd.Flags().StringSliceVar(&sinkNames, "sink", nil, "configured sinks to export to (dir, s3)")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func run(ctx context.Context, svc *studio.Service, id string, raw []byte, strokesPath string, brush float64, events chan<- studio.Event) error {
	if err := svc.LoadSource(ctx, id, raw); err != nil {
		return err
	}

	if strokesPath != "" {
		strokes, err := readStrokes(strokesPath)
		if err != nil {
			return err
		}
		if err := svc.OpenMask(ctx, id, brush); err != nil {
			return err
		}
		if err := svc.Paint(ctx, id, strokes); err != nil {
			return err
		}
		if err := svc.CommitMask(ctx, id); err != nil {
			return err
		}
	} else if err := svc.AutoRemove(ctx, id, events); err != nil {
		return err
	}

	return svc.Generate(ctx, id, events)
}

// pickSinks resolves --out and --sink. Without either, the configured folder
// sink is used.
func (c *cli) pickSinks(outDir string, names []string) (map[string]export.Sink, error) {
	sinks := make(map[string]export.Sink)
	if outDir != "" {
		dir, err := export.NewDirSink(outDir)
		if err != nil {
			return nil, err
		}
		sinks[outDir] = dir
	}
	for _, name := range names {
		s, ok := c.app.Sinks[name]
		if !ok {
			return nil, fmt.Errorf("sink %q is not configured", name)
		}
		sinks[name] = s
	}
	if len(sinks) == 0 {
		s, ok := c.app.Sinks[app.SinkDir]
		if !ok {
			return nil, fmt.Errorf("no export target: pass --out or configure export.dir")
		}
		sinks[app.SinkDir] = s
	}
	return sinks, nil
}

func readStrokes(path string) ([]studio.Stroke, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var strokes []studio.Stroke
	if err := json.Unmarshal(raw, &strokes); err != nil {
		return nil, fmt.Errorf("parse strokes %s: %w", path, err)
	}
	return strokes, nil
}

func printEvents(w io.Writer) (chan studio.Event, func()) {
	events := make(chan studio.Event, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			fmt.Fprintln(w, ev.Message)
		}
	}()
	return events, func() { <-done }
}

func sortedKeys(m map[string]export.Sink) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
