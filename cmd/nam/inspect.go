package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/namcore/pkg/nam"
)

// modelReport is what inspect prints for one model.
type modelReport struct {
	Path               string       `json:"path"`
	Architecture       string       `json:"architecture"`
	Version            string       `json:"version"`
	SampleRate         float64      `json:"sample_rate"`
	DeclaredSampleRate bool         `json:"declared_sample_rate"`
	Weights            int          `json:"weights"`
	ReceptiveField     int          `json:"receptive_field"`
	PrewarmSamples     int          `json:"prewarm_samples"`
	Metadata           nam.Metadata `json:"metadata"`
}

func inspectCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Describe .nam model files",
		ArgsUsage: "[model.nam ...]",
		Flags: append(commonModelFlags(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print JSON",
				Destination: &asJSON,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyModelConfig(cmd, fileConfig)

			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				path, err := resolveModelPath(modelPath, modelsPath, os.Stdin, os.Stderr)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: resolve model: %v", err), 1)
				}
				paths = []string{path}
			}

			reports := make([]modelReport, 0, len(paths))
			for _, p := range paths {
				r, err := inspectModel(p)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				reports = append(reports, r)
			}

			if asJSON {
				var v any = reports
				if len(reports) == 1 {
					v = reports[0]
				}
				b, err := json.MarshalIndent(v, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(b))
				return nil
			}
			for i, r := range reports {
				if i > 0 {
					fmt.Println()
				}
				printReport(os.Stdout, r)
			}
			return nil
		},
	}
}

func inspectModel(path string) (modelReport, error) {
	h, err := nam.Load(path)
	if err != nil {
		return modelReport{}, err
	}
	defer h.Release()

	return modelReport{
		Path:               path,
		Architecture:       h.Architecture(),
		Version:            h.Version(),
		SampleRate:         h.ExpectedSampleRate(),
		DeclaredSampleRate: h.DeclaresSampleRate(),
		Weights:            h.WeightCount(),
		ReceptiveField:     h.ReceptiveField(),
		PrewarmSamples:     h.PrewarmSamples(),
		Metadata:           h.Metadata(),
	}, nil
}

func printReport(w io.Writer, r modelReport) {
	rate := fmt.Sprintf("%g Hz", r.SampleRate)
	if !r.DeclaredSampleRate {
		rate += " (not declared)"
	}
	_, _ = fmt.Fprintf(w, "Model:           %s\n", r.Path)
	_, _ = fmt.Fprintf(w, "Architecture:    %s\n", r.Architecture)
	_, _ = fmt.Fprintf(w, "Version:         %s\n", r.Version)
	_, _ = fmt.Fprintf(w, "Sample rate:     %s\n", rate)
	_, _ = fmt.Fprintf(w, "Weights:         %d\n", r.Weights)
	_, _ = fmt.Fprintf(w, "Receptive field: %d samples\n", r.ReceptiveField)
	_, _ = fmt.Fprintf(w, "Prewarm:         %d samples\n", r.PrewarmSamples)

	md := r.Metadata
	fields := []struct {
		label, value string
	}{
		{"Name", md.Name},
		{"Modeled by", md.ModeledBy},
		{"Gear", strings.TrimSpace(md.GearMake + " " + md.GearModel)},
		{"Gear type", md.GearType},
		{"Tone type", md.ToneType},
	}
	for _, f := range fields {
		if f.value != "" {
			_, _ = fmt.Fprintf(w, "%-17s%s\n", f.label+":", f.value)
		}
	}
	if md.Date != nil {
		d := md.Date
		_, _ = fmt.Fprintf(w, "%-17s%04d-%02d-%02d\n", "Date:", d.Year, d.Month, d.Day)
	}
	if md.Loudness != nil {
		_, _ = fmt.Fprintf(w, "%-17s%.2f dB\n", "Loudness:", *md.Loudness)
	}
	if md.InputLevelDBu != nil {
		_, _ = fmt.Fprintf(w, "%-17s%.2f dBu\n", "Input level:", *md.InputLevelDBu)
	}
	if md.OutputLevelDBu != nil {
		_, _ = fmt.Fprintf(w, "%-17s%.2f dBu\n", "Output level:", *md.OutputLevelDBu)
	}
}
