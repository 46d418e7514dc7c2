package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pagecopy/internal/batch"
	"pagecopy/internal/gateway/app"
	"pagecopy/internal/orchestrator"
	"pagecopy/internal/types"
)

var (
	generateBrief    string
	generateTemplate string
	generateOut      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write copy for every slot of a template",
	Long: `Detect the slots of a template, synthesize a narrative from the brief,
and map it onto the slots. The result is printed as JSON; slots that could
not be filled are listed under slotErrors.

The brief is YAML:

  productName: Mealwise
  description: A weekly meal planner for busy parents.
  benefits: [Saves an hour a day, Less food waste]
  audience:
    ageRange: 30-45
    tone: friendly`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateBrief, "brief", "b", "", "YAML brief (required)")
	generateCmd.Flags().StringVarP(&generateTemplate, "template", "t", "", "HTML template (required)")
	generateCmd.Flags().StringVarP(&generateOut, "output", "o", "", "write the result JSON here instead of stdout")
	_ = generateCmd.MarkFlagRequired("brief")
	_ = generateCmd.MarkFlagRequired("template")
}

func readBrief(path string) (types.Brief, error) {
	var brief types.Brief
	raw, err := os.ReadFile(path)
	if err != nil {
		return brief, fmt.Errorf("read brief: %w", err)
	}
	if err := yaml.Unmarshal(raw, &brief); err != nil {
		return brief, fmt.Errorf("parse brief %s: %w", path, err)
	}
	return brief, nil
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, lg, err := loadConfig()
	if err != nil {
		return err
	}
	defer lg.Sync()

	brief, err := readBrief(generateBrief)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	core, err := app.NewCore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer core.Close()

	detected, err := detectFile(core.Detector, generateTemplate)
	if err != nil {
		return err
	}
	res, err := core.Orchestrator.Generate(ctx, orchestrator.GenerateRequest{
		Brief:  brief,
		Fields: detected.Manifest(),
	}, func(ev batch.Event) {
		if ev.Kind != batch.BatchStarted {
			lg.Info("batch", "kind", ev.Kind, "batch", ev.Batch, "total", ev.Total, "filled", ev.Filled, "missing", ev.Missing)
		}
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if generateOut != "" {
		f, err := os.Create(generateOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := writeJSON(out, res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%d slot(s) not filled", len(res.SlotErrors))
	}
	return nil
}
