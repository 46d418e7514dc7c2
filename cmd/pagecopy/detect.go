package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pagecopy/internal/detect"
	"pagecopy/internal/gateway/config"
	"pagecopy/internal/types"
	"pagecopy/internal/util/jsonutil"
)

var (
	detectIn  string
	detectOut string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Mark the editable slots of an HTML template",
	Long: `Parse an HTML template, mark every detected slot with data-slot and
data-slot-type attributes, and print the slot manifest as JSON.

Re-running detect on its own output yields the same manifest.`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringVarP(&detectIn, "input", "i", "", "HTML template to scan (required)")
	detectCmd.Flags().StringVarP(&detectOut, "output", "o", "", "write the marked HTML here")
	_ = detectCmd.MarkFlagRequired("input")
}

func runDetect(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	res, err := detectFile(detect.New(cfg.Detect.Classifier), detectIn)
	if err != nil {
		return err
	}
	if detectOut != "" {
		if err := os.WriteFile(detectOut, []byte(res.MarkedHTML), 0o644); err != nil {
			return fmt.Errorf("write marked html: %w", err)
		}
	}
	return writeJSON(cmd.OutOrStdout(), res.Manifest())
}

type slotDetector interface {
	Detect(src string) (*types.DetectionResult, error)
}

func detectFile(d slotDetector, path string) (*types.DetectionResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	res, err := d.Detect(string(raw))
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", path, err)
	}
	return res, nil
}

func writeJSON(w io.Writer, v any) error {
	raw, err := jsonutil.MarshalNoEscapeIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
