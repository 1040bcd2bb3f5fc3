package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feichai0017/paper-extractor/internal/agent/document/pdf"
	"github.com/feichai0017/paper-extractor/internal/utils/validator"
)

var infoCmd = &cobra.Command{
	Use:   "info <pdf>",
	Short: "Print PDF metadata and validation findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := pdf.NewProcessor(log).ExtractMetadata(args[0])
		if err != nil {
			return err
		}
		res, err := validator.NewDocumentValidator(log, nil).ValidatePath(args[0])
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(map[string]interface{}{
			"metadata":   meta,
			"validation": res,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal info: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
