package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rareaward/formflow/pkg/nomination"
	"github.com/rareaward/formflow/pkg/validation"
)

var validateValues string

var validateCmd = &cobra.Command{
	Use:   "validate [definition]",
	Short: "Check a form definition, and optionally saved answers against it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			def nomination.Definition
			err error
		)
		if len(args) == 1 {
			loader := nomination.NewLoader(nomination.LoaderOptions{})
			def, err = loader.Load(cmd.Context(), nomination.SourceFromFile(args[0]))
		} else {
			cfg, cfgErr := loadConfig()
			if cfgErr != nil {
				return cfgErr
			}
			def, err = loadDefinition(cmd.Context(), cfg)
		}
		if err != nil {
			return err
		}
		fmt.Printf("definition %s: %d steps, %d fields\n", def.ID, def.StepCount(), len(def.Fields()))

		if validateValues == "" {
			return nil
		}
		data, err := os.ReadFile(validateValues)
		if err != nil {
			return fmt.Errorf("reading values %s: %w", validateValues, err)
		}
		var values map[string]any
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("parsing values %s: %w", validateValues, err)
		}

		result := validation.New().ValidateAll(def, values)
		for _, field := range def.Fields() {
			fr, ok := result.Fields[field.Name]
			if !ok || fr.Valid {
				continue
			}
			for _, msg := range fr.Messages {
				fmt.Printf("  %s: %s\n", field.Name, msg)
			}
		}
		fmt.Printf("completion: %d%%\n", result.Completion())
		if !result.Valid {
			return fmt.Errorf("%d of %d required fields valid", result.RequiredValid, result.RequiredTotal)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateValues, "values", "", "JSON file with form values to check")
	rootCmd.AddCommand(validateCmd)
}
