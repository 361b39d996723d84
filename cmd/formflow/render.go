package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rareaward/formflow/pkg/render"
	"github.com/rareaward/formflow/pkg/renderers/htmlform"
	"github.com/rareaward/formflow/pkg/renderers/printable"
)

var (
	renderName   string
	renderOut    string
	renderValues string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the nomination form to HTML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		def, err := loadDefinition(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		registry := render.NewRegistry()
		htmlRenderer, err := htmlform.New()
		if err != nil {
			return err
		}
		registry.MustRegister(htmlRenderer)
		printRenderer, err := printable.New()
		if err != nil {
			return err
		}
		registry.MustRegister(printRenderer)

		renderer, err := registry.Get(renderName)
		if err != nil {
			return fmt.Errorf("unknown renderer %q (have %v)", renderName, registry.List())
		}

		options := render.Options{}
		if renderValues != "" {
			data, err := os.ReadFile(renderValues)
			if err != nil {
				return fmt.Errorf("reading values %s: %w", renderValues, err)
			}
			if err := json.Unmarshal(data, &options.Values); err != nil {
				return fmt.Errorf("parsing values %s: %w", renderValues, err)
			}
		}

		out, err := renderer.Render(cmd.Context(), def, options)
		if err != nil {
			return err
		}
		if renderOut == "" || renderOut == "-" {
			_, err = os.Stdout.Write(out)
			return err
		}
		return os.WriteFile(renderOut, out, 0o644)
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderName, "renderer", "htmlform", "renderer to use (htmlform, printable)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "-", "output file, - for stdout")
	renderCmd.Flags().StringVar(&renderValues, "values", "", "JSON file with form values to pre-fill")
	rootCmd.AddCommand(renderCmd)
}
