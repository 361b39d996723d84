package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rareaward/formflow/pkg/prompt"
	"github.com/rareaward/formflow/pkg/session"
	"github.com/rareaward/formflow/pkg/storage"
	"github.com/rareaward/formflow/pkg/submit"
	"github.com/rareaward/formflow/pkg/validation"
)

var fillFresh bool

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill out the nomination interactively and submit it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger()

		def, err := loadDefinition(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		backend, err := storage.OpenSQLite(cfg.StoragePath, cfg.StorageQuotaBytes)
		if err != nil {
			return fmt.Errorf("opening storage %s: %w", cfg.StoragePath, err)
		}
		defer backend.Close()
		store := storage.New(
			storage.WithBackend(storage.ScopePersistent, backend),
			storage.WithLogger(log),
		)

		client, err := submit.NewHTTPClient(cfg.Endpoint, submit.WithTimeout(cfg.SubmitTimeout))
		if err != nil {
			return err
		}

		engine := validation.New()
		sess := session.New(def,
			session.WithStorage(store),
			session.WithValidator(engine),
			session.WithClient(client),
			session.WithLogger(log),
			session.WithDraftCap(cfg.DraftCap),
			session.WithAutosaveDebounce(cfg.AutosaveDebounce),
			session.WithRedirectDelay(cfg.RedirectDelay),
			session.WithConfirmationURL(cfg.ConfirmationURL),
		)
		defer sess.Close()

		if !fillFresh && sess.RestoreAutosave() {
			log.Info().Int("step", sess.Step()).Msg("restored autosaved progress")
		}

		walker := prompt.NewWalker(prompt.WithValidator(engine))
		err = walker.Run(cmd.Context(), sess)
		switch {
		case errors.Is(err, prompt.ErrAborted), errors.Is(err, prompt.ErrDeclined):
			// Keep whatever was entered so the next run can resume.
			sess.FlushAutosave()
			fmt.Println("Progress saved. Run fill again to resume.")
			return nil
		case err != nil:
			return err
		}
		return nil
	},
}

func init() {
	fillCmd.Flags().BoolVar(&fillFresh, "fresh", false, "ignore autosaved progress and start over")
	rootCmd.AddCommand(fillCmd)
}
