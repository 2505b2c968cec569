package cmd

import (
	"errors"
	"fmt"

	"clipprompt/internal/app"
	"clipprompt/internal/client"
	"clipprompt/internal/storage"
	"clipprompt/pkg/config"

	"github.com/spf13/cobra"
)

var (
	lastHistory int
	lastCopy    bool
)

var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Show the last saved prompt",
	Long: `Print the last saved prompt. With --history, list earlier prompts from
stores that keep them (sqlite, gcs).`,
	RunE: runLast,
}

func init() {
	lastCmd.Flags().IntVarP(&lastHistory, "history", "n", 0, "Show up to N earlier prompts")
	lastCmd.Flags().BoolVarP(&lastCopy, "copy", "c", false, "Copy the last prompt to the clipboard")
	rootCmd.AddCommand(lastCmd)
}

func runLast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, closeStore, err := app.BuildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	if lastHistory > 0 {
		hs, ok := store.(storage.HistoryStore)
		if !ok {
			return fmt.Errorf("storage backend %q does not keep history", cfg.Storage.Backend)
		}
		entries, err := hs.History(ctx, storage.LastPromptKey, lastHistory)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println(infoStyle.Render("No saved prompts yet"))
			return nil
		}
		for _, e := range entries {
			fmt.Println(titleStyle.Render(e.SavedAt.Local().Format("2006-01-02 15:04:05")))
			fmt.Println(e.Value)
		}
		return nil
	}

	ctrl := client.NewController(nil, client.SystemClipboard{}, store)
	defer ctrl.Close()

	text, err := ctrl.LoadPersisted(ctx)
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Println(infoStyle.Render("No saved prompt yet"))
		return nil
	}
	fmt.Println(text)

	if lastCopy {
		ctrl.EditGeneratedText(text)
		if err := ctrl.Copy(); err != nil {
			return errors.New(ctrl.State().LastError)
		}
		fmt.Println(successStyle.Render("✓ Copied to clipboard"))
	}
	return nil
}
