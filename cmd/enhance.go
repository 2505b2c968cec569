package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clipprompt/internal/app"
	"clipprompt/internal/client"
	"clipprompt/internal/enhance"
	"clipprompt/pkg/config"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	enhanceIdea     string
	enhanceTone     string
	enhancePOV      string
	enhanceProvider string
	enhanceRelay    string
	enhanceCopy     bool
	enhanceSave     bool
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Enhance an idea into a video prompt",
	Long: `Open the prompt form: enter an idea, pick a tone and point of view, and get
an enhanced prompt back from the relay. With --idea the form is skipped and the
prompt is printed to stdout.`,
	RunE: runEnhance,
}

func init() {
	enhanceCmd.Flags().StringVarP(&enhanceIdea, "idea", "i", "", "Idea to enhance (skips the form)")
	enhanceCmd.Flags().StringVarP(&enhanceTone, "tone", "t", string(enhance.ToneNeutral), "Content tone")
	enhanceCmd.Flags().StringVarP(&enhancePOV, "pov", "p", string(enhance.POVThirdPerson), "Point of view")
	enhanceCmd.Flags().StringVarP(&enhanceProvider, "provider", "m", "", "Provider, when the relay allows choosing")
	enhanceCmd.Flags().StringVar(&enhanceRelay, "relay", "", "Relay URL (overrides client.relay_url)")
	enhanceCmd.Flags().BoolVarP(&enhanceCopy, "copy", "c", false, "Copy the result to the clipboard")
	enhanceCmd.Flags().BoolVarP(&enhanceSave, "save", "s", false, "Save the result as the last prompt")
	rootCmd.AddCommand(enhanceCmd)
}

func runEnhance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if enhanceRelay != "" {
		cfg.Client.RelayURL = enhanceRelay
	}

	store, closeStore, err := app.BuildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	relay := client.NewRelayClient(cfg.Client.RelayURL, client.RelayOptions{
		APIKey:  cfg.RelayAPIKey,
		Timeout: cfg.Client.Timeout,
	})

	providers, err := relay.Providers(ctx)
	if err != nil {
		slog.Warn("Could not list relay providers", "relay", cfg.Client.RelayURL, "error", err)
	}
	multi := providers != nil && providers.MultiProvider
	if multi {
		relay = client.NewRelayClient(cfg.Client.RelayURL, client.RelayOptions{
			APIKey:       cfg.RelayAPIKey,
			Timeout:      cfg.Client.Timeout,
			SendProvider: true,
		})
	}

	ctrl := client.NewController(relay, client.SystemClipboard{}, store,
		client.WithSavedNoticeDuration(cfg.Client.SavedNoticeDuration),
		client.WithProvider(defaultProvider(providers)),
		client.WithLogger(slog.Default()),
	)
	defer ctrl.Close()

	if err := ctrl.Start(ctx); err != nil {
		slog.Warn("Could not restore last prompt", "error", err)
	}

	if enhanceIdea != "" {
		return enhanceOnce(ctx, ctrl)
	}

	options, err := relay.Options(ctx)
	if err != nil {
		slog.Debug("Using built-in options", "error", err)
	}
	return enhanceInteractive(ctx, ctrl, options, providers, multi)
}

func enhanceOnce(ctx context.Context, ctrl *client.Controller) error {
	tone, err := enhance.ParseTone(enhanceTone)
	if err != nil {
		return err
	}
	pov, err := enhance.ParsePointOfView(enhancePOV)
	if err != nil {
		return err
	}

	ctrl.SetIdea(enhanceIdea)
	ctrl.SetTone(tone)
	ctrl.SetPointOfView(pov)
	if enhanceProvider != "" {
		p, err := enhance.ParseProvider(enhanceProvider)
		if err != nil {
			return err
		}
		ctrl.SetProvider(p)
	}

	text, err := ctrl.Submit(ctx)
	if errors.Is(err, client.ErrBlankIdea) {
		return errors.New("idea must not be blank")
	}
	if err != nil {
		return errors.New(ctrl.State().LastError)
	}

	fmt.Println(text)

	if enhanceCopy {
		if err := ctrl.Copy(); err != nil {
			return errors.New(ctrl.State().LastError)
		}
	}
	if enhanceSave {
		return ctrl.Persist(ctx)
	}
	return nil
}

func enhanceInteractive(ctx context.Context, ctrl *client.Controller, options *client.OptionList, providers *client.ProviderList, multi bool) error {
	fmt.Println(titleStyle.Render("🎬 Video Prompt Enhancer"))

	if last := ctrl.State().GeneratedText; last != "" {
		fmt.Println(infoStyle.Render("Last prompt:"))
		fmt.Println(last)
		fmt.Println()
	}

	for {
		if err := fillForm(ctrl, options, providers, multi); err != nil {
			return err
		}

		var text string
		err := runWithSpinner("Enhancing prompt", func() error {
			var err error
			text, err = ctrl.Submit(ctx)
			return err
		})
		switch {
		case errors.Is(err, client.ErrBlankIdea):
			fmt.Println(warnStyle.Render("Enter an idea first"))
			continue
		case err != nil:
			fmt.Println(warnStyle.Render(ctrl.State().LastError))
		default:
			if err := reviewResult(ctx, ctrl, text); err != nil {
				return err
			}
		}

		var again bool
		if err := huh.NewConfirm().
			Title("Enhance another idea?").
			Value(&again).
			Run(); err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

func fillForm(ctrl *client.Controller, options *client.OptionList, providers *client.ProviderList, multi bool) error {
	state := ctrl.State()
	idea := state.Idea
	tone := state.Tone
	pov := state.PointOfView
	provider := state.Provider

	fields := []huh.Field{
		huh.NewText().
			Title("Your idea").
			Placeholder("A golden retriever chasing bubbles in a park").
			Value(&idea),
		huh.NewSelect[enhance.Tone]().
			Title("Content tone").
			Options(toneOptions(options)...).
			Value(&tone),
		huh.NewSelect[enhance.PointOfView]().
			Title("Point of view").
			Options(povOptions(options)...).
			Value(&pov),
	}
	if opts := providerOptions(providers); multi && len(opts) > 0 {
		fields = append(fields, huh.NewSelect[enhance.Provider]().
			Title("Model").
			Options(opts...).
			Value(&provider))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	ctrl.SetIdea(strings.TrimSpace(idea))
	ctrl.SetTone(tone)
	ctrl.SetPointOfView(pov)
	ctrl.SetProvider(provider)
	return nil
}

func reviewResult(ctx context.Context, ctrl *client.Controller, text string) error {
	edited := text
	copyIt := true
	saveIt := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Enhanced prompt").
				Description("Edit before copying if you like").
				Lines(10).
				Value(&edited),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Copy to clipboard?").
				Value(&copyIt),
			huh.NewConfirm().
				Title("Save as last prompt?").
				Value(&saveIt),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if edited != text {
		ctrl.EditGeneratedText(edited)
	}

	if copyIt {
		if !(client.SystemClipboard{}).Available() {
			fmt.Println(warnStyle.Render("No clipboard utility found"))
		} else if err := ctrl.Copy(); err != nil {
			fmt.Println(warnStyle.Render(ctrl.State().LastError))
		} else {
			fmt.Println(successStyle.Render("✓ Copied to clipboard"))
		}
	}

	if saveIt {
		if err := ctrl.Persist(ctx); err != nil {
			fmt.Println(warnStyle.Render(ctrl.State().LastError))
		} else {
			fmt.Println(successStyle.Render("✓ " + ctrl.State().SavedNotice))
		}
	}

	fmt.Println()
	fmt.Println(ctrl.State().GeneratedText)
	return nil
}
