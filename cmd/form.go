package cmd

import (
	"fmt"

	"clipprompt/internal/client"
	"clipprompt/internal/enhance"

	"github.com/charmbracelet/huh"
)

// toneOptions prefers the relay's list and falls back to the built-in set when
// the relay could not be asked.
func toneOptions(list *client.OptionList) []huh.Option[enhance.Tone] {
	var opts []huh.Option[enhance.Tone]
	if list != nil {
		for _, o := range list.Tones {
			t, err := enhance.ParseTone(o.ID)
			if err != nil {
				continue
			}
			opts = append(opts, huh.NewOption(o.Label, t))
		}
	}
	if len(opts) > 0 {
		return opts
	}
	for _, t := range enhance.Tones {
		opts = append(opts, huh.NewOption(string(t), t))
	}
	return opts
}

func povOptions(list *client.OptionList) []huh.Option[enhance.PointOfView] {
	var opts []huh.Option[enhance.PointOfView]
	if list != nil {
		for _, o := range list.PointsOfView {
			p, err := enhance.ParsePointOfView(o.ID)
			if err != nil {
				continue
			}
			opts = append(opts, huh.NewOption(o.Label, p))
		}
	}
	if len(opts) > 0 {
		return opts
	}
	for _, p := range enhance.PointsOfView {
		opts = append(opts, huh.NewOption(p.Label(), p))
	}
	return opts
}

// providerOptions lists the providers the relay has enabled. Providers without
// a server-side key stay selectable so the relay can report the problem.
func providerOptions(list *client.ProviderList) []huh.Option[enhance.Provider] {
	if list == nil {
		return nil
	}
	var opts []huh.Option[enhance.Provider]
	for _, info := range list.Providers {
		p, err := enhance.ParseProvider(info.ID)
		if err != nil {
			continue
		}
		label := info.Name
		if !info.Available {
			label = fmt.Sprintf("%s (no key)", info.Name)
		}
		opts = append(opts, huh.NewOption(label, p))
	}
	return opts
}

// defaultProvider picks the relay's default when it parses, else the first
// built-in provider.
func defaultProvider(list *client.ProviderList) enhance.Provider {
	if list != nil {
		if p, err := enhance.ParseProvider(list.Default); err == nil {
			return p
		}
	}
	return enhance.Providers[0]
}
