package enhance

import (
	"fmt"
	"strings"
	"time"
)

type Tone string

const (
	ToneNeutral      Tone = "Neutral"
	ToneDramatic     Tone = "Dramatic"
	ToneCinematic    Tone = "Cinematic"
	ToneLighthearted Tone = "Lighthearted"
	ToneHumorous     Tone = "Humorous"
	ToneWhimsical    Tone = "Whimsical"
	ToneSerious      Tone = "Serious"
	ToneSuspenseful  Tone = "Suspenseful"
	ToneAdventurous  Tone = "Adventurous"
)

// Tones lists every supported tone in menu order.
var Tones = []Tone{
	ToneNeutral,
	ToneDramatic,
	ToneCinematic,
	ToneLighthearted,
	ToneHumorous,
	ToneWhimsical,
	ToneSerious,
	ToneSuspenseful,
	ToneAdventurous,
}

func ParseTone(s string) (Tone, error) {
	for _, t := range Tones {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported content tone: %q", s)
}

func (t Tone) Label() string {
	return strings.ToLower(string(t))
}

type PointOfView string

const (
	POVFirstPerson  PointOfView = "FirstPerson"
	POVSecondPerson PointOfView = "SecondPerson"
	POVThirdPerson  PointOfView = "ThirdPerson"
	POVAerial       PointOfView = "Aerial"
	POVDolly        PointOfView = "Dolly"
	POVStaticShot   PointOfView = "StaticShot"
	POVTrackingShot PointOfView = "TrackingShot"
	POVDutchAngle   PointOfView = "DutchAngle"
)

var PointsOfView = []PointOfView{
	POVFirstPerson,
	POVSecondPerson,
	POVThirdPerson,
	POVAerial,
	POVDolly,
	POVStaticShot,
	POVTrackingShot,
	POVDutchAngle,
}

var povLabels = map[PointOfView]string{
	POVFirstPerson:  "first-person (POV)",
	POVSecondPerson: "second-person",
	POVThirdPerson:  "third-person",
	POVAerial:       "aerial",
	POVDolly:        "dolly",
	POVStaticShot:   "static shot",
	POVTrackingShot: "tracking shot",
	POVDutchAngle:   "dutch angle",
}

// ParsePointOfView accepts either the identifier ("ThirdPerson") or the
// human label ("third-person").
func ParsePointOfView(s string) (PointOfView, error) {
	s = strings.TrimSpace(s)
	for _, p := range PointsOfView {
		if strings.EqualFold(string(p), s) || strings.EqualFold(povLabels[p], s) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported point of view: %q", s)
}

func (p PointOfView) Label() string {
	if l, ok := povLabels[p]; ok {
		return l
	}
	return string(p)
}

type Provider string

const (
	ProviderGemini   Provider = "gemini"
	ProviderOpenAI   Provider = "openai-gpt"
	ProviderGroq     Provider = "groq"
	ProviderDeepSeek Provider = "deepseek"
	ProviderClaude   Provider = "claude"
)

// Family groups providers that share a prompt template.
type Family string

const (
	FamilyGemini Family = "gemini"
	FamilyChat   Family = "chat"
)

type providerInfo struct {
	name   string
	family Family
}

// Providers lists every supported backend. The first entry is the default.
var Providers = []Provider{
	ProviderGemini,
	ProviderOpenAI,
	ProviderGroq,
	ProviderDeepSeek,
	ProviderClaude,
}

var providerInfos = map[Provider]providerInfo{
	ProviderGemini:   {name: "Google Gemini", family: FamilyGemini},
	ProviderOpenAI:   {name: "OpenAI GPT", family: FamilyChat},
	ProviderGroq:     {name: "Groq", family: FamilyChat},
	ProviderDeepSeek: {name: "DeepSeek", family: FamilyChat},
	ProviderClaude:   {name: "Anthropic Claude", family: FamilyChat},
}

func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := providerInfos[p]; !ok {
		return "", fmt.Errorf("unsupported model: %q", s)
	}
	return p, nil
}

func (p Provider) Name() string {
	if info, ok := providerInfos[p]; ok {
		return info.name
	}
	return string(p)
}

func (p Provider) Family() Family {
	return providerInfos[p].family
}

// Request is the validated form of an enhancement call.
type Request struct {
	Idea        string
	Tone        Tone
	PointOfView PointOfView
	Provider    Provider
}

// RawRequest mirrors the wire body before validation.
type RawRequest struct {
	UserPrompt    string `json:"userPrompt"`
	ContentTone   string `json:"contentTone"`
	POV           string `json:"pov"`
	SelectedModel string `json:"selectedModel,omitempty"`
}

type Result struct {
	Text     string
	Provider Provider
	Model    string
	Elapsed  time.Duration
}
