package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"clipprompt/internal/enhance"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Clipprompt",
	Long:  `Pick providers, store their API keys in .env and write a starter config.yaml.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// providerKeys is the .env variable and signup page for each provider.
var providerKeys = map[enhance.Provider]struct {
	env string
	url string
}{
	enhance.ProviderGemini:   {"GEMINI_API_KEY", "https://aistudio.google.com/apikey"},
	enhance.ProviderOpenAI:   {"OPENAI_API_KEY", "https://platform.openai.com/api-keys"},
	enhance.ProviderGroq:     {"GROQ_API_KEY", "https://console.groq.com/keys"},
	enhance.ProviderDeepSeek: {"DEEPSEEK_API_KEY", "https://platform.deepseek.com/api_keys"},
	enhance.ProviderClaude:   {"ANTHROPIC_API_KEY", "https://console.anthropic.com/settings/keys"},
}

type setupChoices struct {
	providers []enhance.Provider
	multi     bool
	secrets   string
	storage   string
	env       map[string]string
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎬 Clipprompt Setup"))

	choices := &setupChoices{env: make(map[string]string)}

	steps := []struct {
		name string
		fn   func(*setupChoices) error
	}{
		{"Choosing providers", chooseProviders},
		{"Configuring Google Cloud", configureGCP},
		{"Configuring environment", configureEnv},
		{"Writing config", writeConfigFile},
	}

	for _, step := range steps {
		if err := step.fn(choices); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	printNextSteps(choices)
	return nil
}

func chooseProviders(c *setupChoices) error {
	var options []huh.Option[enhance.Provider]
	for _, p := range enhance.Providers {
		options = append(options, huh.NewOption(p.Name(), p))
	}
	c.providers = []enhance.Provider{enhance.ProviderGemini}
	c.storage = "file"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[enhance.Provider]().
				Title("Providers").
				Description("The first one becomes the default").
				Options(options...).
				Value(&c.providers).
				Validate(func(ps []enhance.Provider) error {
					if len(ps) == 0 {
						return fmt.Errorf("pick at least one provider")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Let users pick the model?").
				Description("Requests must then name a provider").
				Value(&c.multi),
			huh.NewSelect[string]().
				Title("Where should the last prompt be saved?").
				Options(
					huh.NewOption("JSON file", "file"),
					huh.NewOption("SQLite with history", "sqlite"),
					huh.NewOption("Google Cloud Storage", "gcs"),
				).
				Value(&c.storage),
		),
	)
	return form.Run()
}

func configureGCP(c *setupChoices) error {
	c.secrets = "env"

	needsGCP := c.storage == "gcs"
	if !needsGCP {
		if err := huh.NewConfirm().
			Title("Read provider keys from Secret Manager?").
			Description("Keys stay out of .env and are fetched per request").
			Value(&needsGCP).
			Run(); err != nil {
			return err
		}
		if needsGCP {
			c.secrets = "both"
		}
	}
	if !needsGCP {
		return nil
	}

	if !commandExists("gcloud") {
		fmt.Println(warnStyle.Render("gcloud CLI not found - install from https://cloud.google.com/sdk/docs/install"))
		return nil
	}

	project := getActiveProject()
	if err := huh.NewInput().
		Title("Google Cloud project").
		Value(&project).
		Validate(required("Project ID")).
		Run(); err != nil {
		return err
	}
	c.env["GOOGLE_CLOUD_PROJECT"] = strings.TrimSpace(project)

	apis := []string{"storage.googleapis.com"}
	if c.secrets != "env" {
		apis = append(apis, "secretmanager.googleapis.com")
	}
	if err := enableGCPAPIs(project, apis); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
	}
	return nil
}

func getActiveProject() string {
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func enableGCPAPIs(project string, apis []string) error {
	return runWithSpinner("Enabling APIs", func() error {
		args := append([]string{"services", "enable"}, apis...)
		args = append(args, "--project", project)
		return runSetupCmd("gcloud", args...)
	})
}

func configureEnv(c *setupChoices) error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	values := make(map[enhance.Provider]*string, len(c.providers))
	var fields []huh.Field
	for _, p := range c.providers {
		key := providerKeys[p]
		v := new(string)
		values[p] = v
		input := huh.NewInput().
			Title(p.Name() + " API Key").
			Description(key.url).
			EchoMode(huh.EchoModePassword).
			Value(v)
		if c.secrets == "env" {
			input = input.Validate(required(p.Name() + " API Key"))
		}
		fields = append(fields, input)
	}

	var relayKey string
	fields = append(fields, huh.NewInput().
		Title("Relay API key (optional)").
		Description("Clients must send it as X-API-Key").
		EchoMode(huh.EchoModePassword).
		Value(&relayKey))

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	for p, v := range values {
		if s := strings.TrimSpace(*v); s != "" {
			c.env[providerKeys[p].env] = s
		}
	}
	if s := strings.TrimSpace(relayKey); s != "" {
		c.env["RELAY_API_KEY"] = s
	}

	return writeEnvFile(c.env)
}

func writeEnvFile(env map[string]string) error {
	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	order := []string{"GOOGLE_CLOUD_PROJECT", "RELAY_API_KEY"}
	for _, p := range enhance.Providers {
		order = append(order, providerKeys[p].env)
	}

	for _, key := range order {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	return nil
}

type starterConfig struct {
	Relay struct {
		MultiProvider   bool     `yaml:"multi_provider"`
		DefaultProvider string   `yaml:"default_provider"`
		Enabled         []string `yaml:"enabled"`
	} `yaml:"relay"`
	Secrets struct {
		Source string `yaml:"source"`
	} `yaml:"secrets"`
	Storage struct {
		Backend string `yaml:"backend"`
		Bucket  string `yaml:"bucket,omitempty"`
	} `yaml:"storage"`
}

func buildStarterConfig(c *setupChoices) ([]byte, error) {
	var sc starterConfig
	for _, p := range c.providers {
		sc.Relay.Enabled = append(sc.Relay.Enabled, string(p))
	}
	if len(sc.Relay.Enabled) > 0 {
		sc.Relay.DefaultProvider = sc.Relay.Enabled[0]
	}
	sc.Relay.MultiProvider = c.multi
	sc.Secrets.Source = c.secrets
	sc.Storage.Backend = c.storage
	if c.storage == "gcs" {
		sc.Storage.Bucket = c.env["GOOGLE_CLOUD_PROJECT"] + "-clipprompt"
	}
	return yaml.Marshal(&sc)
}

func writeConfigFile(c *setupChoices) error {
	if _, err := os.Stat("config.yaml"); err == nil {
		fmt.Println(infoStyle.Render("Kept existing config.yaml"))
		return nil
	}

	data, err := buildStarterConfig(c)
	if err != nil {
		return err
	}
	if err := os.WriteFile("config.yaml", data, 0644); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Created config.yaml"))
	return nil
}

func printNextSteps(c *setupChoices) {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	step := 1
	if c.storage == "gcs" {
		fmt.Printf("  %d. Create the bucket named in config.yaml\n", step)
		step++
	}
	fmt.Printf("  %d. Run: clipprompt serve\n", step)
	fmt.Printf("  %d. In another terminal: clipprompt enhance\n", step+1)
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
