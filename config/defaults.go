package config

import "promptbuddies/browser"

const (
	DefaultTargetURL = "https://urev.online.mbank.pl/pl/Login"
	DefaultSeedText  = "Cześć! Jak mogę Ci pomóc w związku z usługami mBanku?"
	DefaultModel     = "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free"
)

func Default() *Config {
	return &Config{
		Target: TargetConfig{
			URL:      DefaultTargetURL,
			OTP:      "77777777",
			SeedText: DefaultSeedText,
		},
		LLM: LLMConfig{
			Provider:    "together",
			Model:       DefaultModel,
			Temperature: 0.7,
			Judge: JudgeConfig{
				Temperature: 0.2,
			},
		},
		Personas: PersonasConfig{
			Cooperative: "Bot Calming - PL",
			Adversarial: "Active Manipulation - PL",
			AddExamples: true,
		},
		Tools: ToolsConfig{
			Enabled:  true,
			SkipRows: 24,
		},
		Browser: BrowserConfig{
			PollIntervalMs:      1000,
			NavigationTimeoutMs: 30000,
			Selectors:           browser.DefaultSelectors(),
		},
		Session: SessionConfig{
			RestartDelayMs:        5000,
			MaxGenerationFailures: 3,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// GenerateTemplate returns the commented settings file written on first
// run. Its values match Default.
func GenerateTemplate() string {
	return `# promptbuddies configuration
# Location: ~/.config/promptbuddies/settings.toml
# This file uses TOML format: https://toml.io

[target]
url = "https://urev.online.mbank.pl/pl/Login"
# Credentials are better supplied through PB_LOGIN and PB_PASSWORD
login = ""
password = ""
otp = "77777777"
# Stands in for the chat greeting when writing the first message
seed_text = "Cześć! Jak mogę Ci pomóc w związku z usługami mBanku?"

[llm]
# ollama, openai, together, openrouter or anthropic
provider = "together"
# Empty uses the provider's public endpoint
base_url = ""
# Empty falls back to PB_LLM_API_KEY, then TOGETHER_API_KEY (or the
# provider's own variable)
api_key = ""
model = "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free"
temperature = 0.7
# 0 leaves the backend default
max_tokens = 0
# Number of recent turns sent with each request, 0 sends everything
window = 0
# Tool rounds allowed per message, 0 is unlimited and leaves the
# backend's context limit as the only bound
max_tool_rounds = 0

# Strategy selector; empty fields are taken from [llm]
[llm.judge]
provider = ""
model = ""
temperature = 0.2

[personas]
# Directory with system_prompts.json and examples.json, empty for built-in
catalog = ""
cooperative = "Bot Calming - PL"
adversarial = "Active Manipulation - PL"
add_examples = true

[tools]
enabled = true
# Bank statement export the account tools read from
transactions_csv = ""
skip_rows = 24
# Run an external MCP tool server instead of the built-in tools
# command = "promptbuddies"
# args = ["tools", "serve"]

[browser]
headless = false
# Attach to a running Chrome instead of launching one
debugger_url = ""
poll_interval_ms = 1000
navigation_timeout_ms = 30000

# Page hooks can be overridden one by one, e.g.
# [browser.selectors.textbox]
# css = '[data-test-id="chat:textbox"]'

[session]
# Defaults to ~/.local/share/promptbuddies
data_dir = ""
# 0 restarts forever
max_restarts = 0
restart_delay_ms = 5000
max_generation_failures = 3

[log]
# Also enabled by PB_DEBUG=1; writes <data_dir>/debug.log
debug = false
level = "info"
file = ""
`
}
