package config

const (
	defaultStateDir            = "~/.local/share/themesubmit"
	defaultLogDir              = "~/.local/share/themesubmit/logs"
	defaultBaseBranch          = "main"
	defaultGitHubAPIURL        = "https://api.github.com"
	defaultGitHubWebURL        = "https://github.com"
	defaultRawContentURL       = "https://raw.githubusercontent.com"
	defaultCallbackBind        = "127.0.0.1:8976"
	defaultRequestTimeout      = 30
	defaultMaxFileBytes        = 20 << 20
	defaultBranchPrefix        = "submit"
	defaultMaxDescriptionRunes = 500
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

var defaultScopes = []string{"public_repo"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Repository: Repository{
			BaseBranch: defaultBaseBranch,
		},
		GitHub: GitHub{
			APIURL:         defaultGitHubAPIURL,
			WebURL:         defaultGitHubWebURL,
			Scopes:         append([]string(nil), defaultScopes...),
			CallbackBind:   defaultCallbackBind,
			RequestTimeout: defaultRequestTimeout,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Submission: Submission{
			MaxFileBytes:        defaultMaxFileBytes,
			BranchPrefix:        defaultBranchPrefix,
			MaxDescriptionRunes: defaultMaxDescriptionRunes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
