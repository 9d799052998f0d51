package playground

import (
	"fmt"
)

const (
	CursorShapeLine      = "line"
	CursorShapeBlock     = "block"
	CursorShapeUnderline = "underline"

	ThemeDark  = "dark"
	ThemeLight = "light"

	CredentialsOmit       = "omit"
	CredentialsInclude    = "include"
	CredentialsSameOrigin = "same-origin"
)

const DefaultFontFamily = "'Source Code Pro', 'Consolas', 'Inconsolata', 'Droid Sans Mono', 'Monaco', monospace"

// Settings are the presentation and behavior toggles handed to the GraphQL Playground console.
type Settings struct {
	General  GeneralSettings  `mapstructure:"general"`
	Editor   EditorSettings   `mapstructure:"editor"`
	Prettier PrettierSettings `mapstructure:"prettier"`
	Request  RequestSettings  `mapstructure:"request"`
	Tracing  TracingSettings  `mapstructure:"tracing"`
}

type GeneralSettings struct {
	// BetaUpdates enables the console's self-update prompts
	BetaUpdates bool `mapstructure:"beta_updates"`
}

type EditorSettings struct {
	CursorShape string `mapstructure:"cursor_shape"`
	FontSize    int    `mapstructure:"font_size"`
	FontFamily  string `mapstructure:"font_family"`
	Theme       string `mapstructure:"theme"`
	// ReuseHeaders persists previously entered HTTP headers across reloads
	ReuseHeaders bool `mapstructure:"reuse_headers"`
}

type PrettierSettings struct {
	PrintWidth int `mapstructure:"print_width"`
}

type RequestSettings struct {
	// Credentials is the fetch credentials mode of the console's own requests, "omit" never sends cookies
	Credentials string `mapstructure:"credentials"`
}

type TracingSettings struct {
	HideTracingResponse bool `mapstructure:"hide_tracing_response"`
}

func DefaultSettings() Settings {
	return Settings{
		General: GeneralSettings{
			BetaUpdates: false,
		},
		Editor: EditorSettings{
			CursorShape:  CursorShapeUnderline,
			FontSize:     20,
			FontFamily:   DefaultFontFamily,
			Theme:        ThemeLight,
			ReuseHeaders: true,
		},
		Prettier: PrettierSettings{
			PrintWidth: 80,
		},
		Request: RequestSettings{
			Credentials: CredentialsOmit,
		},
		Tracing: TracingSettings{
			HideTracingResponse: true,
		},
	}
}

// Map returns the settings keyed the way GraphQL Playground expects them.
func (s Settings) Map() map[string]interface{} {
	return map[string]interface{}{
		"general.betaUpdates":         s.General.BetaUpdates,
		"editor.cursorShape":          s.Editor.CursorShape,
		"editor.fontSize":             s.Editor.FontSize,
		"editor.fontFamily":           s.Editor.FontFamily,
		"editor.theme":                s.Editor.Theme,
		"editor.reuseHeaders":         s.Editor.ReuseHeaders,
		"prettier.printWidth":         s.Prettier.PrintWidth,
		"request.credentials":         s.Request.Credentials,
		"tracing.hideTracingResponse": s.Tracing.HideTracingResponse,
	}
}

func (s Settings) Validate() error {
	if err := oneOf("editor.cursorShape", s.Editor.CursorShape, CursorShapeLine, CursorShapeBlock, CursorShapeUnderline); err != nil {
		return err
	}
	if err := oneOf("editor.theme", s.Editor.Theme, ThemeDark, ThemeLight); err != nil {
		return err
	}
	if err := oneOf("request.credentials", s.Request.Credentials, CredentialsOmit, CredentialsInclude, CredentialsSameOrigin); err != nil {
		return err
	}
	if s.Editor.FontSize <= 0 {
		return fmt.Errorf("editor.fontSize must be positive, got %d", s.Editor.FontSize)
	}
	if s.Prettier.PrintWidth <= 0 {
		return fmt.Errorf("prettier.printWidth must be positive, got %d", s.Prettier.PrintWidth)
	}
	if s.Editor.FontFamily == "" {
		return fmt.Errorf("editor.fontFamily must not be empty")
	}
	return nil
}

func oneOf(setting, value string, allowed ...string) error {
	for _, candidate := range allowed {
		if value == candidate {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported value %q, expected one of %q", setting, value, allowed)
}
