package spec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifier(t *testing.T) {
	tests := map[string]string{
		"Weather Bot":        "weather_bot",
		"  Weather   Bot  ":  "weather_bot",
		"my  tool":           "my_tool",
		"Tab\tand\nnewline":  "tab_and_newline",
		"already_snake_case": "already_snake_case",
		"Weather-Bot":        "weather_bot",
		"Bot 2.0":            "bot_2_0",
		`Bot"; drop`:         "bot_drop",
		"a - _b":             "a_b",
		"_private_":          "private",
		"9 lives":            "n9_lives",
		"Func":               "func_",
		"Café Bot":           "caf_bot",
		"":                   "",
		"?!":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Identifier(in), "Identifier(%q)", in)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	first, err := Normalize(" Weather Bot ", " fetches weather ", []string{"http_request"}, nil)
	require.NoError(t, err)
	second, err := Normalize(" Weather Bot ", " fetches weather ", []string{"http_request"}, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Weather Bot", first.Name)
	assert.Equal(t, "fetches weather", first.Description)
	assert.Equal(t, "weather_bot", first.Identifier)
	assert.Equal(t, "weather_bot.go", first.FileName(".go"))
}

func TestNormalizeDeduplicatesTools(t *testing.T) {
	s, err := Normalize("Bot", "", []string{"http_request", "file_read", "http_request", " ", "File_Read"}, []CustomTool{
		{DisplayName: "file_read", Description: "shadowed by the standard tool"},
		{DisplayName: "Echo Tool", Description: "echoes input"},
		{DisplayName: "Echo Tool", Description: "later duplicate"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"http_request", "file_read", "File_Read"}, s.StandardTools())
	require.Len(t, s.CustomTools(), 1)
	assert.Equal(t, "echoes input", s.CustomTools()[0].Description)
	assert.Equal(t, []string{"http_request", "file_read", "File_Read", "Echo Tool"}, s.Tools())
}

func TestNormalizeCopiesSlices(t *testing.T) {
	s, err := Normalize("Bot", "", []string{"a"}, []CustomTool{{DisplayName: "B"}})
	require.NoError(t, err)

	s.StandardTools()[0] = "mutated"
	s.CustomTools()[0].DisplayName = "mutated"
	assert.Equal(t, []string{"a", "B"}, s.Tools())
}

func TestNormalizeRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		agent  string
		custom []CustomTool
	}{
		{"empty name", "   ", nil},
		{"empty custom tool name", "Bot", []CustomTool{{DisplayName: " \t", Description: "x"}}},
		{"punctuation agent name", "?!", nil},
		{"punctuation tool name", "Bot", []CustomTool{{DisplayName: "--"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.agent, "desc", nil, tt.custom)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSpec))
		})
	}
}

func TestNormalizeSanitizesNames(t *testing.T) {
	s, err := Normalize("Weather-Bot 2.0", "", nil, []CustomTool{
		{DisplayName: "web-search", Description: "searches"},
		{DisplayName: "Func", Description: "keyword"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Weather-Bot 2.0", s.Name)
	assert.Equal(t, "weather_bot_2_0", s.Identifier)
	require.Len(t, s.CustomTools(), 2)
	assert.Equal(t, "web_search", s.CustomTools()[0].Identifier())
	assert.Equal(t, "func_", s.CustomTools()[1].Identifier())
	assert.Equal(t, []string{"web-search", "Func"}, s.Tools())
}

// Two custom tools whose identifiers collide are rejected instead of producing
// duplicate entry points.
func TestNormalizeRejectsIdentifierCollision(t *testing.T) {
	_, err := Normalize("Bot", "", nil, []CustomTool{
		{DisplayName: "My Tool", Description: "first"},
		{DisplayName: "my  tool", Description: "second"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSpec)
	assert.Contains(t, err.Error(), `"my_tool"`)

	_, err = Normalize("Bot", "", nil, []CustomTool{
		{DisplayName: "web-search", Description: "first"},
		{DisplayName: "Web Search", Description: "second"},
	})
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestCustomToolIdentifier(t *testing.T) {
	assert.Equal(t, "echo_tool", CustomTool{DisplayName: "Echo Tool"}.Identifier())
}
