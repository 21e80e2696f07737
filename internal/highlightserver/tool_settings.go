package highlightserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_highlight/internal/engine"
	"github.com/anatolykoptev/go_highlight/internal/engine/credentials"
)

func (t *tools) settings() SettingsOutput {
	return SettingsOutput{
		Keys:           t.Credentials.Status(),
		ScrapeFallback: engine.Cfg.YouTubeScrapeFallback,
		Transcripts:    engine.Cfg.YouTubeTranscriptsEnabled,
	}
}

func (t *tools) settingsGet(_ context.Context, _ *mcp.CallToolRequest, _ SettingsGetInput) (*mcp.CallToolResult, SettingsOutput, error) {
	return nil, t.settings(), nil
}

func (t *tools) settingsSet(ctx context.Context, _ *mcp.CallToolRequest, in SettingsSetInput) (*mcp.CallToolResult, SettingsOutput, error) {
	if in.YouTubeAPIKey == "" && in.OpenAIAPIKey == "" {
		return nil, SettingsOutput{}, errors.New("youtube_api_key or openai_api_key is required")
	}
	var saved []string
	if in.YouTubeAPIKey != "" {
		if err := t.Credentials.SaveYouTubeAPIKey(ctx, in.YouTubeAPIKey); err != nil {
			return nil, SettingsOutput{}, err
		}
		saved = append(saved, credentials.YouTubeKeyName)
	}
	if in.OpenAIAPIKey != "" {
		if err := t.Credentials.SaveLLMAPIKey(ctx, in.OpenAIAPIKey); err != nil {
			return nil, SettingsOutput{}, err
		}
		saved = append(saved, credentials.LLMKeyName)
	}
	out := t.settings()
	out.Saved = saved
	return nil, out, nil
}
