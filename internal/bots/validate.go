package bots

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"voicebot-platform/internal/apperr"
)

func validateBot(b Bot) error {
	switch {
	case strings.TrimSpace(b.Name) == "":
		return apperr.Validation("bot name is required")
	case utf8.RuneCountInString(b.Name) > 50:
		return apperr.Validation("bot name cannot exceed 50 characters")
	case utf8.RuneCountInString(b.Description) > 500:
		return apperr.Validation("description cannot exceed 500 characters")
	case strings.TrimSpace(b.SystemPrompt) == "":
		return apperr.Validation("system prompt is required")
	case utf8.RuneCountInString(b.SystemPrompt) > 5000:
		return apperr.Validation("system prompt cannot exceed 5000 characters")
	case utf8.RuneCountInString(b.Greeting) > 500:
		return apperr.Validation("greeting cannot exceed 500 characters")
	}

	switch b.VoiceType {
	case VoiceMale, VoiceFemale, VoiceNeutral:
	default:
		return apperr.Validation(fmt.Sprintf("voiceType must be male, female or neutral, got %q", b.VoiceType))
	}
	switch b.Personality {
	case PersonalityProfessional, PersonalityFriendly, PersonalityCasual, PersonalityFormal:
	default:
		return apperr.Validation(fmt.Sprintf("personality must be professional, friendly, casual or formal, got %q", b.Personality))
	}
	return validateScript(b.Script)
}

// Keys become file names on the engine side and answer keys in call logs.
func validateScript(items []ScriptItem) error {
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		key := strings.TrimSpace(it.Key)
		if key == "" {
			return apperr.Validation(fmt.Sprintf("script item %d: key is required", i))
		}
		if strings.ContainsAny(key, `/\.`) {
			return apperr.Validation(fmt.Sprintf("script item %d: key %q must not contain path characters", i, key))
		}
		if strings.TrimSpace(it.Text) == "" {
			return apperr.Validation(fmt.Sprintf("script item %q: text is required", key))
		}
		if _, dup := seen[key]; dup {
			return apperr.Validation(fmt.Sprintf("script key %q is duplicated", key))
		}
		seen[key] = struct{}{}
	}
	return nil
}

// staleAudioKeys returns keys whose audio no longer matches the script:
// items that were removed or whose text changed.
func staleAudioKeys(old, updated []ScriptItem) []string {
	next := make(map[string]string, len(updated))
	for _, it := range updated {
		next[it.Key] = it.Text
	}
	var out []string
	for _, it := range old {
		if text, ok := next[it.Key]; !ok || text != it.Text {
			out = append(out, it.Key)
		}
	}
	return out
}

func sameScript(a, b []ScriptItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
