package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Vendor describes how to talk to one chat completion API. OpenAI compatible
// vendors share the body and response shape and differ only in URL and model.
type Vendor struct {
	Name         string
	BaseURL      string
	EndpointPath string
	DefaultModel string
	BuildHeaders func(req *http.Request, apiKey string)
	BuildBody    func(model, system, prompt string) any
	ExtractText  func(body []byte) (string, error)
}

// URL returns the request URL for model. Keys never go into the URL since
// transport errors quote it.
func (v Vendor) URL(model string) string {
	return strings.TrimRight(v.BaseURL, "/") + strings.ReplaceAll(v.EndpointPath, "{model}", model)
}

var errEmptyResponse = errors.New("response contained no text")

func bearer(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func openAIBody(model, system, prompt string) any {
	return map[string]any{
		"model": model,
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		"temperature": defaultTemperature,
		"max_tokens":  defaultMaxTokens,
	}
}

func openAIText(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func openAICompatible(name, baseURL, model string) Vendor {
	return Vendor{
		Name:         name,
		BaseURL:      baseURL,
		EndpointPath: "/v1/chat/completions",
		DefaultModel: model,
		BuildHeaders: bearer,
		BuildBody:    openAIBody,
		ExtractText:  openAIText,
	}
}

var vendors = map[string]Vendor{
	"openai": openAICompatible("openai", "https://api.openai.com", "gpt-4o-mini"),
	"grok":   openAICompatible("grok", "https://api.x.ai", "grok-beta"),
	"anthropic": {
		Name:         "anthropic",
		BaseURL:      "https://api.anthropic.com",
		EndpointPath: "/v1/messages",
		DefaultModel: "claude-3-5-sonnet-20241022",
		BuildHeaders: func(req *http.Request, apiKey string) {
			req.Header.Set("x-api-key", apiKey)
			req.Header.Set("anthropic-version", "2023-06-01")
		},
		BuildBody: func(model, system, prompt string) any {
			return map[string]any{
				"model":       model,
				"max_tokens":  defaultMaxTokens,
				"temperature": defaultTemperature,
				"messages": []chatMessage{
					{Role: "user", Content: system + "\n\nUser command: " + prompt},
				},
			}
		},
		ExtractText: func(body []byte) (string, error) {
			var resp struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", err
			}
			if len(resp.Content) == 0 {
				return "", errEmptyResponse
			}
			return resp.Content[0].Text, nil
		},
	},
	"gemini": {
		Name:         "gemini",
		BaseURL:      "https://generativelanguage.googleapis.com",
		EndpointPath: "/v1beta/models/{model}:generateContent",
		DefaultModel: "gemini-pro",
		BuildHeaders: func(req *http.Request, apiKey string) {
			req.Header.Set("x-goog-api-key", apiKey)
		},
		BuildBody: func(_, system, prompt string) any {
			return map[string]any{
				"contents": []map[string]any{{
					"parts": []map[string]string{{"text": system + "\n\nUser command: " + prompt}},
				}},
				"generationConfig": map[string]any{
					"temperature":     defaultTemperature,
					"maxOutputTokens": defaultMaxTokens,
				},
			}
		},
		ExtractText: func(body []byte) (string, error) {
			var resp struct {
				Candidates []struct {
					Content struct {
						Parts []struct {
							Text string `json:"text"`
						} `json:"parts"`
					} `json:"content"`
				} `json:"candidates"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return "", err
			}
			if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
				return "", errEmptyResponse
			}
			return resp.Candidates[0].Content.Parts[0].Text, nil
		},
	},
	"huggingface": {
		Name:         "huggingface",
		BaseURL:      "https://api-inference.huggingface.co",
		EndpointPath: "/models/{model}",
		DefaultModel: "mistralai/Mistral-7B-Instruct-v0.3",
		BuildHeaders: bearer,
		BuildBody: func(_, system, prompt string) any {
			return map[string]any{
				"inputs": fmt.Sprintf("<s>[INST] %s\n\n%s [/INST]", system, prompt),
				"parameters": map[string]any{
					"max_new_tokens":   500,
					"temperature":      0.7,
					"return_full_text": false,
				},
			}
		},
		ExtractText: func(body []byte) (string, error) {
			type generated struct {
				GeneratedText string `json:"generated_text"`
			}
			var list []generated
			if err := json.Unmarshal(body, &list); err == nil {
				if len(list) == 0 {
					return "", errEmptyResponse
				}
				return list[0].GeneratedText, nil
			}
			var single generated
			if err := json.Unmarshal(body, &single); err != nil {
				return "", err
			}
			return single.GeneratedText, nil
		},
	},
}

// aliases maps the provider names used by the desktop settings screen
var aliases = map[string]string{
	"chatgpt": "openai",
	"claude":  "anthropic",
}

// LookupVendor returns the vendor record for name
func LookupVendor(name string) (Vendor, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[name]; ok {
		name = a
	}
	v, ok := vendors[name]
	return v, ok
}
