package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/philipparndt/modelforge/internal/operation"
	"go.uber.org/zap"
)

// ErrMissingAPIKey is returned when a remote interpreter has no credentials
var ErrMissingAPIKey = errors.New("API key not configured")

// systemPrompt is sent with every remote request
const systemPrompt = `You are an AI assistant that converts natural language commands into 3D model transformation instructions for STL files.

Respond ONLY with valid JSON in this exact format:
{
  "operation": "scale" | "rotate" | "mirror" | "move" | "color" | "resize" | "addBase" | "hollow" | "support" | "addHoles" | "modify",
  "parameters": {
    // operation-specific parameters
  },
  "explanation": "Brief explanation of what will happen"
}

Available operations:
- scale: {factor: number} - Scales the model (2.0 = twice as big, 0.5 = half size)
- rotate: {axis: "x"|"y"|"z", degrees: number} - Rotates model
- mirror: {axis: "x"|"y"|"z"} - Mirrors the model along an axis
- move: {x: number, y: number, z: number} - Moves model in mm
- color: {color: string} - Changes model color (hex "#FF0000" or name "red")
- resize: {width: number, depth: number, height: number} - Resize to specific dimensions in mm (optional params, height is the build direction)
- addBase: {type: "rectangle"|"circle"|"hexagon", thickness: number, margin: number} - Adds base platform
- hollow: {wallThickness: number} - Makes model hollow with specified wall thickness in mm
- support: {angle: number, spacing: number, thickness: number} - Adds support pillars under overhangs (angle in degrees, spacing and thickness in mm)
- addHoles: {diameter: number, count: number} - Adds drainage holes through the bottom of a hollow model
- modify: {description: string} - For complex operations, describe what to do

Examples:
"make it twice as big" -> {"operation": "scale", "parameters": {"factor": 2.0}, "explanation": "Scaling model to 200% size"}
"make it red" -> {"operation": "color", "parameters": {"color": "red"}, "explanation": "Changing model color to red"}
"add a rectangular base" -> {"operation": "addBase", "parameters": {"type": "rectangle", "thickness": 2, "margin": 5}, "explanation": "Adding rectangular base platform"}
"make it 50mm wide" -> {"operation": "resize", "parameters": {"width": 50}, "explanation": "Resizing model to 50mm width"}
"rotate 90 degrees on X axis" -> {"operation": "rotate", "parameters": {"axis": "x", "degrees": 90}, "explanation": "Rotating 90 degrees around X axis"}`

const (
	defaultTemperature = 0.3
	defaultMaxTokens   = 300
)

// Remote sends prompts to a hosted chat completion API. There is no retry,
// rate limiting or caching.
type Remote struct {
	vendor Vendor
	apiKey string
	model  string
	client *http.Client
	logger *zap.Logger
}

// RemoteConfig selects the vendor and credentials
type RemoteConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// NewRemote creates a remote interpreter for the configured vendor
func NewRemote(cfg RemoteConfig, logger *zap.Logger) (*Remote, error) {
	vendor, ok := LookupVendor(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("unknown interpreter provider %q", cfg.Provider)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w", vendor.Name, ErrMissingAPIKey)
	}
	if cfg.BaseURL != "" {
		vendor.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = vendor.DefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Remote{
		vendor: vendor,
		apiKey: cfg.APIKey,
		model:  model,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "interpreter"), zap.String("provider", vendor.Name)),
	}, nil
}

// Interpret sends text to the vendor and decodes the first response as an instruction
func (r *Remote) Interpret(ctx context.Context, text string) (*operation.Instruction, error) {
	body, err := json.Marshal(r.vendor.BuildBody(r.model, systemPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.vendor.URL(r.model), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.vendor.BuildHeaders != nil {
		r.vendor.BuildHeaders(req, r.apiKey)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", r.vendor.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", r.vendor.Name, err)
	}
	r.logger.Debug("completion received",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s API error (status %d): %s", r.vendor.Name, resp.StatusCode, errorMessage(data))
	}

	content, err := r.vendor.ExtractText(data)
	if err != nil {
		return nil, fmt.Errorf("unexpected %s response: %w", r.vendor.Name, err)
	}

	return ParseInstruction(content)
}

// ParseInstruction decodes model output, tolerating Markdown code fences
func ParseInstruction(content string) (*operation.Instruction, error) {
	var inst operation.Instruction
	if err := json.Unmarshal([]byte(StripCodeFence(content)), &inst); err != nil {
		return nil, fmt.Errorf("failed to parse instruction: %w", err)
	}
	if err := operation.Validate(inst.Op); err != nil {
		return nil, fmt.Errorf("invalid instruction: %w", err)
	}
	if inst.Explanation == "" {
		inst.Explanation = operation.Describe(inst.Op)
	}
	return &inst, nil
}

// StripCodeFence removes a surrounding ``` or ```json fence
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// errorMessage extracts {"error": {"message": ...}} or falls back to the raw body
func errorMessage(body []byte) string {
	var resp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error.Message != "" {
		return resp.Error.Message
	}
	return strings.TrimSpace(string(body))
}
