package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// WeatherTool answers weather questions from a small canned dataset. It
// exists to demonstrate the tool-calling loop without an external service.
type WeatherTool struct{}

// weatherByCity is demo data keyed by lowercase city name.
var weatherByCity = map[string]string{
	"paris":    "Sunny, 22°C with light clouds",
	"london":   "Rainy, 15°C with heavy clouds",
	"new york": "Partly cloudy, 18°C with moderate wind",
	"tokyo":    "Clear sky, 25°C with no wind",
	"sydney":   "Sunny, 28°C with clear skies",
}

func (WeatherTool) Name() string { return "get_weather" }

func (WeatherTool) Description() string {
	return "Get the current weather for a city"
}

func (WeatherTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"city": {
				"type": "string",
				"description": "Name of the city to get weather for"
			}
		},
		"required": ["city"]
	}`)
}

func (WeatherTool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var params struct {
		City string `json:"city"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parsing get_weather arguments: %w", err)
	}
	if strings.TrimSpace(params.City) == "" {
		return "", fmt.Errorf("get_weather requires a city")
	}

	if report, ok := weatherByCity[strings.ToLower(strings.TrimSpace(params.City))]; ok {
		return fmt.Sprintf("Weather in %s: %s", params.City, report), nil
	}
	return fmt.Sprintf("Weather in %s: Sunny, 20°C (demo data - city not in database)", params.City), nil
}
