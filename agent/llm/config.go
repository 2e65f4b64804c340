package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
)

// Config carries the OpenRouter connection plus optional per-role model and
// temperature overrides. A negative temperature override means "use default".
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel             string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	OrderModel              string  `envconfig:"ORDER_MODEL" split_words:"true"`
	ReservationModel        string  `envconfig:"RESERVATION_MODEL" split_words:"true"`
	ConfirmationModel       string  `envconfig:"CONFIRMATION_MODEL" split_words:"true"`
	RouterTemperature       float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"-1"`
	OrderTemperature        float32 `envconfig:"ORDER_TEMPERATURE" split_words:"true" default:"-1"`
	ReservationTemperature  float32 `envconfig:"RESERVATION_TEMPERATURE" split_words:"true" default:"-1"`
	ConfirmationTemperature float32 `envconfig:"CONFIRMATION_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// Settings is one resolved model/temperature pair for a completion call.
type Settings struct {
	Model       string
	Temperature float32
}

// SettingsFor resolves the effective model and temperature for a role,
// falling back to the defaults when no override is set.
func (c Config) SettingsFor(role contractx.RoleTag) Settings {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case contractx.RoleIntentRouter:
		if v := strings.TrimSpace(c.RouterModel); v != "" {
			modelName = v
		}
		if c.RouterTemperature >= 0 {
			temp = c.RouterTemperature
		}
	case contractx.RoleOrderTaking:
		if v := strings.TrimSpace(c.OrderModel); v != "" {
			modelName = v
		}
		if c.OrderTemperature >= 0 {
			temp = c.OrderTemperature
		}
	case contractx.RoleReservationTaking:
		if v := strings.TrimSpace(c.ReservationModel); v != "" {
			modelName = v
		}
		if c.ReservationTemperature >= 0 {
			temp = c.ReservationTemperature
		}
	case contractx.RoleConfirmation, contractx.RoleEndCall:
		if v := strings.TrimSpace(c.ConfirmationModel); v != "" {
			modelName = v
		}
		if c.ConfirmationTemperature >= 0 {
			temp = c.ConfirmationTemperature
		}
	}

	return Settings{Model: modelName, Temperature: temp}
}
