package twilio

// Config drives the voice webhook server. AuthToken enables Twilio request
// signature validation; leave it empty only in local development.
type Config struct {
	ServerAddr string `mapstructure:"server_addr"`
	PublicURL  string `mapstructure:"public_url"`
	AuthToken  string `mapstructure:"auth_token"`
	AccountSID string `mapstructure:"account_sid"`

	ShopID   string `mapstructure:"shop_id"`
	ShopName string `mapstructure:"shop_name"`

	VoicePath   string `mapstructure:"voice_path"`
	GatherPath  string `mapstructure:"gather_path"`
	ConfirmPath string `mapstructure:"confirm_path"`
	AddressPath string `mapstructure:"address_path"`
	StatusPath  string `mapstructure:"status_path"`
}

func (c Config) withDefaults() Config {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.ShopName == "" {
		c.ShopName = "Storm Mart"
	}
	if c.VoicePath == "" {
		c.VoicePath = "/twilio/voice"
	}
	if c.GatherPath == "" {
		c.GatherPath = "/twilio/gather"
	}
	if c.ConfirmPath == "" {
		c.ConfirmPath = "/twilio/confirm"
	}
	if c.AddressPath == "" {
		c.AddressPath = "/twilio/address"
	}
	if c.StatusPath == "" {
		c.StatusPath = "/twilio/status"
	}
	return c
}
