package config

// CLIConfig is the configuration for peptrackr-cli.
type CLIConfig struct {
	Server string `json:"server" yaml:"server"`
	Prefix string `json:"prefix" yaml:"prefix"`
	Output string `json:"output" yaml:"output"` // table, json, yaml
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "http://127.0.0.1:8000",
		Prefix: "/api/v1",
		Output: "table",
	}
}

// Keys lists the settable configuration keys.
var Keys = []string{"server", "prefix", "output"}

// Get returns the value of a configuration key.
func (c *CLIConfig) Get(key string) (string, bool) {
	switch key {
	case "server":
		return c.Server, true
	case "prefix":
		return c.Prefix, true
	case "output":
		return c.Output, true
	}
	return "", false
}

// Set updates a configuration key.
func (c *CLIConfig) Set(key, value string) bool {
	switch key {
	case "server":
		c.Server = value
	case "prefix":
		c.Prefix = value
	case "output":
		c.Output = value
	default:
		return false
	}
	return true
}
