package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "daemon":
		return daemonTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const daemonTemplate = `name = "igniterd"
addr = ":9400"
cors_origins = ["http://localhost:3000"]
store_path = "igniter.db"
# auth_token = "change-me"

[gate]
url = "https://gates.example.com"
key = "boot-gate"

[provider]
url = "https://attribution.example.com"

[probe]
addr = "1.1.1.1:443"
interval_seconds = 5

[timing]
global_timeout_seconds = 30
debounce_seconds = 5
organic_grace_delay_seconds = 3
permission_cooldown_hours = 72
`
