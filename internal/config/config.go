package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type Config struct {
	Database struct {
		Host               string `json:"host"`
		Port               uint64 `json:"port"`
		Username           string `json:"username"`
		Password           string `json:"password"`
		Database           string `json:"database"`
		UseTLS             bool   `json:"use_tls"`
		ConnectTimeout     string `json:"connect_timeout"`
		SocketTimeout      string `json:"socket_timeout"`
		ConnectIdleTimeout string `json:"connect_idle_timeout"`
		OperationTimeout   string `json:"operation_timeout"`
		Heartbeat          string `json:"heartbeat"`
		MinPoolSize        uint64 `json:"min_pool_size"`
		MaxPoolSize        uint64 `json:"max_pool_size"`
	} `json:"database"`
	WhatsApp struct {
		SessionsDir      string `json:"sessions_dir"`
		DefaultUser      string `json:"default_user"`
		MessageDelay     string `json:"message_delay"`
		ReconnectBackoff string `json:"reconnect_backoff"`
		LoopbackAutoPair bool   `json:"loopback_auto_pair"`
	} `json:"whatsapp"`
	AllowedOrigins []string `json:"allowed_origins"`
	DebugMode      bool     `json:"debug_mode"`
	AppName        string   `json:"app_name"`
	AppPort        int      `json:"app_port"`
}

var config Config
var initialized = false

func defaults() Config {
	var c Config
	c.AppName = "whatsapp-service"
	c.AppPort = 3001
	c.WhatsApp.SessionsDir = "sessions"
	c.WhatsApp.DefaultUser = "admin"
	c.WhatsApp.MessageDelay = "7s"
	c.WhatsApp.ReconnectBackoff = "3s"
	c.WhatsApp.LoopbackAutoPair = true
	c.Database.OperationTimeout = "5s"
	c.Database.ConnectTimeout = "10s"
	c.Database.SocketTimeout = "10s"
	c.Database.ConnectIdleTimeout = "5m"
	c.Database.Heartbeat = "10s"
	c.Database.MinPoolSize = 1
	c.Database.MaxPoolSize = 16
	return c
}

func ReadConfig() (Config, error) {
	config = defaults()
	bytes, err := os.ReadFile("config.json")

	if err != nil {
		writer, werr := os.OpenFile("config.json", os.O_WRONLY|os.O_CREATE, 0644)
		if werr != nil {
			return config, fmt.Errorf("fail to create configuration file template: %w", werr)
		}
		data, _ := json.MarshalIndent(config, "", "\t")
		_, _ = writer.Write(data)
		_ = writer.Close()
		return config, errors.New("the configuration file does not exist and has been created. Please try again after editing the configuration file")
	}

	err = json.Unmarshal(bytes, &config)

	if err != nil {
		return config, errors.New("the configuration file does not contain valid JSON")
	}

	initialized = true
	return config, nil
}

func GetConfig() (Config, error) {
	if initialized {
		return config, nil
	}
	return ReadConfig()
}

// UseDatabase reports whether a MongoDB backend has been configured. An empty
// host means session records stay in memory only.
func (c Config) UseDatabase() bool {
	return c.Database.Host != ""
}
