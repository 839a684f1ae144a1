package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			DataDir:  "~/.obfuscator/data",
			LogLevel: "info",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Engine: EngineConfig{
			Command:        "obfuscator-engine",
			TimeoutSeconds: 0,
			MaxOutputBytes: 16 << 20,
		},
		Retention: RetentionConfig{
			Days:          7,
			IntervalHours: 24,
		},
		Notify: NotifyConfig{
			Telegram: TelegramConfig{
				Enabled: false,
			},
		},
	}
}
