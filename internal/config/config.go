package config

import "github.com/caarlos0/env/v9"

type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	DBHost     string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName     string `env:"DB_NAME,required"`
	DBPort     string `env:"DB_PORT" envDefault:"3306"`

	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	// Optional Redis for cross-instance websocket fan-out. Empty = single instance.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Admission control for message sending (token bucket per user).
	SendRatePerSec float64 `env:"SEND_RATE_PER_SEC" envDefault:"0.17"`
	SendBurst      int     `env:"SEND_BURST" envDefault:"10"`

	// Fixed window for abuse reports.
	ReportWindowSec int `env:"REPORT_WINDOW_SEC" envDefault:"3600"`
	ReportPerWindow int `env:"REPORT_PER_WINDOW" envDefault:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
