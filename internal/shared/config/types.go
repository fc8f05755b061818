package config

import "fmt"

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// WhatsAppConfig holds connection lifecycle policy knobs.
// Timeouts follow the transport defaults: 60s queries, 30s connect,
// 15s keep-alive.
type WhatsAppConfig struct {
	MaxQRRetries          int `mapstructure:"max_qr_retries"`
	ReconnectBaseDelaySec int `mapstructure:"reconnect_base_delay_sec"`
	ReconnectMaxDelaySec  int `mapstructure:"reconnect_max_delay_sec"`
	ConnectTimeoutSec     int `mapstructure:"connect_timeout_sec"`
	QueryTimeoutSec       int `mapstructure:"query_timeout_sec"`
	KeepAliveIntervalSec  int `mapstructure:"keep_alive_interval_sec"`
}

// ImportConfig holds historical-message import policy knobs.
type ImportConfig struct {
	QuiescenceSec       int `mapstructure:"quiescence_sec"`
	YieldEveryMessages  int `mapstructure:"yield_every_messages"`
	YieldMillis         int `mapstructure:"yield_millis"`
	ProgressEveryCount  int `mapstructure:"progress_every_count"`
	CloseGraceHours     int `mapstructure:"close_grace_hours"`
	ClosePacingMillis   int `mapstructure:"close_pacing_millis"`
	SweepIntervalMin    int `mapstructure:"sweep_interval_min"`
	DrainLockTTLMinutes int `mapstructure:"drain_lock_ttl_minutes"`
}
