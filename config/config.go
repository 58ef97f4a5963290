// Initializes common application configuration
package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Swish    SwishConfig    `mapstructure:"swish"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type ServerConfig struct {
	AppVersion  string        `mapstructure:"app_version"`
	Host        string        `mapstructure:"host"`
	Port        string        `mapstructure:"port"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Env         string        `mapstructure:"environment"`
	Mode        string        `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	Enabled      bool          `mapstructure:"enabled"`
}

type BookingConfig struct {
	// HoldTTL is how long a PENDING hold occupies capacity before the
	// sweep reclaims it.
	HoldTTL time.Duration `mapstructure:"hold_ttl"`
	// Service window for SHORT rentals: start times on 30-minute
	// boundaries between OpenHour and CloseHour-2h.
	OpenHour  int `mapstructure:"open_hour"`
	CloseHour int `mapstructure:"close_hour"`
}

type SwishConfig struct {
	Mode          string `mapstructure:"mode"` // "mock" or "production"
	APIURL        string `mapstructure:"api_url"`
	MerchantAlias string `mapstructure:"merchant_alias"`
	CallbackURL   string `mapstructure:"callback_url"`
	CertPath      string `mapstructure:"cert_path"`
	KeyPath       string `mapstructure:"key_path"`
	// Secret signs/verifies callback payloads (HMAC-SHA256).
	Secret string `mapstructure:"secret"`
}

type NotifyConfig struct {
	WebhookURL    string `mapstructure:"webhook_url"`
	WebhookSecret string `mapstructure:"webhook_secret"`

	TwilioAccountSID string `mapstructure:"twilio_account_sid"`
	TwilioAuthToken  string `mapstructure:"twilio_auth_token"`
	TwilioFromNumber string `mapstructure:"twilio_from_number"`
	AdminSMSNumber   string `mapstructure:"admin_sms_number"`
}

type AdminConfig struct {
	Token string `mapstructure:"token"`
}

type WorkerConfig struct {
	// TestBookingInterval drives the ephemeral test-booking sweep. Real
	// bookings are swept lazily on request, never by a timer.
	TestBookingInterval time.Duration `mapstructure:"test_booking_interval"`
	PromoteDelay        time.Duration `mapstructure:"promote_delay"`
	DeleteDelay         time.Duration `mapstructure:"delete_delay"`
}

func LoadConfig() (*viper.Viper, error) {
	viperInstance := viper.New()

	viperInstance.AddConfigPath("./config")
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")
	setDefaults(viperInstance)

	if err := viperInstance.ReadInConfig(); err != nil {
		// Defaults plus environment are enough to run in mock mode.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	viperInstance.AutomaticEnv()
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.app_version", "1.0.0")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "hyrservice_user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "hyrservice")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)

	v.SetDefault("booking.hold_ttl", 10*time.Minute)
	v.SetDefault("booking.open_hour", 7)
	v.SetDefault("booking.close_hour", 21)

	v.SetDefault("swish.mode", "mock")
	v.SetDefault("swish.merchant_alias", "1234945580")

	v.SetDefault("worker.test_booking_interval", 30*time.Second)
	v.SetDefault("worker.promote_delay", time.Minute)
	v.SetDefault("worker.delete_delay", 5*time.Minute)
}
