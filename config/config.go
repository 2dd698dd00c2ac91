package config

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	MongoDB     string `mapstructure:"MONGO_DB"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Clinic timezone, e.g. "America/Sao_Paulo".
	Timezone string `mapstructure:"TIMEZONE"`

	// Working windows as "HH:MM".
	MorningStart   string `mapstructure:"MORNING_START"`
	MorningEnd     string `mapstructure:"MORNING_END"`
	AfternoonStart string `mapstructure:"AFTERNOON_START"`
	AfternoonEnd   string `mapstructure:"AFTERNOON_END"`

	SlotMinutes int `mapstructure:"SLOT_MINUTES"`
	RestMinutes int `mapstructure:"REST_MINUTES"`

	// Comma-separated ISO weekdays, 1=Monday .. 7=Sunday.
	BusinessDays string `mapstructure:"BUSINESS_DAYS"`
	HorizonDays  int    `mapstructure:"HORIZON_DAYS"`

	ReminderLeadHours    int `mapstructure:"REMINDER_LEAD_HOURS"`
	SummaryHour          int `mapstructure:"SUMMARY_HOUR"`
	SchedulerPollSeconds int `mapstructure:"SCHEDULER_POLL_SECONDS"`
	CacheTTLSeconds      int `mapstructure:"CACHE_TTL_SECONDS"`

	// WhatsApp Cloud API.
	WhatsAppToken   string `mapstructure:"WHATSAPP_TOKEN"`
	WhatsAppPhoneID string `mapstructure:"WHATSAPP_PHONE_ID"`
	VerifyToken     string `mapstructure:"VERIFY_TOKEN"`
	OwnerPhone      string `mapstructure:"OWNER_PHONE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DB", "agendabot")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("TIMEZONE", "America/Sao_Paulo")
	viper.SetDefault("MORNING_START", "08:00")
	viper.SetDefault("MORNING_END", "12:00")
	viper.SetDefault("AFTERNOON_START", "14:00")
	viper.SetDefault("AFTERNOON_END", "17:00")
	viper.SetDefault("SLOT_MINUTES", 50)
	viper.SetDefault("REST_MINUTES", 10)
	viper.SetDefault("BUSINESS_DAYS", "1,2,3,4,5")
	viper.SetDefault("HORIZON_DAYS", 30)
	viper.SetDefault("REMINDER_LEAD_HOURS", 24)
	viper.SetDefault("SUMMARY_HOUR", 7)
	viper.SetDefault("SCHEDULER_POLL_SECONDS", 30)
	viper.SetDefault("CACHE_TTL_SECONDS", 5)
	viper.SetDefault("WHATSAPP_TOKEN", "")
	viper.SetDefault("WHATSAPP_PHONE_ID", "")
	viper.SetDefault("VERIFY_TOKEN", "")
	viper.SetDefault("OWNER_PHONE", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Location resolves the configured clinic timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Invalid TIMEZONE %q, falling back to UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

// BusinessWeekdays parses BUSINESS_DAYS into a weekday set.
// ISO numbering in the config: 1=Monday .. 7=Sunday.
func (c *Config) BusinessWeekdays() map[time.Weekday]bool {
	days := make(map[time.Weekday]bool)
	for _, part := range strings.Split(c.BusinessDays, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > 7 {
			log.Printf("Ignoring invalid BUSINESS_DAYS entry %q", part)
			continue
		}
		days[time.Weekday(n%7)] = true
	}
	return days
}
