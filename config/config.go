package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port    string
	RunMode string

	MongoURI string
	MongoDB  string

	// Public addresses used to build shareable links.
	PublicBaseURL   string
	TrackingBaseURL string

	JWTSecret string

	ConsulAddress      string
	ServiceName        string
	ContactServiceName string

	// Channel providers.
	EmailEnabled  bool
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	EmailFrom     string
	EmailFromName string
	EmailToLegacy string

	ZenviaAPIToken    string
	ZenviaBaseURL     string
	ZenviaCallbackURL string
	ZenviaSMSFrom     string
	ZenviaSMSToList   string
	ZenviaWAFrom      string
	ZenviaWATemplate  string
	ZenviaWAToList    string
	ZenviaWASimple    bool

	TelegramEnabled bool
	TelegramToken   string
	TelegramChatIDs string

	FirebaseEnabled         bool
	FirebaseCredentialsFile string

	// Fan-out tuning.
	ChannelTimeout time.Duration
	SendThrottle   time.Duration

	// Live tracking.
	TrackBufferMax int
	StaleAfter     time.Duration

	LogFile string
}

func LoadConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8000")
	v.SetDefault("RUN_MODE", "release")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "sos")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8000")
	v.SetDefault("CONSUL_ADDRESS", "localhost:8500")
	v.SetDefault("SERVICE_NAME", "sos-service")
	v.SetDefault("CONTACT_SERVICE_NAME", "go-main-service")
	v.SetDefault("EMAIL_ENABLED", true)
	v.SetDefault("EMAIL_SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("EMAIL_SMTP_PORT", 587)
	v.SetDefault("ZENVIA_BASE_URL", "https://api.zenvia.com/v2")
	v.SetDefault("ZENVIA_SMS_FROM", "default")
	v.SetDefault("TELEGRAM_ENABLED", true)
	v.SetDefault("CHANNEL_TIMEOUT", "20s")
	v.SetDefault("SEND_THROTTLE", "120ms")
	v.SetDefault("TRACK_BUFFER_MAX", 500)
	v.SetDefault("STALE_AFTER", "15m")
	v.SetDefault("LOG_FILE", "logs/sos-service.log")

	return &Config{
		Port:    v.GetString("PORT"),
		RunMode: v.GetString("RUN_MODE"),

		MongoURI: v.GetString("MONGO_URI"),
		MongoDB:  v.GetString("MONGO_DB"),

		PublicBaseURL:   strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		TrackingBaseURL: strings.TrimRight(v.GetString("TRACKING_BASE_URL"), "/"),

		JWTSecret: v.GetString("JWT_SECRET"),

		ConsulAddress:      v.GetString("CONSUL_ADDRESS"),
		ServiceName:        v.GetString("SERVICE_NAME"),
		ContactServiceName: v.GetString("CONTACT_SERVICE_NAME"),

		EmailEnabled:  v.GetBool("EMAIL_ENABLED"),
		SMTPHost:      v.GetString("EMAIL_SMTP_HOST"),
		SMTPPort:      v.GetInt("EMAIL_SMTP_PORT"),
		SMTPUser:      v.GetString("EMAIL_USERNAME"),
		SMTPPass:      v.GetString("EMAIL_PASSWORD"),
		EmailFrom:     v.GetString("EMAIL_FROM"),
		EmailFromName: v.GetString("EMAIL_FROM_NAME"),
		EmailToLegacy: v.GetString("EMAIL_TO_LIST"),

		ZenviaAPIToken:    v.GetString("ZENVIA_API_TOKEN"),
		ZenviaBaseURL:     strings.TrimRight(v.GetString("ZENVIA_BASE_URL"), "/"),
		ZenviaCallbackURL: v.GetString("ZENVIA_CALLBACK_URL"),
		ZenviaSMSFrom:     v.GetString("ZENVIA_SMS_FROM"),
		ZenviaSMSToList:   v.GetString("ZENVIA_SMS_TO_LIST"),
		ZenviaWAFrom:      v.GetString("ZENVIA_WA_FROM"),
		ZenviaWATemplate:  v.GetString("ZENVIA_WA_TEMPLATE_ID"),
		ZenviaWAToList:    v.GetString("ZENVIA_WA_TO_LIST"),
		ZenviaWASimple:    v.GetBool("ZENVIA_WA_SIMPLE"),

		TelegramEnabled: v.GetBool("TELEGRAM_ENABLED"),
		TelegramToken:   v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramChatIDs: v.GetString("TELEGRAM_CHAT_IDS"),

		FirebaseEnabled:         v.GetBool("FIREBASE_ENABLED"),
		FirebaseCredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),

		ChannelTimeout: v.GetDuration("CHANNEL_TIMEOUT"),
		SendThrottle:   v.GetDuration("SEND_THROTTLE"),

		TrackBufferMax: v.GetInt("TRACK_BUFFER_MAX"),
		StaleAfter:     v.GetDuration("STALE_AFTER"),

		LogFile: v.GetString("LOG_FILE"),
	}
}

// EmailLegacyList splits the operator-configured fallback recipient list.
func (c *Config) EmailLegacyList() []string {
	return splitList(c.EmailToLegacy)
}

func (c *Config) SMSLegacyList() []string {
	return splitList(c.ZenviaSMSToList)
}

func (c *Config) WALegacyList() []string {
	return splitList(c.ZenviaWAToList)
}

func (c *Config) TelegramLegacyChatIDs() []string {
	return splitList(c.TelegramChatIDs)
}

// TrackingBase is the address shareable tracking links are built from.
// TRACKING_BASE_URL wins when set, otherwise the public base is used.
func (c *Config) TrackingBase() string {
	if c.TrackingBaseURL != "" {
		return c.TrackingBaseURL
	}
	return c.PublicBaseURL
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	}) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
