package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
    "strconv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The types reflect how the values are used
// in the application: strings for identifiers and secrets, ints for
// durations and costs.  External integrations (Kakao, SMS, Google) are
// optional: when their variables are unset the corresponding adapters
// run disabled and the booking pipeline degrades gracefully.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing

    StoreName            string // business name used in notification templates
    BaseURL              string // public base URL used to build change-request links
    BankInfo             string // bank account line shown in approval messages
    DepositDeadlineHours int    // hours a customer has to wire the deposit

    KakaoAPIKey    string // Kakao Alimtalk REST key (empty disables Kakao)
    KakaoSenderKey string // Kakao sender profile key
    SMSFrom        string // SMS sender number used by the fallback channel

    GoogleAPIToken   string // bearer token for Google REST calls (empty disables sync)
    GoogleCalendarID string // target calendar for reservation events
    GoogleSheetsID   string // target spreadsheet for the reservation ledger

    RabbitURL string // AMQP broker URL (empty disables event publishing)
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Integration
// variables are read with os.Getenv and may be empty.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),

        StoreName:            envStr("STORE_NAME", "Class Studio"),
        BaseURL:              envStr("BASE_URL", "http://localhost:8080"),
        BankInfo:             os.Getenv("BANK_INFO"),
        DepositDeadlineHours: envInt("DEPOSIT_DEADLINE_HOURS", 24),

        KakaoAPIKey:    os.Getenv("KAKAO_API_KEY"),
        KakaoSenderKey: os.Getenv("KAKAO_SENDER_KEY"),
        SMSFrom:        os.Getenv("SMS_FROM"),

        GoogleAPIToken:   os.Getenv("GOOGLE_API_TOKEN"),
        GoogleCalendarID: os.Getenv("GOOGLE_CALENDAR_ID"),
        GoogleSheetsID:   os.Getenv("GOOGLE_SHEETS_ID"),

        RabbitURL: os.Getenv("RABBITMQ_URL"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
