package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	Store      string
	MongoURI   string
	MongoDB    string
	RedisAddr  string
	RedisPass  string
	UploadDir  string
	JwtSecret  []byte
	JwtExpiry  time.Duration
	ReceiptKey []byte

	FrontendURL    string
	AllowedOrigins []string

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	NotifyWorkers int
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	port := getenv("PORT", ":8080")
	if !strings.Contains(port, ":") {
		port = ":" + port
	}

	secret := os.Getenv("JWT_SECRET")
	if len(secret) < 32 {
		return nil, errors.New("JWT_SECRET must be set and at least 32 bytes")
	}

	expiry, err := time.ParseDuration(getenv("JWT_EXPIRY", "24h"))
	if err != nil {
		return nil, errors.New("JWT_EXPIRY is not a valid duration")
	}

	workers, err := strconv.Atoi(getenv("NOTIFY_WORKERS", "4"))
	if err != nil || workers < 1 {
		workers = 4
	}

	origins := splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"))
	frontend := "http://localhost:5173"
	if fl := splitList(os.Getenv("FRONTEND_URL")); len(fl) > 0 {
		frontend = fl[0]
	} else if len(origins) > 0 {
		frontend = origins[0]
	}

	return &Config{
		Port:               port,
		Store:              getenv("STORE", "mongo"),
		MongoURI:           getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            getenv("MONGO_DB", "shophub"),
		RedisAddr:          getenv("REDIS_ADDR", "localhost:6379"),
		RedisPass:          os.Getenv("REDIS_PASSWORD"),
		UploadDir:          getenv("UPLOAD_DIR", "./static/uploads"),
		JwtSecret:          []byte(secret),
		JwtExpiry:          expiry,
		ReceiptKey:         []byte(getenv("RECEIPT_SECRET", secret)),
		FrontendURL:        strings.TrimRight(frontend, "/"),
		AllowedOrigins:     origins,
		RazorpayKeyID:      os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:  os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:    getenv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getenv("GOOGLE_REDIRECT_URL", "http://localhost:8080/login/oauth2/code/google"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           getenv("SMTP_PORT", "587"),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		MailFrom:           os.Getenv("MAIL_FROM"),
		NotifyWorkers:      workers,
	}, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
