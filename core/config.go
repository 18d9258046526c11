package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName         string
		Env             string // DEV (local; default), TEST, QA, PROD
		Debug           bool
		TestMode        bool
		Build           string
		SecretKey       string
		WorkDir         string
		FrontendBaseURL string

		DefaultFromEmail string
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Grading  GradingConfig
	}

	ServerConfig struct {
		Host               string
		Port               int
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine     string
		Name       string
		Host       string
		Port       int
		User       string
		Password   string
		DisableTLS bool
	}

	// GradingConfig carries the bulk grading pipeline knobs. The retry and
	// pacing defaults were tuned against the production grade ledger.
	GradingConfig struct {
		// "rest" (default), "postgres" or "dummy"
		LedgerBackend string

		GraderURL      string
		LedgerURL      string
		SubmissionsURL string
		LedgerToken    string

		ImageTimeout time.Duration
		PDFTimeout   time.Duration

		MaxAttempts    int
		RetryBaseDelay time.Duration
		RetryMaxDelay  time.Duration
		PacingDelay    time.Duration
	}
)

func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) DefaultFromEmailAddr() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Alama")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "w3n)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")

	conf.SetDefault("serverHost", "0.0.0.0")
	conf.SetDefault("serverPort", 8000)
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbName", "alama")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", 5432)
	conf.SetDefault("dbUser", "alama")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbDisableTLS", true)

	conf.SetDefault("gradingLedgerBackend", "rest")
	conf.SetDefault("gradingGraderURL", "http://localhost:10000")
	conf.SetDefault("gradingLedgerURL", "http://localhost:8800")
	conf.SetDefault("gradingSubmissionsURL", "http://localhost:8800")
	conf.SetDefault("gradingLedgerToken", "")
	conf.SetDefault("gradingImageTimeout", 60*time.Second)
	conf.SetDefault("gradingPDFTimeout", 90*time.Second)
	conf.SetDefault("gradingMaxAttempts", 3)
	conf.SetDefault("gradingRetryBaseDelay", time.Second)
	conf.SetDefault("gradingRetryMaxDelay", 5*time.Second)
	conf.SetDefault("gradingPacingDelay", 800*time.Millisecond)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:          conf.GetString("appName"),
		Env:              env,
		Debug:            conf.GetBool("debug"),
		TestMode:         env == "TEST",
		Build:            conf.GetString("build"),
		SecretKey:        conf.GetString("secretKey"),
		WorkDir:          wd,
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		DefaultFromEmail: conf.GetString("defaultFromEmail"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Port:               conf.GetInt("serverPort"),
			DebugHost:          conf.GetString("serverDebugHost"),
			ShutdownTimeout:    conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:     conf.GetString("dbEngine"),
			Name:       conf.GetString("dbName"),
			Host:       conf.GetString("dbHost"),
			Port:       conf.GetInt("dbPort"),
			User:       conf.GetString("dbUser"),
			Password:   conf.GetString("dbPassword"),
			DisableTLS: conf.GetBool("dbDisableTLS"),
		},
		Grading: GradingConfig{
			LedgerBackend:  conf.GetString("gradingLedgerBackend"),
			GraderURL:      conf.GetString("gradingGraderURL"),
			LedgerURL:      conf.GetString("gradingLedgerURL"),
			SubmissionsURL: conf.GetString("gradingSubmissionsURL"),
			LedgerToken:    conf.GetString("gradingLedgerToken"),
			ImageTimeout:   conf.GetDuration("gradingImageTimeout"),
			PDFTimeout:     conf.GetDuration("gradingPDFTimeout"),
			MaxAttempts:    conf.GetInt("gradingMaxAttempts"),
			RetryBaseDelay: conf.GetDuration("gradingRetryBaseDelay"),
			RetryMaxDelay:  conf.GetDuration("gradingRetryMaxDelay"),
			PacingDelay:    conf.GetDuration("gradingPacingDelay"),
		},
	}
}
