package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		MaxUploadSize             int64 // bytes
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		RowLocks      bool // SELECT ... FOR UPDATE while importing
	}

	// PredictionConfig holds the weights used when no weight set has been activated.
	PredictionConfig struct {
		PreviousClass float64
		Teacher       float64
		Quarters      float64
	}

	// RiskConfig names the classification policy used by each entry point.
	RiskConfig struct {
		ImportPolicy string
		EditPolicy   string
		LegacyPolicy string
	}

	GradebookConfig struct {
		AcademicYear string
		Semester     int
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		DefaultFromEmail mail.Address
		FrontendBaseURL  string
		RollbarToken     string
		SendgridAPIKey   string

		Server     ServerConfig
		Database   DatabaseConfig
		Prediction PredictionConfig
		Risk       RiskConfig
		Gradebook  GradebookConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return dbc.Host + ":" + dbc.Port
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "USP")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "h7$k2-vq9)xlm+31=wd&ae0z5(t!r)#*p4(#fn8c^$bsu6ojr")
	v.SetDefault("defaultFromEmail", "USP <noreply@localhost>")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridAPIKey", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.maxUploadSize", int64(10<<20))

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "usp")
	v.SetDefault("database.user", "usp")
	v.SetDefault("database.password", "usp")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.rowLocks", true)

	v.SetDefault("prediction.previousClass", 0.3)
	v.SetDefault("prediction.teacher", 0.2)
	v.SetDefault("prediction.quarters", 0.5)

	v.SetDefault("risk.importPolicy", "delta-standard")
	v.SetDefault("risk.editPolicy", "delta-narrow")
	v.SetDefault("risk.legacyPolicy", "percentage-gap")

	v.SetDefault("gradebook.academicYear", "2024-2025")
	v.SetDefault("gradebook.semester", 1)
}

// NewConfig loads the configuration of the current environment (ENV: DEV (default), TEST, QA, PROD).
// Values come from defaults, optionally overridden by `config/.env.<env>` and the environment,
// e.g. DEV_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err = os.Stat(dotEnvPath); err == nil {
			if err = godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return configFrom(v, env)
}

func configFrom(v *viper.Viper, env string) *Config {
	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatal(fmt.Sprintf("config: invalid defaultFromEmail: %v", err))
	}

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: *from,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridAPIKey"),
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			MaxUploadSize:             v.GetInt64("server.maxUploadSize"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			RowLocks:      v.GetBool("database.rowLocks"),
		},
		Prediction: PredictionConfig{
			PreviousClass: v.GetFloat64("prediction.previousClass"),
			Teacher:       v.GetFloat64("prediction.teacher"),
			Quarters:      v.GetFloat64("prediction.quarters"),
		},
		Risk: RiskConfig{
			ImportPolicy: v.GetString("risk.importPolicy"),
			EditPolicy:   v.GetString("risk.editPolicy"),
			LegacyPolicy: v.GetString("risk.legacyPolicy"),
		},
		Gradebook: GradebookConfig{
			AcademicYear: v.GetString("gradebook.academicYear"),
			Semester:     v.GetInt("gradebook.semester"),
		},
	}
}

// NewTestConfig returns the default configuration with test mode on; it never reads the environment.
func NewTestConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.Set("testMode", true)
	return configFrom(v, "TEST")
}
