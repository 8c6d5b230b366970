package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	databaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	redisConfig struct {
		Host        string
		Port        string
		Password    string
		DB          int
		PoolSize    int
		ImportQueue string
		DLQSuffix   string
		JobTTL      time.Duration
	}

	s3Config struct {
		Endpoint  string
		Region    string
		Bucket    string
		AccessKey string
		SecretKey string
		UseSSL    bool
	}

	storageConfig struct {
		Driver   string // local | s3
		LocalDir string
		S3       s3Config
	}

	emailConfig struct {
		DefaultFromName    string
		DefaultFromAddress string
		SendgridAPIKey     string
	}

	logConfig struct {
		Level  string
		Format string // console | json
	}

	importConfig struct {
		MaxFileSize int64
		CacheTTL    time.Duration
		Workers     int
	}

	gradingConfig struct {
		ScaleFile string
	}

	Config struct {
		AppName         string
		Env             string
		Build           string
		Debug           bool
		TestMode        bool
		SecretKey       string
		DefaultLocale   string
		FrontendBaseURL string
		RollbarToken    string
		WorkDir         string
		Server          serverConfig
		Database        databaseConfig
		Redis           redisConfig
		Storage         storageConfig
		Email           emailConfig
		Log             logConfig
		Import          importConfig
		Grading         gradingConfig
	}
)

func (db databaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

func (r redisConfig) Address() string {
	return net.JoinHostPort(r.Host, r.Port)
}

func (s serverConfig) Address() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.Email.DefaultFromName, Address: c.Email.DefaultFromAddress}
}

// NewConfig loads the configuration for the current environment.
// ENV is one of DEV (local; default), TEST, QA or PROD. Values are read from `<ENV>_<KEY>` env vars,
// which may be provided by a `config/.env.<env>` file at the project root.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("appName", "Alef University")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "m8+x!b2v)kq^w3t_alef@9p=dz&uoxh2(h!x)#*c2(#yg4h^$ce")
	v.SetDefault("defaultLocale", "es")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverReadTimeout", 5*time.Second)
	v.SetDefault("serverWriteTimeout", 30*time.Second)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "alef")
	v.SetDefault("dbUser", "alef")
	v.SetDefault("dbPassword", "alef")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("redisHost", "")
	v.SetDefault("redisPort", "6379")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("redisPoolSize", 10)
	v.SetDefault("redisImportQueue", "alef:imports")
	v.SetDefault("redisDLQSuffix", ":dlq")
	v.SetDefault("redisJobTTL", 7*24*time.Hour)

	v.SetDefault("storageDriver", "local")
	v.SetDefault("storageLocalDir", filepath.Join(os.TempDir(), "alef-imports"))
	v.SetDefault("s3Endpoint", "")
	v.SetDefault("s3Region", "us-east-1")
	v.SetDefault("s3Bucket", "alef-imports")
	v.SetDefault("s3AccessKey", "")
	v.SetDefault("s3SecretKey", "")
	v.SetDefault("s3UseSSL", true)

	v.SetDefault("defaultFromName", "Alef University")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", "console")

	v.SetDefault("importMaxFileSize", int64(10<<20))
	v.SetDefault("importCacheTTL", 5*time.Minute)
	v.SetDefault("importWorkers", 4)

	v.SetDefault("gradeScaleFile", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("dbEngine", "memory")
	}
	v.SetEnvPrefix(env)

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
	v.AutomaticEnv()

	conf := &Config{
		AppName:         v.GetString("appName"),
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		DefaultLocale:   v.GetString("defaultLocale"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		RollbarToken:    v.GetString("rollbarToken"),
		WorkDir:         wd,
	}
	conf.Server = serverConfig{
		Host:                      v.GetString("serverHost"),
		Port:                      v.GetString("serverPort"),
		DebugHost:                 v.GetString("serverDebugHost"),
		ReadTimeout:               v.GetDuration("serverReadTimeout"),
		WriteTimeout:              v.GetDuration("serverWriteTimeout"),
		ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
		JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
		JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
	}
	conf.Database = databaseConfig{
		Engine:        v.GetString("dbEngine"),
		Host:          v.GetString("dbHost"),
		Port:          v.GetString("dbPort"),
		Name:          v.GetString("dbName"),
		User:          v.GetString("dbUser"),
		Password:      v.GetString("dbPassword"),
		AdminUser:     v.GetString("dbAdminUser"),
		AdminPassword: v.GetString("dbAdminPassword"),
		DisableTLS:    v.GetBool("dbDisableTLS"),
	}
	conf.Redis = redisConfig{
		Host:        v.GetString("redisHost"),
		Port:        v.GetString("redisPort"),
		Password:    v.GetString("redisPassword"),
		DB:          v.GetInt("redisDB"),
		PoolSize:    v.GetInt("redisPoolSize"),
		ImportQueue: v.GetString("redisImportQueue"),
		DLQSuffix:   v.GetString("redisDLQSuffix"),
		JobTTL:      v.GetDuration("redisJobTTL"),
	}
	conf.Storage = storageConfig{
		Driver:   v.GetString("storageDriver"),
		LocalDir: v.GetString("storageLocalDir"),
		S3: s3Config{
			Endpoint:  v.GetString("s3Endpoint"),
			Region:    v.GetString("s3Region"),
			Bucket:    v.GetString("s3Bucket"),
			AccessKey: v.GetString("s3AccessKey"),
			SecretKey: v.GetString("s3SecretKey"),
			UseSSL:    v.GetBool("s3UseSSL"),
		},
	}
	conf.Email = emailConfig{
		DefaultFromName:    v.GetString("defaultFromName"),
		DefaultFromAddress: v.GetString("defaultFromEmail"),
		SendgridAPIKey:     v.GetString("sendgridApiKey"),
	}
	conf.Log = logConfig{
		Level:  v.GetString("logLevel"),
		Format: v.GetString("logFormat"),
	}
	conf.Import = importConfig{
		MaxFileSize: v.GetInt64("importMaxFileSize"),
		CacheTTL:    v.GetDuration("importCacheTTL"),
		Workers:     v.GetInt("importWorkers"),
	}
	conf.Grading = gradingConfig{
		ScaleFile: v.GetString("gradeScaleFile"),
	}
	return conf
}

// RedisEnabled reports whether an import queue is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}
