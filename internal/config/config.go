package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host        string   `koanf:"host"`
	Port        int      `koanf:"port"`
	FrontendUrl string   `koanf:"frontendurl"`
	Database    Database `koanf:"db"`
	Auth        Auth     `koanf:"auth"`
	Limits      Limits   `koanf:"limits"`
	Booking     Booking  `koanf:"booking"`
	Google      Google   `koanf:"google"`
	Secret      Secret   `koanf:"secret"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
	// SSLMode is passed to Postgres as sslmode, "disable" when empty.
	SSLMode         string        `koanf:"sslmode"`
	MaxConns        int32         `koanf:"maxconns"`
	MinConns        int32         `koanf:"minconns"`
	MaxConnLifetime time.Duration `koanf:"maxconnlifetime"`
	ConnectTimeout  time.Duration `koanf:"connecttimeout"`
	MigrationsDir   string        `koanf:"migrationsdir"`
}

type Auth struct {
	JwtSecret       string        `koanf:"jwtsecret"`
	JwtAlgo         string        `koanf:"jwtalgo"`
	AccessTokenTTL  time.Duration `koanf:"accesstokenttl"`
	OneTimeTokenTTL time.Duration `koanf:"onetimetokenttl"`
	// Comma separated list of email suffixes, e.g. "@example.org,admin@other.org".
	AdminAllowList  string        `koanf:"adminallowlist"`
	SignedUrlSecret string        `koanf:"signedurlsecret"`
	SignedUrlTTL    time.Duration `koanf:"signedurlttl"`
}

// Limits configures the calendar connection quota. Zero or negative means unlimited.
type Limits struct {
	CalendarConnections int            `koanf:"calendarconnections"`
	Levels              map[string]int `koanf:"levels"`
}

type Booking struct {
	ReservationTTL  time.Duration `koanf:"reservationttl"`
	JanitorInterval time.Duration `koanf:"janitorinterval"`
	RateLimit       float64       `koanf:"ratelimit"`
	RateLimitBurst  int           `koanf:"ratelimitburst"`
}

type Google struct {
	ClientId     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
}

type Secret struct {
	Key string `koanf:"key"`
}

// AdminEmails splits the configured allow list, dropping empty entries.
func (a Auth) AdminEmails() []string {
	var out []string
	for _, s := range strings.Split(a.AdminAllowList, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func defaults() Application {
	return Application{
		Host:        "http://localhost:5000",
		Port:        5000,
		FrontendUrl: "http://localhost:8080",
		Database: Database{
			Host:            "localhost",
			Port:            5432,
			User:            "bookslot",
			Pass:            "",
			Name:            "bookslot",
			Schema:          "bookslot",
			SSLMode:         "disable",
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			ConnectTimeout:  10 * time.Second,
		},
		Auth: Auth{
			JwtAlgo:         "HS256",
			AccessTokenTTL:  24 * time.Hour,
			OneTimeTokenTTL: 15 * time.Minute,
			SignedUrlTTL:    30 * 24 * time.Hour,
		},
		Booking: Booking{
			ReservationTTL:  5 * time.Minute,
			JanitorInterval: time.Minute,
			RateLimit:       1,
			RateLimitBurst:  5,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "BOOKSLOT_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "BOOKSLOT_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
