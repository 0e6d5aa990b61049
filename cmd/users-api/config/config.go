package config

import (
	"errors"
)

// BaseConfig is the users-api application configuration, loaded by the
// go-config container from config/app.json plus env overrides.
type BaseConfig struct {
	Server      Server      `json:"server" koanf:"server"`
	Auth        Auth        `json:"auth" koanf:"auth"`
	Persistence Persistence `json:"persistence" koanf:"persistence"`
}

type Server struct {
	Address string `json:"address" koanf:"address"`
}

type Auth struct {
	SigningKey string `json:"signing_key" koanf:"signing_key"`
	Issuer     string `json:"issuer" koanf:"issuer"`
	Timezone   string `json:"timezone" koanf:"timezone"`
	MinAge     int    `json:"min_age" koanf:"min_age"`
}

type Persistence struct {
	DSN string `json:"dsn" koanf:"dsn"`
}

func (c BaseConfig) Validate() error {
	if c.Auth.SigningKey == "" {
		return errors.New("auth.signing_key is required")
	}
	if c.Auth.Issuer == "" {
		return errors.New("auth.issuer is required")
	}
	return nil
}

func (c BaseConfig) GetServer() Server           { return c.Server }
func (c BaseConfig) GetAuth() Auth               { return c.Auth }
func (c BaseConfig) GetPersistence() Persistence { return c.Persistence }

func (s Server) GetAddress() string {
	if s.Address == "" {
		return ":8080"
	}
	return s.Address
}

// Auth satisfies the users.Config contract.

func (a Auth) GetSigningKey() string { return a.SigningKey }
func (a Auth) GetIssuer() string     { return a.Issuer }
func (a Auth) GetTimezone() string   { return a.Timezone }
func (a Auth) GetMinAge() int        { return a.MinAge }

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file:users.db?cache=shared&mode=rwc"
	}
	return p.DSN
}
