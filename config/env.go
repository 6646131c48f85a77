// Package config loads devsync's two configuration layers: the process
// environment carries credentials and connection details, the rules file
// carries what to measure and how. Both are loaded once in main and passed
// down explicitly; nothing in this module reads ambient configuration.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Env is the process environment. GitHub access is either a personal
// access token or a GitHub App (app id + installation id + private key);
// the App wins when both are set.
type Env struct {
	GitHubToken          string `env:"GITHUB_TOKEN"`
	GitHubAppID          int64  `env:"GITHUB_APP_ID"`
	GitHubInstallationID int64  `env:"GITHUB_INSTALLATION_ID"`
	GitHubPrivateKeyPath string `env:"GITHUB_PRIVATE_KEY_PATH"`

	PostgresHost     string `env:"POSTGRES_HOST" env-default:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" env-default:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" env-default:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresDB       string `env:"POSTGRES_DB" env-default:"devsync"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" env-default:"disable"`

	SlackToken   string `env:"SLACK_TOKEN"`
	SlackChannel string `env:"SLACK_CHANNEL"`

	Port      string `env:"PORT" env-default:"8080"`
	Debug     bool   `env:"DEBUG"`
	RulesPath string `env:"DEVSYNC_RULES" env-default:"devsync.yaml"`
}

// LoadEnv reads the environment, loading a .env file first when one exists.
func LoadEnv() (*Env, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var env Env
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &env, nil
}

// PostgresDSN builds the connection URL shared by the pool and the
// migration runner.
func (e *Env) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		e.PostgresUser, e.PostgresPassword, e.PostgresHost, e.PostgresPort, e.PostgresDB, e.PostgresSSLMode)
}

// UseGitHubApp reports whether App credentials are configured.
func (e *Env) UseGitHubApp() bool {
	return e.GitHubAppID != 0 && e.GitHubInstallationID != 0 && e.GitHubPrivateKeyPath != ""
}
