package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Database    Database    `yaml:"database" json:"database"`
	Cache       Cache       `yaml:"cache" json:"cache"`
	Board       Board       `yaml:"board" json:"board"`
	Attachments Attachments `yaml:"attachments" json:"attachments"`
}

type Database struct {
	Driver  string        `yaml:"driver" json:"driver" env:"INQUIRYBOARD_DB_DRIVER" env-default:"sqlite"`
	DSN     string        `yaml:"dsn" json:"dsn" env:"INQUIRYBOARD_DB_DSN" env-default:"./inquiryboard.db"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"INQUIRYBOARD_DB_TIMEOUT" env-default:"5s"`
}

type Cache struct {
	Backend       string        `yaml:"backend" json:"backend" env:"INQUIRYBOARD_CACHE_BACKEND" env-default:"memory"`
	Size          int           `yaml:"size" json:"size" env:"INQUIRYBOARD_CACHE_SIZE" env-default:"1024"`
	TTL           time.Duration `yaml:"ttl" json:"ttl" env:"INQUIRYBOARD_CACHE_TTL" env-default:"60s"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr" env:"INQUIRYBOARD_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string        `yaml:"redis_password" json:"redis_password" env:"INQUIRYBOARD_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db" env:"INQUIRYBOARD_REDIS_DB" env-default:"0"`
}

type Board struct {
	Title           string        `yaml:"title" json:"title" env:"INQUIRYBOARD_TITLE" env-default:"Inquiries"`
	Description     string        `yaml:"description" json:"description" env:"INQUIRYBOARD_DESCRIPTION"`
	BaseURL         string        `yaml:"base_url" json:"base_url" env:"INQUIRYBOARD_BASE_URL" env-default:"http://localhost:8080"`
	PageSize        int           `yaml:"page_size" json:"page_size" env:"INQUIRYBOARD_PAGE_SIZE" env-default:"10"`
	RecentPosts     int           `yaml:"recent_posts" json:"recent_posts" env:"INQUIRYBOARD_RECENT_POSTS" env-default:"3"`
	RecentPhotos    int           `yaml:"recent_photos" json:"recent_photos" env:"INQUIRYBOARD_RECENT_PHOTOS" env-default:"4"`
	RecentComments  int           `yaml:"recent_comments" json:"recent_comments" env:"INQUIRYBOARD_RECENT_COMMENTS" env-default:"2"`
	CategorySummary int           `yaml:"category_summary" json:"category_summary" env:"INQUIRYBOARD_CATEGORY_SUMMARY" env-default:"3"`
	FloodInterval   time.Duration `yaml:"flood_interval" json:"flood_interval" env:"INQUIRYBOARD_FLOOD_INTERVAL" env-default:"0s"`
	Hasher          string        `yaml:"hasher" json:"hasher" env:"INQUIRYBOARD_HASHER" env-default:"tripcode"`
	HasherKey       string        `yaml:"hasher_key" json:"hasher_key" env:"INQUIRYBOARD_HASHER_KEY"`
}

type Attachments struct {
	Dir string `yaml:"dir" json:"dir" env:"INQUIRYBOARD_ATTACHMENT_DIR" env-default:"./files"`
}

// New reads YAML, TOML or JSON files with cleanenv. Any other path is loaded
// as a dotenv file first. Environment variables win in both cases, and an
// empty path reads the environment only.
func New(path string) (*Config, error) {
	conf := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml", ".toml", ".json":
		if err := cleanenv.ReadConfig(path, conf); err != nil {
			return nil, fmt.Errorf("cleanenv.ReadConfig: %w", err)
		}
	default:
		if path != "" {
			if err := godotenv.Overload(path); err != nil {
				return nil, fmt.Errorf("godotenv.Overload: %w", err)
			}
		}
		if err := cleanenv.ReadEnv(conf); err != nil {
			return nil, fmt.Errorf("cleanenv.ReadEnv: %w", err)
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("config: %s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}

func (c *Config) Validate() error {
	if err := oneOf("database driver", c.Database.Driver, "memory", "sqlite", "postgres"); err != nil {
		return err
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("config: database dsn is required for %s", c.Database.Driver)
	}
	if err := oneOf("cache backend", c.Cache.Backend, "memory", "redis", "none"); err != nil {
		return err
	}
	if err := oneOf("hasher", c.Board.Hasher, "tripcode", "hmac"); err != nil {
		return err
	}
	if c.Board.Hasher == "hmac" && c.Board.HasherKey == "" {
		return fmt.Errorf("config: hasher key is required for hmac")
	}
	if c.Board.PageSize <= 0 {
		return fmt.Errorf("config: page size must be positive, got %d", c.Board.PageSize)
	}
	for name, v := range map[string]int{
		"recent posts":     c.Board.RecentPosts,
		"recent photos":    c.Board.RecentPhotos,
		"recent comments":  c.Board.RecentComments,
		"category summary": c.Board.CategorySummary,
	} {
		if v <= 0 {
			return fmt.Errorf("config: %s limit must be positive, got %d", name, v)
		}
	}
	return nil
}
