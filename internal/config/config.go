// Package config содержит логику чтения конфигурации конвейера StarFruit.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress              string  `env:"RUN_ADDRESS"`
	DatabaseURI             string  `env:"DATABASE_URI"`
	StagingPath             string  `env:"STAGING_PATH"`
	StagingBaseURL          string  `env:"STAGING_BASE_URL"`
	UserServiceAddress      string  `env:"USER_SERVICE_ADDRESS"`
	ProductServiceAddress   string  `env:"PRODUCT_SERVICE_ADDRESS"`
	SentimentServiceAddress string  `env:"SENTIMENT_SERVICE_ADDRESS"`
	CombineServiceAddress   string  `env:"COMBINE_SERVICE_ADDRESS"`
	KafkaBootstrap          string  `env:"KAFKA_BOOTSTRAP"`
	POSTopic                string  `env:"POS_TOPIC"`
	POSGroupID              string  `env:"POS_GROUP_ID"`
	EnrichedTopic           string  `env:"ENRICHED_TOPIC"`
	HighValueThreshold      float64 `env:"HIGH_VALUE_THRESHOLD"`
	GroupingIntervalSec     int     `env:"GROUPING_INTERVAL_SEC"`
	APIKey                  string  `env:"API_KEY"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.StagingPath, "s", "./data/staging", "staging store directory")
	flag.StringVar(&cfg.StagingBaseURL, "b", "", "base URL of the staging container for combine requests")
	flag.StringVar(&cfg.UserServiceAddress, "user-service", "", "user validation service address")
	flag.StringVar(&cfg.ProductServiceAddress, "product-service", "", "product validation service address")
	flag.StringVar(&cfg.SentimentServiceAddress, "sentiment-service", "", "sentiment scoring service address")
	flag.StringVar(&cfg.CombineServiceAddress, "combine-service", "", "order combine service address")
	flag.StringVar(&cfg.KafkaBootstrap, "kafka-bootstrap", "", "kafka bootstrap servers, e.g. localhost:9092")
	flag.StringVar(&cfg.POSTopic, "pos-topic", "pos.events", "kafka topic with raw POS events")
	flag.StringVar(&cfg.POSGroupID, "pos-group", "starfruit", "kafka consumer group id for POS events")
	flag.StringVar(&cfg.EnrichedTopic, "enriched-topic", "ratings.enriched", "kafka topic for rating enrichment events")
	flag.Float64Var(&cfg.HighValueThreshold, "t", 100, "high-value receipt cost threshold")
	flag.IntVar(&cfg.GroupingIntervalSec, "grouping-interval", 10, "staging grouping pass interval, seconds")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key for the rating endpoints")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.StagingPath != "" {
		cfg.StagingPath = envCfg.StagingPath
	}
	if envCfg.StagingBaseURL != "" {
		cfg.StagingBaseURL = envCfg.StagingBaseURL
	}
	if envCfg.UserServiceAddress != "" {
		cfg.UserServiceAddress = envCfg.UserServiceAddress
	}
	if envCfg.ProductServiceAddress != "" {
		cfg.ProductServiceAddress = envCfg.ProductServiceAddress
	}
	if envCfg.SentimentServiceAddress != "" {
		cfg.SentimentServiceAddress = envCfg.SentimentServiceAddress
	}
	if envCfg.CombineServiceAddress != "" {
		cfg.CombineServiceAddress = envCfg.CombineServiceAddress
	}
	if envCfg.KafkaBootstrap != "" {
		cfg.KafkaBootstrap = envCfg.KafkaBootstrap
	}
	if envCfg.POSTopic != "" {
		cfg.POSTopic = envCfg.POSTopic
	}
	if envCfg.POSGroupID != "" {
		cfg.POSGroupID = envCfg.POSGroupID
	}
	if envCfg.EnrichedTopic != "" {
		cfg.EnrichedTopic = envCfg.EnrichedTopic
	}
	// для числовых параметров ноль — валидное значение, поэтому приоритет
	// окружения определяется наличием переменной, а не сравнением с нулём
	if _, ok := os.LookupEnv("HIGH_VALUE_THRESHOLD"); ok {
		cfg.HighValueThreshold = envCfg.HighValueThreshold
	}
	if _, ok := os.LookupEnv("GROUPING_INTERVAL_SEC"); ok {
		cfg.GroupingIntervalSec = envCfg.GroupingIntervalSec
	}
	if envCfg.APIKey != "" {
		cfg.APIKey = envCfg.APIKey
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
