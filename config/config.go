package config

import (
	"os"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/metric"
	"gopkg.in/yaml.v3"

	"github.com/openkeydir/key-directory/db"
)

const CName = "config"

func NewFromFile(path string) (c *Config, err error) {
	c = &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return
}

type Config struct {
	Metric metric.Config `yaml:"metric"`
	Mongo  db.Mongo      `yaml:"mongo"`
}

func (c *Config) Init(a *app.App) (err error) {
	return
}

func (c Config) Name() (name string) {
	return CName
}

func (c Config) GetMetric() metric.Config {
	return c.Metric
}

func (c Config) GetMongo() db.Mongo {
	return c.Mongo
}
