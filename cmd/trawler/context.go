package main

import (
	"errors"
	"io/fs"
	"strings"
	"sync"

	"trawler/internal/client"
	"trawler/internal/config"
)

type commandContext struct {
	configFlag  *string
	addressFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, addressFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		addressFlag: addressFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := config.DefaultConfigPath()
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			path = *c.configFlag
		}
		cfg, err := config.Load(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// apiAddress picks the daemon address: explicit flag first, then config.
func (c *commandContext) apiAddress() (string, error) {
	if c.addressFlag != nil && strings.TrimSpace(*c.addressFlag) != "" {
		return strings.TrimSpace(*c.addressFlag), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.APIBind, nil
}

func (c *commandContext) newClient() (*client.Client, error) {
	address, err := c.apiAddress()
	if err != nil {
		return nil, err
	}
	return client.New(address, nil), nil
}
