package main

import (
	"fmt"
	"strings"

	"distill/internal/config"
)

// commandContext carries lazily loaded configuration and the resolved daemon
// address across subcommands.
type commandContext struct {
	configFlag *string
	serverFlag *string
	jsonFlag   *bool

	cfg        *config.Config
	configPath string
}

func newCommandContext(configFlag, serverFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		serverFlag: serverFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	cfg, resolvedPath, _, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	c.configPath = resolvedPath
	return cfg, nil
}

// client resolves the daemon API address from the --server flag or the
// configured bind address and returns a ready client.
func (c *commandContext) client() (*apiClient, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	server := ""
	if c.serverFlag != nil {
		server = strings.TrimSpace(*c.serverFlag)
	}
	if server == "" {
		server = cfg.Paths.APIBind
	}
	baseURL, err := normalizeServerURL(server)
	if err != nil {
		return nil, err
	}
	return newAPIClient(baseURL, cfg.Paths.APIToken), nil
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// normalizeServerURL turns a bind address into a reachable base URL. A
// wildcard host is replaced with loopback.
func normalizeServerURL(server string) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", fmt.Errorf("no daemon address configured (set paths.api_bind or pass --server)")
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	server = strings.TrimSuffix(server, "/")
	for _, wildcard := range []string{"0.0.0.0", "[::]", "::"} {
		server = strings.Replace(server, "://"+wildcard+":", "://127.0.0.1:", 1)
	}
	return server, nil
}
