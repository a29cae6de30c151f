package consul

import (
	"fmt"
	"os"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"

	"sos-service/config"
)

// ConsulConn registers this process with the local consul agent so other
// services (and the health dashboard) can find it.
type ConsulConn struct {
	logger    *zap.SugaredLogger
	cfg       *config.Config
	client    *consulapi.Client
	serviceID string
}

func NewConsulConn(logger *zap.SugaredLogger, cfg *config.Config) *ConsulConn {
	return &ConsulConn{
		logger: logger,
		cfg:    cfg,
	}
}

func (c *ConsulConn) Connect() *consulapi.Client {
	conf := consulapi.DefaultConfig()
	conf.Address = c.cfg.ConsulAddress

	client, err := consulapi.NewClient(conf)
	if err != nil {
		c.logger.Fatalf("Failed to create consul client: %v", err)
	}
	c.client = client

	if err := c.register(); err != nil {
		c.logger.Warnf("Consul registration failed: %v", err)
	}
	return client
}

func (c *ConsulConn) register() error {
	hostname, _ := os.Hostname()
	port, err := strconv.Atoi(c.cfg.Port)
	if err != nil {
		return fmt.Errorf("invalid service port %q: %w", c.cfg.Port, err)
	}

	c.serviceID = fmt.Sprintf("%s-%s-%s", c.cfg.ServiceName, hostname, c.cfg.Port)
	reg := &consulapi.AgentServiceRegistration{
		ID:      c.serviceID,
		Name:    c.cfg.ServiceName,
		Port:    port,
		Address: hostname,
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/api/health", hostname, port),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	if err := c.client.Agent().ServiceRegister(reg); err != nil {
		return err
	}
	c.logger.Infof("Registered with consul as %s", c.serviceID)
	return nil
}

func (c *ConsulConn) Deregister() {
	if c.client == nil || c.serviceID == "" {
		return
	}
	if err := c.client.Agent().ServiceDeregister(c.serviceID); err != nil {
		c.logger.Warnf("Consul deregister failed: %v", err)
	}
}

// ServiceAddress resolves one passing instance of a named service.
func ServiceAddress(client *consulapi.Client, name string) (string, error) {
	entries, _, err := client.Health().Service(name, "", true, nil)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no passing instance of %s in consul", name)
	}
	svc := entries[0].Service
	addr := svc.Address
	if addr == "" {
		addr = entries[0].Node.Address
	}
	return fmt.Sprintf("http://%s:%d", addr, svc.Port), nil
}
