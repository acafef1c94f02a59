package discovery

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/consul/api"
	"github.com/rs/zerolog"

	"github.com/HuynhHoangThai/Oncademy-sub000/internal/config"
)

type ServiceRegistry struct {
	client *api.Client
	server config.ServerConfig
	log    zerolog.Logger
}

func NewServiceRegistry(consul config.ConsulConfig, server config.ServerConfig, log zerolog.Logger) (*ServiceRegistry, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = consul.Address

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %w", err)
	}

	return &ServiceRegistry{client: client, server: server, log: log}, nil
}

func registration(server config.ServerConfig) (*api.AgentServiceRegistration, error) {
	port, err := strconv.Atoi(server.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid service port %q: %w", server.Port, err)
	}
	return &api.AgentServiceRegistration{
		ID:      server.ServiceID,
		Name:    server.ServiceName,
		Port:    port,
		Address: server.ServiceAddress,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s:%s/health", server.ServiceAddress, server.Port),
			Interval: "10s",
			Timeout:  "5s",
		},
		Tags: []string{"quiz", "dashboard"},
	}, nil
}

func (sr *ServiceRegistry) Register() error {
	reg, err := registration(sr.server)
	if err != nil {
		return err
	}
	if err := sr.client.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("failed to register service with Consul: %w", err)
	}

	sr.log.Info().Str("service_id", reg.ID).Msg("registered service with Consul")
	return nil
}

// Deregister removes the service from Consul
func (sr *ServiceRegistry) Deregister() error {
	return sr.client.Agent().ServiceDeregister(sr.server.ServiceID)
}
