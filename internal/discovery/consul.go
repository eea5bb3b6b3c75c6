package discovery

import (
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/consul/api"
	"go.uber.org/zap"

	"github.com/tdiprima/langchain-flask-api/config"
)

// Registrar announces the HTTP API to a Consul agent and removes the
// registration again on shutdown. The agent polls /healthz to decide
// whether the instance stays in the catalog.
type Registrar struct {
	client    *api.Client
	serviceID string
	logger    *zap.SugaredLogger
}

func NewRegistrar(cfg *config.ConsulConfig, logger *zap.SugaredLogger) (*Registrar, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.Address
	consulConfig.Scheme = cfg.Scheme
	consulConfig.Datacenter = cfg.Datacenter

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}
	if _, err := client.Status().Leader(); err != nil {
		return nil, fmt.Errorf("connect to consul: %w", err)
	}
	logger.Infow("consul connected", "address", cfg.Address)

	return &Registrar{client: client, logger: logger}, nil
}

// Register adds this instance to the catalog with an HTTP health check
// against /healthz.
func (r *Registrar) Register(serviceName string, port int) error {
	ip, err := localIP()
	if err != nil {
		return fmt.Errorf("resolve local address: %w", err)
	}

	r.serviceID = fmt.Sprintf("%s-%s-%d", serviceName, ip, port)
	registration := &api.AgentServiceRegistration{
		ID:      r.serviceID,
		Name:    serviceName,
		Tags:    []string{"http", "chat"},
		Address: ip,
		Port:    port,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/healthz", ip, port),
			Interval:                       (10 * time.Second).String(),
			Timeout:                        (3 * time.Second).String(),
			DeregisterCriticalServiceAfter: (time.Minute).String(),
		},
	}

	if err := r.client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("register service: %w", err)
	}
	r.logger.Infow("service registered", "name", serviceName, "id", r.serviceID)
	return nil
}

// Deregister removes the instance from the catalog. Safe to call when
// Register never succeeded.
func (r *Registrar) Deregister() {
	if r.serviceID == "" {
		return
	}
	if err := r.client.Agent().ServiceDeregister(r.serviceID); err != nil {
		r.logger.Errorw("service deregister failed", "id", r.serviceID, "error", err)
		return
	}
	r.logger.Infow("service deregistered", "id", r.serviceID)
}

// localIP finds the outbound interface address. No packets are sent.
func localIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}
