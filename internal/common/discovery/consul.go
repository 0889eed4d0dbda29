package discovery

import (
	"fmt"

	"github.com/hashicorp/consul/api"
)

// Registration 服务注册参数
type Registration struct {
	ServiceName string
	ServiceID   string
	Host        string
	Port        int
	Tags        []string
	// CheckType 健康检查类型：grpc / http
	CheckType string
	// HTTPCheckPath CheckType 为 http 时的检查路径
	HTTPCheckPath string
}

// Registry Consul 服务注册器
type Registry struct {
	client *api.Client
}

// NewRegistry 创建 Consul 注册器
func NewRegistry(consulHost string, consulPort int) (*Registry, error) {
	client, err := api.NewClient(&api.Config{
		Address: fmt.Sprintf("%s:%d", consulHost, consulPort),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return &Registry{client: client}, nil
}

// Register 注册服务与健康检查
func (r *Registry) Register(reg Registration) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("registry is not initialized")
	}
	if reg.ServiceName == "" || reg.Host == "" || reg.Port <= 0 {
		return fmt.Errorf("invalid registration: name=%s host=%s port=%d", reg.ServiceName, reg.Host, reg.Port)
	}
	if reg.ServiceID == "" {
		reg.ServiceID = fmt.Sprintf("%s-%s-%d", reg.ServiceName, reg.Host, reg.Port)
	}

	check := &api.AgentServiceCheck{
		Interval:                       "10s",
		Timeout:                        "5s",
		DeregisterCriticalServiceAfter: "30s",
	}
	switch reg.CheckType {
	case "http":
		path := reg.HTTPCheckPath
		if path == "" {
			path = "/healthz"
		}
		check.HTTP = fmt.Sprintf("http://%s:%d%s", reg.Host, reg.Port, path)
	default:
		check.GRPC = fmt.Sprintf("%s:%d", reg.Host, reg.Port)
	}

	return r.client.Agent().ServiceRegister(&api.AgentServiceRegistration{
		ID:      reg.ServiceID,
		Name:    reg.ServiceName,
		Address: reg.Host,
		Port:    reg.Port,
		Tags:    reg.Tags,
		Check:   check,
	})
}

// Deregister 注销服务
func (r *Registry) Deregister(serviceID string) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("registry is not initialized")
	}
	return r.client.Agent().ServiceDeregister(serviceID)
}

// Client 暴露底层 Consul 客户端（KV 等场景复用连接）
func (r *Registry) Client() *api.Client {
	if r == nil {
		return nil
	}
	return r.client
}
