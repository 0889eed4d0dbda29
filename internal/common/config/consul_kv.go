package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/consul/api"
)

// LoadConfigFromConsulKV 从 Consul KV 拉取配置。
//
// 约定：
// - key 对应的 value 是 JSON，结构与本地配置文件一致
// - 缺省字段落回默认配置，KV 里只放差异项即可
// - 一次性读取，动态 watch 由上层决定
func LoadConfigFromConsulKV(address, key string) (*Config, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("consul kv key is empty")
	}

	client, err := api.NewClient(&api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	pair, _, err := client.KV().Get(key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read consul kv %s: %w", key, err)
	}
	if pair == nil || len(pair.Value) == 0 {
		return nil, fmt.Errorf("consul kv %s is empty or missing", key)
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(pair.Value, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse consul kv %s: %w", key, err)
	}
	globalConfig = cfg
	return cfg, nil
}
