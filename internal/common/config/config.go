package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Storage    StorageConfig    `json:"storage"`
	Auth       AuthConfig       `json:"auth"`
	Inspection InspectionConfig `json:"inspection"`
	Consul     ConsulConfig     `json:"consul"`
	Jaeger     JaegerConfig     `json:"jaeger"`
	Log        LogConfig        `json:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name     string `json:"name"`      // 服务名称
	Host     string `json:"host"`      // 服务地址
	GRPCPort int    `json:"grpc_port"` // gRPC 端口（health/ops）
	HTTPPort int    `json:"http_port"` // HTTP 端口（巡检会话 API）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `json:"host"`     // 数据库地址
	Port     int    `json:"port"`     // 数据库端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// StorageConfig 照片对象存储配置
type StorageConfig struct {
	Driver          string `json:"driver"`           // local / firebase
	LocalDir        string `json:"local_dir"`        // local 驱动：落盘目录
	PublicBaseURL   string `json:"public_base_url"`  // local 驱动：对外 URL 前缀
	Bucket          string `json:"bucket"`           // firebase 驱动：bucket 名
	CredentialsFile string `json:"credentials_file"` // firebase 驱动：服务账号文件
	StagingDir      string `json:"staging_dir"`      // 拍照暂存目录（上传前）
	FCMEnabled      bool   `json:"fcm_enabled"`      // 提交成功后是否推送 FCM
}

// AuthConfig 鉴权配置（只解析身份，不做用户体系）
type AuthConfig struct {
	Enabled     bool     `json:"enabled"`
	JWTSecret   string   `json:"jwt_secret"`
	Issuer      string   `json:"issuer"`
	Audience    string   `json:"audience"`
	PublicPaths []string `json:"public_paths"` // 免鉴权路径前缀（如 /healthz）
}

// InspectionConfig 巡检流程配置
type InspectionConfig struct {
	DefaultLocale  string         `json:"default_locale"`  // 标题解析的默认语言
	RecurrenceDays map[string]int `json:"recurrence_days"` // 按类型的复检间隔（天），0 表示不排期
	StagingMaxAge  int            `json:"staging_max_age"` // 暂存照片回收阈值（分钟）
}

// ConsulConfig Consul 配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger 配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// LogConfig 日志配置
type LogConfig struct {
	Driver string `json:"driver"` // zap / logrus
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig 加载配置：文件不存在时退回默认配置（开发环境友好）。
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		if _, err = os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			err = nil
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}

		if unmarshalErr := json.Unmarshal(data, globalConfig); unmarshalErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", unmarshalErr)
			return
		}
	})

	if err != nil {
		return nil, err
	}

	return globalConfig, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "inspection-service",
			Host:     "0.0.0.0",
			GRPCPort: 50051,
			HTTPPort: 8080,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "fleetlink",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Storage: StorageConfig{
			Driver:        "local",
			LocalDir:      "data/photos",
			PublicBaseURL: "http://localhost:8080/photos",
			StagingDir:    "data/staging",
		},
		Auth: AuthConfig{
			Enabled:     false,
			PublicPaths: []string{"/healthz"},
		},
		Inspection: InspectionConfig{
			DefaultLocale: "en",
			RecurrenceDays: map[string]int{
				"routine": 30,
				"safety":  90,
			},
			StagingMaxAge: 240,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "localhost:6831",
			Sampler:  1.0,
		},
		Log: LogConfig{
			Driver: "zap",
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
	}
}
