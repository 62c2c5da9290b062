package config

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
)

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address            string `yaml:"address"`            // MongoDB 服务器地址
	Username           string `yaml:"username"`           // 用户名
	Password           string `yaml:"password"`           // 密码
	Database           string `yaml:"database"`           // 数据库名称
	TaskCollection     string `yaml:"taskCollection"`     // 调查任务集合
	RegistryCollection string `yaml:"registryCollection"` // 骗局登记库集合
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 默认存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`     // Kafka Broker 地址列表
	TaskTopic   string   `yaml:"taskTopic"`   // 调查任务主题
	ResultTopic string   `yaml:"resultTopic"` // 调查结果主题
	GroupID     string   `yaml:"groupID"`     // 消费者组 ID
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Redis   RedisConfig `yaml:"redis"`   // Redis 数据库配置
	MongoDB MongoConfig `yaml:"mongodb"` // MongoDB 数据库配置
	MinIO   MinIOConfig `yaml:"minio"`   // MinIO 对象存储配置
	Kafka   KafkaConfig `yaml:"kafka"`   // Kafka 消息队列配置
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address string `yaml:"address"` // 监听地址 (例如: ":8080")
}

// AuthConfig 用于配置 API 认证。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥
	TokenTTL  int    `yaml:"tokenTTL"`  // JWT 令牌的有效期（秒）
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider string       `yaml:"provider"` // LLM提供商 (例如: "gemini", "openai")，留空则禁用模型推理路径
	Gemini   GeminiConfig `yaml:"gemini"`   // Gemini 模型配置
	OpenAI   OpenAIConfig `yaml:"openai"`   // OpenAI 模型配置
}

// GeminiConfig 包含了 Gemini 模型的配置。
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"` // Gemini API 密钥
	Model  string `yaml:"model"`  // Gemini 模型名称
}

// OpenAIConfig 包含了 OpenAI 模型的配置。
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`  // OpenAI API 密钥
	Model   string `yaml:"model"`   // 模型名称 (例如: "gpt-4o-mini")
	BaseURL string `yaml:"baseURL"` // 可选的自定义 API 地址
}

// AdapterTimeouts 定义了每个验证工具各自的超时时间（秒）。
type AdapterTimeouts struct {
	RegistryLookup   int `yaml:"registryLookup"`   // 骗局登记库查询超时
	DomainReputation int `yaml:"domainReputation"` // 域名信誉检查超时
	PhoneValidator   int `yaml:"phoneValidator"`   // 电话号码模式校验超时
	WebSearch        int `yaml:"webSearch"`        // 网络证据搜索超时
	CompanyVerifier  int `yaml:"companyVerifier"`  // 公司登记核验超时
}

// AdapterEndpoints 定义了各外部查询服务的 HTTP 端点。
type AdapterEndpoints struct {
	DomainReputation string `yaml:"domainReputation"` // 域名信誉服务地址
	WebSearch        string `yaml:"webSearch"`        // 搜索服务地址
	CompanyRegistry  string `yaml:"companyRegistry"`  // 官方公司注册库查询地址
}

// CacheTTLs 定义了各工具结果缓存的 TTL（秒）。
type CacheTTLs struct {
	WebSearch       int `yaml:"webSearch"`        // 搜索结果缓存时长（数小时到一天）
	CompanyVerifier int `yaml:"companyVerifier"`  // 公司核验结果缓存时长（数周）
	DomainRep       int `yaml:"domainReputation"` // 域名信誉缓存时长
}

// HeuristicConfig 定义了确定性兜底评分器的权重与阈值。
// 这些数值是可调的初始默认值，应根据标注语料校准后再覆盖。
type HeuristicConfig struct {
	RegistryPointsPerReport int `yaml:"registryPointsPerReport"` // 每条举报记录的得分
	RegistryPointsCap       int `yaml:"registryPointsCap"`       // 登记库得分上限
	ReputationSeverePoints  int `yaml:"reputationSeverePoints"`  // 严重信誉信号得分
	ReputationMediumPoints  int `yaml:"reputationMediumPoints"`  // 中等信誉信号得分
	ReputationMinorPoints   int `yaml:"reputationMinorPoints"`   // 轻微信誉信号得分
	WebPointsPerSource      int `yaml:"webPointsPerSource"`      // 每个独立来源的得分
	WebPointsCap            int `yaml:"webPointsCap"`            // 网络证据得分上限
	PatternFlagPoints       int `yaml:"patternFlagPoints"`       // 纯模式类信号的固定得分
	CompanySuspectPoints    int `yaml:"companySuspectPoints"`    // 公司可疑信号得分
	HighThreshold           int `yaml:"highThreshold"`           // 高风险阈值
	MediumThreshold         int `yaml:"mediumThreshold"`         // 中风险阈值
}

// CircuitBreakerConfig 定义了外部调用熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// InvestigationConfig 汇总了调查引擎本身的行为参数。
type InvestigationConfig struct {
	TaskDeadlineSeconds  int                  `yaml:"taskDeadlineSeconds"`  // 任务级硬超时（默认 60）
	MaxAttempts          int                  `yaml:"maxAttempts"`          // 基础设施失败时的最大尝试次数
	ConcurrencyLimit     int                  `yaml:"concurrencyLimit"`     // 工具调用的全局并发上限
	ReasonerTimeoutSecs  int                  `yaml:"reasonerTimeoutSecs"`  // 模型推理路径的超时时间
	WebSearchCallBudget  int                  `yaml:"webSearchCallBudget"`  // 单个任务允许的搜索调用数
	HeartbeatSeconds     int                  `yaml:"heartbeatSeconds"`     // 进度通道心跳间隔
	AllowedDomains       []string             `yaml:"allowedDomains"`       // 默认不可疑的域名白名单
	AllowedProviders     []string             `yaml:"allowedProviders"`     // 默认不可疑的邮箱/支付服务商白名单
	KnownCompanies       []string             `yaml:"knownCompanies"`       // 已知合法公司列表（仿冒检测用）
	TrustedSourceDomains []string             `yaml:"trustedSourceDomains"` // 高可信投诉/消费者保护站点
	ShortenerDomains     []string             `yaml:"shortenerDomains"`     // 已知短链服务域名
	AdapterTimeouts      AdapterTimeouts      `yaml:"adapterTimeouts"`      // 各工具超时
	AdapterEndpoints     AdapterEndpoints     `yaml:"adapterEndpoints"`     // 各外部服务端点
	CacheTTLs            CacheTTLs            `yaml:"cacheTTLs"`            // 各工具缓存 TTL
	Heuristic            HeuristicConfig      `yaml:"heuristic"`            // 兜底评分参数
	CircuitBreaker       CircuitBreakerConfig `yaml:"circuitBreaker"`       // 外部调用熔断配置
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App           AppInfo             `yaml:"app"`           // 应用程序信息
	Server        ServerConfig        `yaml:"server"`        // HTTP 服务配置
	Auth          AuthConfig          `yaml:"auth"`          // 认证配置
	LLM           LLMConfig           `yaml:"llm"`           // LLM 配置部分
	Logger        LoggerConfig        `yaml:"logger"`        // 日志记录器配置
	Databases     DatabaseConfigs     `yaml:"databases"`     // 数据库配置
	Investigation InvestigationConfig `yaml:"investigation"` // 调查引擎配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.Investigation.ApplyDefaults()
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Databases.MongoDB.TaskCollection == "" {
		cfg.Databases.MongoDB.TaskCollection = "investigations"
	}
	if cfg.Databases.MongoDB.RegistryCollection == "" {
		cfg.Databases.MongoDB.RegistryCollection = "scam_reports"
	}
	return &cfg, nil
}

// ApplyDefaults 为未配置的调查参数填充默认值。
func (inv *InvestigationConfig) ApplyDefaults() {
	if inv.TaskDeadlineSeconds <= 0 {
		inv.TaskDeadlineSeconds = 60
	}
	if inv.MaxAttempts <= 0 {
		inv.MaxAttempts = 3
	}
	if inv.ConcurrencyLimit <= 0 {
		inv.ConcurrencyLimit = 8
	}
	if inv.ReasonerTimeoutSecs <= 0 {
		inv.ReasonerTimeoutSecs = 5
	}
	if inv.WebSearchCallBudget <= 0 {
		inv.WebSearchCallBudget = 3
	}
	if inv.HeartbeatSeconds <= 0 {
		inv.HeartbeatSeconds = 15
	}
	if inv.AdapterTimeouts.RegistryLookup <= 0 {
		inv.AdapterTimeouts.RegistryLookup = 2
	}
	if inv.AdapterTimeouts.DomainReputation <= 0 {
		inv.AdapterTimeouts.DomainReputation = 6
	}
	if inv.AdapterTimeouts.PhoneValidator <= 0 {
		inv.AdapterTimeouts.PhoneValidator = 2
	}
	if inv.AdapterTimeouts.WebSearch <= 0 {
		inv.AdapterTimeouts.WebSearch = 8
	}
	if inv.AdapterTimeouts.CompanyVerifier <= 0 {
		inv.AdapterTimeouts.CompanyVerifier = 6
	}
	if inv.CacheTTLs.WebSearch <= 0 {
		inv.CacheTTLs.WebSearch = 6 * 3600
	}
	if inv.CacheTTLs.CompanyVerifier <= 0 {
		inv.CacheTTLs.CompanyVerifier = 14 * 24 * 3600
	}
	if inv.CacheTTLs.DomainRep <= 0 {
		inv.CacheTTLs.DomainRep = 12 * 3600
	}
	h := &inv.Heuristic
	if h.RegistryPointsPerReport <= 0 {
		h.RegistryPointsPerReport = 5
	}
	if h.RegistryPointsCap <= 0 {
		h.RegistryPointsCap = 40
	}
	if h.ReputationSeverePoints <= 0 {
		h.ReputationSeverePoints = 25
	}
	if h.ReputationMediumPoints <= 0 {
		h.ReputationMediumPoints = 15
	}
	if h.ReputationMinorPoints <= 0 {
		h.ReputationMinorPoints = 8
	}
	if h.WebPointsPerSource <= 0 {
		h.WebPointsPerSource = 4
	}
	if h.WebPointsCap <= 0 {
		h.WebPointsCap = 20
	}
	if h.PatternFlagPoints <= 0 {
		h.PatternFlagPoints = 10
	}
	if h.CompanySuspectPoints <= 0 {
		h.CompanySuspectPoints = 20
	}
	if h.HighThreshold <= 0 {
		h.HighThreshold = 70
	}
	if h.MediumThreshold <= 0 {
		h.MediumThreshold = 40
	}
}
