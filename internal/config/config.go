// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultPort           = "8080"
	DefaultModel          = "gemini-2.5-flash-preview-04-17"
	DefaultLanguage       = "ko"
	DefaultSlideCount     = 3
	DefaultMaxSlides      = 20
	DefaultRequestTimeout = 5 * time.Minute
	DefaultRatePerSec     = 2.0
	DefaultBurst          = 4
	DefaultStyleGuideTTL  = 30 * time.Minute
	DefaultConfigFile     = "config.yaml"
)

// 当前配置的单例实例
var (
	currentConfig *Config
	configMutex   sync.RWMutex
)

// Config 应用配置。YAML 文件提供基础值，环境变量覆盖。
type Config struct {
	// 基础配置
	Port      string `yaml:"port"`
	DataDir   string `yaml:"data_dir"`
	StaticDir string `yaml:"static_dir"`
	LogDir    string `yaml:"log_dir"`
	DebugMode bool   `yaml:"debug_mode"`

	// 模型相关配置
	GeminiModel  string `yaml:"gemini_model"`
	GeminiAPIKey string `yaml:"gemini_api_key"` // 可选的服务端默认密钥

	// 生成默认值
	DefaultLanguage   string `yaml:"default_language"`
	DefaultSlideCount int    `yaml:"default_slide_count"`
	MaxSlides         int    `yaml:"max_slides"`

	// 限流与超时
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ModelRatePerSec    float64       `yaml:"model_rate_per_sec"`
	ModelBurst         int           `yaml:"model_burst"`
	StyleGuideCacheTTL time.Duration `yaml:"style_guide_cache_ttl"`
}

// Defaults 返回默认配置
func Defaults() *Config {
	return &Config{
		Port:               DefaultPort,
		DataDir:            "data",
		StaticDir:          "static",
		LogDir:             "logs",
		DebugMode:          false,
		GeminiModel:        DefaultModel,
		DefaultLanguage:    DefaultLanguage,
		DefaultSlideCount:  DefaultSlideCount,
		MaxSlides:          DefaultMaxSlides,
		RequestTimeout:     DefaultRequestTimeout,
		ModelRatePerSec:    DefaultRatePerSec,
		ModelBurst:         DefaultBurst,
		StyleGuideCacheTTL: DefaultStyleGuideTTL,
	}
}

// Load 加载配置：.env → YAML 文件（CONFIG_FILE，默认 config.yaml，可不存在）→ 环境变量
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	config := Defaults()

	path := getEnv("CONFIG_FILE", DefaultConfigFile)
	if err := config.loadYAML(path); err != nil {
		return nil, err
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// loadYAML 文件不存在时忽略
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("读取配置文件失败 %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("解析配置文件失败 %s: %w", path, err)
	}
	return nil
}

// applyEnv 环境变量覆盖
func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)
	c.LogDir = getEnv("LOG_DIR", c.LogDir)
	c.DebugMode = getEnvBool("DEBUG_MODE", c.DebugMode)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.DefaultLanguage = getEnv("DEFAULT_LANGUAGE", c.DefaultLanguage)

	var err error
	if c.DefaultSlideCount, err = getEnvInt("DEFAULT_SLIDE_COUNT", c.DefaultSlideCount); err != nil {
		return err
	}
	if c.MaxSlides, err = getEnvInt("MAX_SLIDES", c.MaxSlides); err != nil {
		return err
	}
	if c.ModelBurst, err = getEnvInt("MODEL_BURST", c.ModelBurst); err != nil {
		return err
	}
	if c.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.StyleGuideCacheTTL, err = getEnvDuration("STYLE_GUIDE_CACHE_TTL", c.StyleGuideCacheTTL); err != nil {
		return err
	}
	if v := os.Getenv("MODEL_RATE_PER_SEC"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MODEL_RATE_PER_SEC 不是有效数字: %q", v)
		}
		c.ModelRatePerSec = rate
	}
	return nil
}

// Validate 拒绝不可能的取值
func (c *Config) Validate() error {
	var problems []string
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		problems = append(problems, fmt.Sprintf("端口无效: %q", c.Port))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		problems = append(problems, "DATA_DIR 不能为空")
	}
	if strings.TrimSpace(c.GeminiModel) == "" {
		problems = append(problems, "GEMINI_MODEL 不能为空")
	}
	switch c.DefaultLanguage {
	case "ko", "en", "zh", "ja":
	default:
		problems = append(problems, fmt.Sprintf("不支持的默认语言: %q", c.DefaultLanguage))
	}
	if c.MaxSlides < 1 {
		problems = append(problems, "MAX_SLIDES 必须大于0")
	}
	if c.DefaultSlideCount < 1 || c.DefaultSlideCount > c.MaxSlides {
		problems = append(problems, fmt.Sprintf("DEFAULT_SLIDE_COUNT 必须在 1 到 %d 之间", c.MaxSlides))
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT 必须大于0")
	}
	if c.ModelRatePerSec <= 0 {
		problems = append(problems, "MODEL_RATE_PER_SEC 必须大于0")
	}
	if c.ModelBurst < 1 {
		problems = append(problems, "MODEL_BURST 必须大于0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("配置无效: %s", strings.Join(problems, "; "))
	}
	return nil
}

// EnsureDirs 创建数据和日志目录
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录失败 %s: %w", dir, err)
		}
	}
	return nil
}

// InitConfig 加载配置并设为当前配置
func InitConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}
	configMutex.Lock()
	currentConfig = config
	configMutex.Unlock()
	return config, nil
}

// GetCurrentConfig 返回当前配置的副本，未初始化时返回默认值
func GetCurrentConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		return Defaults()
	}
	configCopy := *currentConfig
	return &configCopy
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s 不是有效整数: %q", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s 不是有效时长: %q", key, value)
	}
	return d, nil
}
