package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// 环境变量
const (
	EnvUsername = "CSRES_USERNAME"
	EnvPassword = "CSRES_PASSWORD"
	EnvSource   = "SRC"
	EnvDest     = "DEST"
)

// ConfigFile 配置文件名
const ConfigFile = "config.toml"

// Duration 支持 "5s"、"1m30s" 形式的 TOML 字符串
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// AppConfig 应用配置
type AppConfig struct {
	Paths       PathsConfig       `toml:"paths"`
	Lookup      LookupConfig      `toml:"lookup"`
	Acquisition AcquisitionConfig `toml:"acquisition"`
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`

	// 账号只从环境变量 / .env 读取，不写入配置文件
	Credentials Credentials `toml:"-"`
}

// PathsConfig 文件路径配置，相对路径均相对于 BaseDir
type PathsConfig struct {
	BaseDir     string `toml:"base_dir"`     // 为空时使用可执行文件所在目录
	Source      string `toml:"source"`       // 读取的标准库工作簿（SRC）
	Dest        string `toml:"dest"`         // 写出的标准库工作簿（DEST），为空时同 Source
	ReportsDir  string `toml:"reports_dir"`  // 待检查的 .docx 所在目录
	ArchiveDir  string `toml:"archive_dir"`  // 标准库存档目录
	ArchiveStem string `toml:"archive_stem"` // 存档文件名前缀
	LogDir      string `toml:"log_dir"`
	DataDir     string `toml:"data_dir"`   // 运行记录数据库目录
	OutputDir   string `toml:"output_dir"` // 报告结果目录的上级
	CheckStem   string `toml:"check_stem"`
	UpdateStem  string `toml:"update_stem"`
}

// LookupConfig 远程检索配置
type LookupConfig struct {
	BaseURL        string   `toml:"base_url"`
	SearchPath     string   `toml:"search_path"`
	DeniedURL      string   `toml:"denied_url"`
	DialTimeout    Duration `toml:"dial_timeout"`
	RequestTimeout Duration `toml:"request_timeout"`
	ProbeTimeout   Duration `toml:"probe_timeout"`
	MaxResults     int      `toml:"max_results"`
	SearchAttempts int      `toml:"search_attempts"`
	SearchPause    Duration `toml:"search_pause"`
	DetailAttempts int      `toml:"detail_attempts"`
	DetailPause    Duration `toml:"detail_pause"`
}

// AcquisitionConfig 采集流水线配置
type AcquisitionConfig struct {
	Attempts  int      `toml:"attempts"`   // 单个编号整体尝试次数
	Pause     Duration `toml:"pause"`      // 整体重试间隔
	CodePause Duration `toml:"code_pause"` // 编号之间的间隔
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level   string `toml:"level"`
	Console bool   `toml:"console"` // 日志同时输出到 stderr，进度始终打印到终端
}

// Credentials 网站账号
type Credentials struct {
	Username string
	Password string
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path     string // 使用的配置文件路径
	FromFile bool   // 配置文件是否存在
	EnvFiles []string
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Paths: PathsConfig{
			Source:      "standard_details.xlsx",
			ReportsDir:  "reports",
			ArchiveDir:  "log_excel",
			ArchiveStem: "standard_details",
			LogDir:      "log",
			DataDir:     "data",
			OutputDir:   ".",
			CheckStem:   "检查报告的运行结果",
			UpdateStem:  "更新数据库的运行结果",
		},
		Lookup: LookupConfig{
			BaseURL:        "http://www.csres.com/",
			SearchPath:     "s.jsp",
			DeniedURL:      "http://www.csres.com/error/noright.html",
			DialTimeout:    Duration{5 * time.Second},
			RequestTimeout: Duration{35 * time.Second},
			ProbeTimeout:   Duration{20 * time.Second},
			MaxResults:     20,
			SearchAttempts: 5,
			SearchPause:    Duration{2 * time.Second},
			DetailAttempts: 5,
			DetailPause:    Duration{2 * time.Second},
		},
		Acquisition: AcquisitionConfig{
			Attempts:  10,
			Pause:     Duration{5 * time.Second},
			CodePause: Duration{time.Second},
		},
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: false,
		},
	}
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultPath 可执行文件同目录下的 config.toml
func DefaultPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, ConfigFile)
}

// LoadConfigWithInfo 加载配置：默认值 → config.toml → .env / 环境变量。
// path 为空时使用可执行文件同目录下的 config.toml，文件不存在时使用默认配置。
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: path}
	if info.Path == "" {
		info.Path = DefaultPath()
	}
	config := DefaultConfig()

	data, err := os.ReadFile(info.Path)
	switch {
	case err == nil:
		info.FromFile = true
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("failed to parse %s: %w", info.Path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	info.EnvFiles = loadEnvFiles(filepath.Dir(info.Path))
	applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
func LoadConfig(path string) (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo(path)
	return config, err
}

// SaveConfig 保存配置到 path
func SaveConfig(config *AppConfig, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate 检查取值范围
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Lookup.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("lookup.max_results must be positive, got %d", c.Lookup.MaxResults))
	}
	if c.Lookup.SearchAttempts < 1 || c.Lookup.DetailAttempts < 1 || c.Acquisition.Attempts < 1 {
		errs = append(errs, errors.New("attempt counts must be at least 1"))
	}
	if c.Paths.Source == "" {
		errs = append(errs, errors.New("paths.source is empty (set it in config.toml or SRC)"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	return errors.Join(errs...)
}

// loadEnvFiles 读取配置目录和当前目录下的 .env（已存在的环境变量优先）
func loadEnvFiles(configDir string) []string {
	candidates := []string{filepath.Join(configDir, ".env"), ".env"}
	var loaded []string
	seen := map[string]bool{}
	for _, p := range candidates {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if err := godotenv.Load(abs); err == nil {
			loaded = append(loaded, abs)
		}
	}
	return loaded
}

func applyEnv(c *AppConfig) {
	c.Credentials.Username = os.Getenv(EnvUsername)
	c.Credentials.Password = os.Getenv(EnvPassword)
	if v := strings.TrimSpace(os.Getenv(EnvSource)); v != "" {
		c.Paths.Source = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDest)); v != "" {
		c.Paths.Dest = v
	}
}

// BaseDir 相对路径的基准目录
func (c *AppConfig) BaseDir() string {
	if c.Paths.BaseDir != "" {
		return c.Paths.BaseDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		return "."
	}
	return exeDir
}

// Resolve 把相对路径解析到 BaseDir 下
func (c *AppConfig) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir(), p)
}

// SourcePath 读取的标准库工作簿
func (c *AppConfig) SourcePath() string {
	return c.Resolve(c.Paths.Source)
}

// DestPath 写出的标准库工作簿
func (c *AppConfig) DestPath() string {
	if c.Paths.Dest == "" {
		return c.SourcePath()
	}
	return c.Resolve(c.Paths.Dest)
}

// EnsureDirs 确保日志、存档、数据目录存在
func EnsureDirs(c *AppConfig) error {
	for _, d := range []string{c.Paths.LogDir, c.Paths.ArchiveDir, c.Paths.DataDir} {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(c.Resolve(d), 0755); err != nil {
			return err
		}
	}
	return nil
}

// DatabasePath 运行记录数据库路径
func (c *AppConfig) DatabasePath() string {
	return filepath.Join(c.Resolve(c.Paths.DataDir), "runs.db")
}
