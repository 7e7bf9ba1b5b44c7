package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/moyu-x/folder-sorter/internal"
	"github.com/moyu-x/folder-sorter/pkg/walker"
)

type Config struct {
	Sort struct {
		Strategy       string `mapstructure:"strategy" validate:"oneof=sequential nested batch"`
		Workers        int    `mapstructure:"workers" validate:"gte=1,lte=4096"`
		Collision      string `mapstructure:"collision" validate:"oneof=fail rename overwrite"`
		ArchiveFailure string `mapstructure:"archive_failure" validate:"oneof=delete keep"`
		Verify         bool   `mapstructure:"verify"`
	} `mapstructure:"sort"`
	Journal struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"journal"`
	Logging struct {
		Level string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
		File  string `mapstructure:"file"`
	} `mapstructure:"logging"`
	Watch struct {
		Debounce time.Duration `mapstructure:"debounce" validate:"gte=10ms"`
	} `mapstructure:"watch"`
}

// FlagKeys 命令行参数到配置项的映射
var FlagKeys = map[string]string{
	"strategy":        "sort.strategy",
	"workers":         "sort.workers",
	"collision":       "sort.collision",
	"archive-failure": "sort.archive_failure",
	"verify":          "sort.verify",
	"journal":         "journal.path",
	"log-level":       "logging.level",
	"log-file":        "logging.file",
	"debounce":        "watch.debounce",
}

var cfg Config

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("sort.strategy", string(walker.Nested))
	v.SetDefault("sort.workers", walker.DefaultWorkers())
	v.SetDefault("sort.collision", "fail")
	v.SetDefault("sort.archive_failure", "delete")
	v.SetDefault("sort.verify", false)
	v.SetDefault("journal.path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("watch.debounce", internal.DefaultDebounce)
}

// Load 读取配置，优先级：命令行参数 > 环境变量 > 配置文件 > 默认值
// cfgFile 为空时按默认路径查找 config.yaml，找不到不算错误
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		// 显式指定的配置文件必须存在
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("读取配置文件: %w", err)
		}
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(internal.DefaultConfigDir)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/folder-sorter")
	}

	v.SetEnvPrefix("FOLDER_SORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("绑定参数 %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("解析配置: %w", err)
	}

	// 0 表示使用默认并发数
	if c.Sort.Workers == 0 {
		c.Sort.Workers = walker.DefaultWorkers()
	}

	c.Sort.Strategy = strings.ToLower(c.Sort.Strategy)
	c.Sort.Collision = strings.ToLower(c.Sort.Collision)
	c.Sort.ArchiveFailure = strings.ToLower(c.Sort.ArchiveFailure)
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	if err := Validate(&c); err != nil {
		return nil, err
	}

	cfg = c
	return &cfg, nil
}

// Validate 校验配置取值
func Validate(c *Config) error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}

		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s 不合法 (%s=%s): %v", e.Namespace(), e.Tag(), e.Param(), e.Value()))
		}
		return fmt.Errorf("配置错误: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func Get() *Config {
	return &cfg
}
