package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sfidfw/fw/common"
	"sfidfw/fw/common/logx"
	"strings"

	"gopkg.in/yaml.v3"
)

const EtcPath = "/etc/sfidfw/config.yaml"

type DBPoolCfg struct {
	MaxOpen        int `yaml:"max_open"`
	MaxIdle        int `yaml:"max_idle"`
	MaxLifetimeSec int `yaml:"max_lifetime_sec"`
}

type DBCfg struct {
	Driver string    `yaml:"driver"` // sqlite | mysql
	DSN    string    `yaml:"dsn"`
	Pool   DBPoolCfg `yaml:"pool"`
	Enable bool      `yaml:"enable"`
}

type DualDBCfg struct {
	Master DBCfg `yaml:"master"`
	Log    DBCfg `yaml:"log"` // 事件历史（按天分表），可关闭
}

type TLSConfig struct {
	Cert     string `yaml:"cert"`
	Key      string `yaml:"key"`
	SniGuard string `yaml:"sniGuard"`
}

func (t TLSConfig) Enabled() bool { return t.Cert != "" && t.Key != "" }

type ServerCfg struct {
	Addr        string    `yaml:"addr"`
	CORSOrigins []string  `yaml:"cors_origins"`
	TLS         TLSConfig `yaml:"tls"`
}

type Logging struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func (l Logging) Options() logx.Options {
	return logx.Options{
		Dir:        l.Dir,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}
}

type MockTraffic struct {
	Enable      bool `yaml:"enable"`
	IntervalSec int  `yaml:"interval_sec"`
}

type RateCfg struct {
	RPS   float64 `yaml:"rps"` // <=0 不限速
	Burst int     `yaml:"burst"`
}

type FirewallCfg struct {
	Enabled     bool        `yaml:"enabled"`
	LogCapacity int         `yaml:"log_capacity"`
	Malicious   []string    `yaml:"malicious"`
	MockTraffic MockTraffic `yaml:"mock_traffic"`
	Evaluate    RateCfg     `yaml:"evaluate_rate"`
}

type InfluxDB2Config struct {
	Enable      bool   `yaml:"enable"`
	BaseURL     string `yaml:"base_url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	IntervalSec int    `yaml:"interval_sec"`
}

type Config struct {
	Server   ServerCfg       `yaml:"server"`
	Logging  Logging         `yaml:"logging"`
	DB       DualDBCfg       `yaml:"db"`
	Firewall FirewallCfg     `yaml:"firewall"`
	InfluxDB InfluxDB2Config `yaml:"influxdb"`
}

var log = logx.New(logx.WithPrefix("config"))

// Default 未提供配置文件时使用
func Default() *Config {
	c := &Config{
		Server:  ServerCfg{Addr: ":8080"},
		Logging: Logging{Level: "info"},
		DB: DualDBCfg{
			Master: DBCfg{Enable: true},
			Log:    DBCfg{Enable: true},
		},
		Firewall: FirewallCfg{
			Enabled:     true,
			MockTraffic: MockTraffic{Enable: true},
		},
	}
	c.applyDefaults()
	return c
}

// Load 先读 p，失败再读 /etc/sfidfw/config.yaml；都不存在时使用默认配置。返回实际使用的路径（默认配置为空串）
func Load(p string) (*Config, string, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		p = EtcPath
		b, err = os.ReadFile(p)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warnf("no config file found, using defaults")
			c := Default()
			return c, "", c.prepare()
		}
		return nil, p, err
	}
	c, err := Parse(b)
	if err != nil {
		return nil, p, fmt.Errorf("%s: %w", p, err)
	}
	return c, p, c.prepare()
}

// Parse 解析 YAML 并补默认值，不触碰文件系统
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return c, c.Validate()
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 7
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 30
	}

	masterDSN, logDSN := defaultSQLiteDSNs()
	for _, d := range []struct {
		cfg *DBCfg
		dsn string
	}{{&c.DB.Master, masterDSN}, {&c.DB.Log, logDSN}} {
		d.cfg.Driver = strings.ToLower(strings.TrimSpace(d.cfg.Driver))
		if d.cfg.Driver == "" {
			d.cfg.Driver = "sqlite"
		}
		if d.cfg.DSN == "" && d.cfg.Driver == "sqlite" {
			d.cfg.DSN = d.dsn
		}
		if d.cfg.Pool.MaxOpen <= 0 {
			d.cfg.Pool.MaxOpen = 4
		}
		if d.cfg.Pool.MaxIdle <= 0 {
			d.cfg.Pool.MaxIdle = 2
		}
	}

	if c.Firewall.LogCapacity <= 0 {
		c.Firewall.LogCapacity = 1000
	}
	if c.Firewall.MockTraffic.IntervalSec <= 0 {
		c.Firewall.MockTraffic.IntervalSec = 3
	}
	if c.Firewall.Evaluate.Burst <= 0 {
		c.Firewall.Evaluate.Burst = 20
	}
	if c.InfluxDB.IntervalSec <= 0 {
		c.InfluxDB.IntervalSec = 10
	}
}

func (c *Config) Validate() error {
	var errs []error
	for name, d := range map[string]DBCfg{"master": c.DB.Master, "log": c.DB.Log} {
		if d.Driver != "sqlite" && d.Driver != "mysql" {
			errs = append(errs, fmt.Errorf("db.%s.driver: unsupported %q", name, d.Driver))
		}
		if d.Enable && d.DSN == "" {
			errs = append(errs, fmt.Errorf("db.%s.dsn: required for %s", name, d.Driver))
		}
	}
	if (c.Server.TLS.Cert == "") != (c.Server.TLS.Key == "") {
		errs = append(errs, errors.New("server.tls: cert and key must be set together"))
	}
	if c.InfluxDB.Enable && (c.InfluxDB.BaseURL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, errors.New("influxdb: base_url and bucket required when enabled"))
	}
	return errors.Join(errs...)
}

// prepare 确保 sqlite 文件所在目录存在
func (c *Config) prepare() error {
	for _, d := range []DBCfg{c.DB.Master, c.DB.Log} {
		if d.Enable && d.Driver == "sqlite" {
			if err := common.EnsureDirForFileDSN(d.DSN); err != nil {
				return err
			}
		}
	}
	return nil
}

func dataDir() string {
	if common.IsDesktop() {
		return "./lib"
	}
	return "/var/lib/sfidfw"
}

// 默认 DSN（go-sqlite3 参数）：WAL + busy timeout；log 库关闭外键检查
func defaultSQLiteDSNs() (masterDSN, logDSN string) {
	params := func(fk string) string {
		v := url.Values{}
		v.Set("_busy_timeout", "5000")
		v.Set("_journal_mode", "WAL")
		v.Set("_synchronous", "NORMAL")
		v.Set("_foreign_keys", fk)
		return v.Encode()
	}
	base := dataDir()
	master := filepath.ToSlash(filepath.Join(base, "master.db"))
	log := filepath.ToSlash(filepath.Join(base, "log.db"))
	return "file:" + master + "?" + params("on"), "file:" + log + "?" + params("off")
}
