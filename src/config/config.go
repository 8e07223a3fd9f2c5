package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config 服务运行配置 (config.json)
type Config struct {
	Listen         string   `json:"listen"`          // HTTP 监听地址
	DataFile       string   `json:"data_file"`       // 数据源文件 (.csv/.txt/.xlsx)
	DataDir        string   `json:"data_dir"`        // 导出文件目录
	SheetName      string   `json:"sheet_name"`      // xlsx 数据源的工作表
	LogName        string   `json:"log_name"`        // 日志文件
	LogMaxSize     string   `json:"log_max_size"`    // 例如 "10 * 1024 * 1024"
	Watch          bool     `json:"watch"`           // 数据文件变化时自动重载
	ReloadDebounce Duration `json:"reload_debounce"` // 重载防抖间隔
	RotateSchedule string   `json:"rotate_schedule"` // 日志轮转检查的 cron 表达式
	ExportSchedule string   `json:"export_schedule"` // 定时导出的 cron 表达式, 为空则关闭
	PidFile        string   `json:"pid_file"`
}

// Columns 逻辑列名到数据表头的映射
type Columns struct {
	Region     string `json:"region"`
	SubRegion  string `json:"sub_region"`
	Commodity  string `json:"commodity"`
	Production string `json:"production"`
}

// DataConfig 数据清洗和看板配置 (dataconfig.json)
type DataConfig struct {
	Columns       Columns  `json:"columns"`
	Sentinels     []string `json:"sentinels"`       // 需要从 Production 中去掉的字符
	AllLabel      string   `json:"all_label"`       // "全部" 选项
	TopSubRegions int      `json:"top_sub_regions"` // 子区域饼图保留的数量
	Delimiter     string   `json:"delimiter"`
	Encoding      string   `json:"encoding"` // 文本数据源编码: utf-8, gbk, gb18030
}

const envPrefix = "COMMODITY"

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

// LoadConfig 加载两份配置, 进程内只加载一次
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

// DefaultConfig 返回未读取任何文件时的配置
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8050",
		DataFile:       "commodity_data.csv",
		DataDir:        "data",
		LogName:        "app.log",
		LogMaxSize:     "10 * 1024 * 1024",
		Watch:          true,
		ReloadDebounce: Duration(500 * time.Millisecond),
		RotateSchedule: "@every 1m",
		PidFile:        "dashboard.pid",
	}
}

// DefaultDataConfig 与原始数据集表头一致的默认值
func DefaultDataConfig() *DataConfig {
	return &DataConfig{
		Columns: Columns{
			Region:     "Region",
			SubRegion:  "Sub-Region",
			Commodity:  "Commodity",
			Production: "Production",
		},
		Sentinels:     []string{"-"},
		AllLabel:      "All",
		TopSubRegions: 10,
		Delimiter:     ",",
		Encoding:      "utf-8",
	}
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	applyEnv(cfg)
	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	dcfg := DefaultDataConfig()
	if err := json.Unmarshal(data, dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	if err := dcfg.validate(); err != nil {
		errChan <- fmt.Errorf("DataConfig无效: %w", err)
		return
	}
	resultChan <- dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// applyEnv 用 COMMODITY_* 环境变量覆盖文件配置
func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{"listen", "data_file", "data_dir", "log_name", "export_schedule", "pid_file"} {
		_ = v.BindEnv(key)
	}

	if s := v.GetString("listen"); s != "" {
		cfg.Listen = s
	}
	if s := v.GetString("data_file"); s != "" {
		cfg.DataFile = s
	}
	if s := v.GetString("data_dir"); s != "" {
		cfg.DataDir = s
	}
	if s := v.GetString("log_name"); s != "" {
		cfg.LogName = s
	}
	if s := v.GetString("export_schedule"); s != "" {
		cfg.ExportSchedule = s
	}
	if s := v.GetString("pid_file"); s != "" {
		cfg.PidFile = s
	}
}

func (dc *DataConfig) validate() error {
	if dc.Columns.Region == "" || dc.Columns.SubRegion == "" ||
		dc.Columns.Commodity == "" || dc.Columns.Production == "" {
		return fmt.Errorf("columns 映射不完整: %+v", dc.Columns)
	}
	if dc.AllLabel == "" {
		return fmt.Errorf("all_label 不能为空")
	}
	if dc.TopSubRegions <= 0 {
		return fmt.Errorf("top_sub_regions 必须大于0: %d", dc.TopSubRegions)
	}
	switch strings.ToLower(dc.Encoding) {
	case "", "utf-8", "utf8", "gbk", "gb2312", "gb18030":
	default:
		return fmt.Errorf("不支持的编码: %q", dc.Encoding)
	}
	if len([]rune(dc.Delimiter)) != 1 {
		return fmt.Errorf("delimiter 必须是单个字符: %q", dc.Delimiter)
	}
	return nil
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// DelimiterRune 返回分隔符字符
func (dc *DataConfig) DelimiterRune() rune {
	mu.RLock()
	defer mu.RUnlock()
	return []rune(dc.Delimiter)[0]
}

func (dc *DataConfig) GetSentinels() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), dc.Sentinels...)
}

func (dc *DataConfig) SetSentinels(sentinels []string) {
	mu.Lock()
	defer mu.Unlock()
	dc.Sentinels = append([]string(nil), sentinels...)
}
