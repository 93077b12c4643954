package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSocketPath       = "/tmp/lyrics_app.sock"
	DefaultCheckInterval    = 5 * time.Second
	DefaultFrameRate        = 60
	DefaultFallbackDuration = 2.0
	DefaultOverlayThreshold = 0.02
	DefaultMPDAddr          = "localhost:6600"
)

func getDefaultCacheDir() string {
	// 优先使用 XDG_CACHE_HOME 环境变量
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "lyrics")
	}

	// 否则使用用户主目录下的 .cache
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// 如果获取不到用户主目录，回退到当前目录
		return "lyrics_cache"
	}

	return filepath.Join(homeDir, ".cache", "lyrics")
}

// TomlConfig TOML配置文件结构
type TomlConfig struct {
	App struct {
		SocketPath    string `toml:"socket_path"`
		CheckInterval string `toml:"check_interval"`
		CacheDir      string `toml:"cache_dir"`
		FrameRate     int    `toml:"frame_rate"`
	} `toml:"app"`

	Player struct {
		Backend     string `toml:"backend"`
		Name        string `toml:"name"`
		MPDAddr     string `toml:"mpd_addr"`
		MPDPassword string `toml:"mpd_password"`
		MusicDir    string `toml:"music_dir"`
	} `toml:"player"`

	Lyric struct {
		FallbackDuration float64  `toml:"fallback_duration"`
		OverlayThreshold float64  `toml:"overlay_threshold"`
		Translate        string   `toml:"translate"`
		Providers        []string `toml:"providers"`
	} `toml:"lyric"`

	Overlay struct {
		IPC            *bool  `toml:"ipc"`
		SocketIOAddr   string `toml:"socketio_addr"`
		I3Blocks       bool   `toml:"i3blocks"`
		I3BlocksFile   string `toml:"i3blocks_file"`
		I3BlocksSignal int    `toml:"i3blocks_signal"`
	} `toml:"overlay"`

	AI struct {
		ModuleName string `toml:"module_name"`
		APIKey     string `toml:"api_key"`
		BaseURL    string `toml:"base_url"` // for OpenAI
	} `toml:"ai"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		Prefix   string `toml:"prefix"`
		Enabled  bool   `toml:"enabled"`
	} `toml:"redis"`

	Transcribe struct {
		Provider  string `toml:"provider"`
		BaseURL   string `toml:"base_url"`
		APIKey    string `toml:"api_key"`
		Model     string `toml:"model"`
		Language  string `toml:"language"`
		Compress  bool   `toml:"compress"`
		Auto      bool   `toml:"auto"`
		Summarize bool   `toml:"summarize"`
	} `toml:"transcribe"`

	Tencent struct {
		SecretID  string `toml:"secret_id"`
		SecretKey string `toml:"secret_key"`
	} `toml:"tencent"`

	Settings struct {
		Store string `toml:"store"`
		Path  string `toml:"path"`
	} `toml:"settings"`
}

// AppConfig 应用配置
type AppConfig struct {
	SocketPath    string
	CheckInterval time.Duration
	CacheDir      string
	FrameRate     int
}

// PlayerConfig 播放器配置，backend 为 playerctl 或 mpd
type PlayerConfig struct {
	Backend     string
	Name        string
	MPDAddr     string
	MPDPassword string
	MusicDir    string
}

// LyricConfig 歌词同步配置
type LyricConfig struct {
	FallbackDuration float64
	OverlayThreshold float64
	Translate        string // 目标语言，空表示不翻译
	Providers        []string
}

type OverlayConfig struct {
	IPC            bool
	SocketIOAddr   string // 空表示关闭
	I3Blocks       bool
	I3BlocksFile   string
	I3BlocksSignal int
}

// AIConfig AI配置
type AIConfig struct {
	ModuleName string
	APIKey     string
	BaseURL    string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // 所有键的命名空间
	Enabled  bool
}

type TranscribeConfig struct {
	Provider  string
	BaseURL   string
	APIKey    string
	Model     string
	Language  string
	Compress  bool
	Auto      bool
	Summarize bool
}

type TencentConfig struct {
	SecretID  string
	SecretKey string
}

type SettingsConfig struct {
	Store string // file | redis
	Path  string
}

// Config 主配置结构
type Config struct {
	App        AppConfig
	Player     PlayerConfig
	Lyric      LyricConfig
	Overlay    OverlayConfig
	AI         AIConfig
	Redis      RedisConfig
	Transcribe TranscribeConfig
	Tencent    TencentConfig
	Settings   SettingsConfig
}

func configDir() string {
	// 优先使用 XDG_CONFIG_HOME 环境变量
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "lyrics")
	}

	// 否则使用用户主目录下的 .config
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warn().Err(err).Msg("Cannot get user home directory")
		return "." // 回退到当前目录
	}

	return filepath.Join(homeDir, ".config", "lyrics")
}

// Path 获取默认配置文件路径
func Path() string {
	return filepath.Join(configDir(), "config.toml")
}

// loadTomlConfig 加载TOML配置文件
func loadTomlConfig(configPath string) (*TomlConfig, error) {
	// 检查配置文件是否存在
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Info().Str("path", configPath).Msg("Config file not found, using defaults")
		return &TomlConfig{}, nil
	}

	var config TomlConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, err
	}

	log.Info().Str("path", configPath).Msg("Loaded config")
	return &config, nil
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		App: AppConfig{
			SocketPath:    DefaultSocketPath,
			CheckInterval: DefaultCheckInterval,
			CacheDir:      getDefaultCacheDir(),
			FrameRate:     DefaultFrameRate,
		},
		Player: PlayerConfig{
			Backend: "playerctl",
			MPDAddr: DefaultMPDAddr,
		},
		Lyric: LyricConfig{
			FallbackDuration: DefaultFallbackDuration,
			OverlayThreshold: DefaultOverlayThreshold,
			Providers:        []string{"lrclib", "netease"},
		},
		Overlay: OverlayConfig{
			IPC: true,
		},
		AI: AIConfig{
			ModuleName: "gemini",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "molten-lyrics:",
		},
		Transcribe: TranscribeConfig{
			Provider: "whisper",
			BaseURL:  "http://localhost:8080",
			Model:    "base",
		},
		Settings: SettingsConfig{
			Store: "file",
			Path:  filepath.Join(configDir(), "settings.toml"),
		},
	}
}

// Load reads the config file at path, or the default path when path is
// empty. A broken file is reported and the defaults are used.
func Load(path string) *Config {
	if path == "" {
		path = Path()
	}

	// 加载TOML配置文件
	tomlConfig, err := loadTomlConfig(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to load config file, using default configuration")
		tomlConfig = &TomlConfig{}
	}

	config := Defaults()
	apply(config, tomlConfig)

	// 检查必要的配置
	if config.AI.APIKey == "" {
		log.Warn().Str("path", path).Msg("No AI API key configured, song identification from raw titles is disabled")
	}

	return config
}

func apply(config *Config, t *TomlConfig) {
	// 从TOML配置中覆盖App设置
	if t.App.SocketPath != "" {
		config.App.SocketPath = t.App.SocketPath
	}
	if t.App.CheckInterval != "" {
		if duration, err := time.ParseDuration(t.App.CheckInterval); err == nil && duration > 0 {
			config.App.CheckInterval = duration
		} else {
			log.Warn().Str("check_interval", t.App.CheckInterval).Msg("Invalid check_interval format, using default")
		}
	}
	if t.App.CacheDir != "" {
		config.App.CacheDir = t.App.CacheDir
	}
	if t.App.FrameRate > 0 {
		config.App.FrameRate = t.App.FrameRate
	}

	if t.Player.Backend != "" {
		config.Player.Backend = t.Player.Backend
	}
	config.Player.Name = t.Player.Name
	if t.Player.MPDAddr != "" {
		config.Player.MPDAddr = t.Player.MPDAddr
	}
	config.Player.MPDPassword = t.Player.MPDPassword
	config.Player.MusicDir = t.Player.MusicDir

	if t.Lyric.FallbackDuration > 0 {
		config.Lyric.FallbackDuration = t.Lyric.FallbackDuration
	}
	if t.Lyric.OverlayThreshold > 0 {
		config.Lyric.OverlayThreshold = t.Lyric.OverlayThreshold
	}
	config.Lyric.Translate = t.Lyric.Translate
	if len(t.Lyric.Providers) > 0 {
		config.Lyric.Providers = t.Lyric.Providers
	}

	if t.Overlay.IPC != nil {
		config.Overlay.IPC = *t.Overlay.IPC
	}
	config.Overlay.SocketIOAddr = t.Overlay.SocketIOAddr
	config.Overlay.I3Blocks = t.Overlay.I3Blocks
	config.Overlay.I3BlocksFile = t.Overlay.I3BlocksFile
	config.Overlay.I3BlocksSignal = t.Overlay.I3BlocksSignal

	// 从TOML配置中覆盖AI设置
	if t.AI.ModuleName != "" {
		config.AI.ModuleName = t.AI.ModuleName
	}
	config.AI.BaseURL = t.AI.BaseURL
	config.AI.APIKey = t.AI.APIKey

	// 从TOML配置中覆盖Redis设置
	if t.Redis.Addr != "" {
		config.Redis.Addr = t.Redis.Addr
	}
	config.Redis.Password = t.Redis.Password
	config.Redis.DB = t.Redis.DB
	config.Redis.Enabled = t.Redis.Enabled
	if t.Redis.Prefix != "" {
		config.Redis.Prefix = t.Redis.Prefix
	}

	if t.Transcribe.Provider != "" {
		config.Transcribe.Provider = t.Transcribe.Provider
	}
	if t.Transcribe.BaseURL != "" {
		config.Transcribe.BaseURL = t.Transcribe.BaseURL
	}
	if t.Transcribe.Model != "" {
		config.Transcribe.Model = t.Transcribe.Model
	}
	config.Transcribe.APIKey = t.Transcribe.APIKey
	config.Transcribe.Language = t.Transcribe.Language
	config.Transcribe.Compress = t.Transcribe.Compress
	config.Transcribe.Auto = t.Transcribe.Auto
	config.Transcribe.Summarize = t.Transcribe.Summarize

	config.Tencent.SecretID = t.Tencent.SecretID
	config.Tencent.SecretKey = t.Tencent.SecretKey

	if t.Settings.Store != "" {
		config.Settings.Store = t.Settings.Store
	}
	if t.Settings.Path != "" {
		config.Settings.Path = t.Settings.Path
	}
}

// FrameInterval is the engine tick period derived from the frame rate.
func (c *Config) FrameInterval() time.Duration {
	if c.App.FrameRate <= 0 {
		return time.Second / DefaultFrameRate
	}
	return time.Second / time.Duration(c.App.FrameRate)
}
