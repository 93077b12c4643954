package app

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"molten-lyrics/internal/config"
	"molten-lyrics/internal/i3block"
	"molten-lyrics/internal/ipc"
	"molten-lyrics/internal/karaoke"
	"molten-lyrics/internal/lyrics"
	"molten-lyrics/internal/overlay"
	"molten-lyrics/internal/player"
	"molten-lyrics/internal/settings"
	"molten-lyrics/internal/summary"
	"molten-lyrics/internal/transcribe"
	"molten-lyrics/pkg/ai"
	"molten-lyrics/pkg/music"
	"molten-lyrics/pkg/musiccache"
	"molten-lyrics/pkg/redis"
	"molten-lyrics/pkg/tencent"
)

// New wires every collaborator named in cfg. Optional parts that fail to
// start (redis, AI, translation) are logged and left out.
func New(cfg *config.Config) (*App, error) {
	p, err := player.New(cfg.Player.Backend, cfg.Player.Name, cfg.Player.MPDAddr, cfg.Player.MPDPassword, cfg.Player.MusicDir)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, player: p}
	a.clock = player.NewSampledClock(p)
	if c, ok := p.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	// 覆盖层
	var sinks []overlay.Sink
	if cfg.Overlay.IPC {
		a.ipcServer = ipc.NewServer(cfg.App.SocketPath)
		sinks = append(sinks, overlay.IPC(a.ipcServer))
	}
	if cfg.Overlay.I3Blocks {
		a.i3 = i3block.NewController(cfg.Overlay.I3BlocksFile, cfg.Overlay.I3BlocksSignal)
		sinks = append(sinks, overlay.I3Block(a.i3))
	}
	if cfg.Overlay.SocketIOAddr != "" {
		a.socketIO = overlay.NewSocketIO(cfg.Overlay.SocketIOAddr)
		sinks = append(sinks, a.socketIO)
	}
	a.hub = overlay.NewHub(sinks...)

	engine := karaoke.NewEngine(a.clock, a.hub,
		karaoke.WithThreshold(cfg.Lyric.OverlayThreshold),
		karaoke.WithFallbackDuration(cfg.Lyric.FallbackDuration),
	)
	a.runner = karaoke.NewRunner(engine, cfg.FrameInterval())

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.Open(context.Background(), RedisOptions(cfg))
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, using file cache")
			redisClient = nil
		} else {
			a.closers = append(a.closers, redisClient)
		}
	}

	switch cfg.Settings.Store {
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("settings store redis requires [redis] enabled")
		}
		a.settings = settings.NewRedisStore(redisClient, settings.DefaultRedisKey)
	default:
		a.settings = settings.NewFileStore(cfg.Settings.Path)
	}

	// 歌词来源
	fetcher, err := music.FromNames(cfg.Lyric.Providers)
	if err != nil {
		return nil, err
	}
	opts := []lyrics.ProviderOption{}
	var aiClient ai.Client
	if cfg.AI.APIKey != "" {
		aiClient, err = ai.New(cfg.AI.ModuleName, cfg.AI.APIKey, cfg.AI.BaseURL)
		if err != nil {
			log.Warn().Err(err).Str("model", cfg.AI.ModuleName).Msg("AI client unavailable")
			aiClient = nil
		} else {
			opts = append(opts, lyrics.WithAI(aiClient))
		}
	}
	if memo, err := musiccache.Open(musiccache.DefaultPath(cfg.App.CacheDir)); err != nil {
		log.Warn().Err(err).Msg("Identification memo unavailable")
	} else {
		opts = append(opts, lyrics.WithMemo(memo))
	}
	if redisClient != nil {
		opts = append(opts, lyrics.WithRedis(redisClient))
	}
	if cfg.Lyric.Translate != "" {
		tc, err := tencent.NewClient(cfg.Tencent.SecretID, cfg.Tencent.SecretKey)
		if err != nil {
			log.Warn().Err(err).Msg("Translation disabled")
		} else {
			opts = append(opts, lyrics.WithTranslator(tc, cfg.Lyric.Translate))
		}
	}
	a.provider = lyrics.NewProvider(cfg.App.CacheDir, fetcher, opts...)

	if cfg.Transcribe.Auto {
		t, err := transcribe.Factory(TranscribeConfig(cfg))
		if err != nil {
			log.Warn().Err(err).Msg("Automatic transcription disabled")
		} else {
			a.jobs = transcribe.NewJobs(t)
		}
	}
	if cfg.Transcribe.Summarize && aiClient != nil {
		var cache summary.Cache
		if redisClient != nil {
			cache = redisClient
		}
		a.summarizer = summary.New(aiClient, cache)
	}

	return a, nil
}

// TranscribeConfig maps the [transcribe] and [tencent] sections.
func TranscribeConfig(cfg *config.Config) transcribe.Config {
	return transcribe.Config{
		Provider:         cfg.Transcribe.Provider,
		BaseURL:          cfg.Transcribe.BaseURL,
		APIKey:           cfg.Transcribe.APIKey,
		Model:            cfg.Transcribe.Model,
		Language:         cfg.Transcribe.Language,
		Compress:         cfg.Transcribe.Compress,
		TencentSecretID:  cfg.Tencent.SecretID,
		TencentSecretKey: cfg.Tencent.SecretKey,
	}
}

func RedisOptions(cfg *config.Config) redis.Options {
	return redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	}
}

// SettingsStore returns the store selected by cfg, for commands that only
// edit settings.
func SettingsStore(cfg *config.Config) (settings.Store, func(), error) {
	if cfg.Settings.Store != "redis" {
		return settings.NewFileStore(cfg.Settings.Path), func() {}, nil
	}
	client, err := redis.Open(context.Background(), RedisOptions(cfg))
	if err != nil {
		return nil, nil, err
	}
	return settings.NewRedisStore(client, settings.DefaultRedisKey), func() { client.Close() }, nil
}
