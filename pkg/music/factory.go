package music

import (
	"fmt"

	"molten-lyrics/pkg/lrclib"
	"molten-lyrics/pkg/netease"
)

// Kind names a supported lyric service.
type Kind string

const (
	KindLRCLib  Kind = "lrclib"
	KindNetEase Kind = "netease"
)

// DefaultKinds 默认顺序：LRCLib 按时长匹配同步歌词，网易云作为回退
func DefaultKinds() []Kind {
	return []Kind{KindLRCLib, KindNetEase}
}

// ParseKind accepts a few aliases for each service.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "lrclib":
		return KindLRCLib, nil
	case "netease", "网易云", "163":
		return KindNetEase, nil
	default:
		return "", fmt.Errorf("unknown lyric source: %s", name)
	}
}

func NewSource(kind Kind) (Source, error) {
	switch kind {
	case KindLRCLib:
		return lrclib.NewClient(), nil
	case KindNetEase:
		return netease.NewClient(), nil
	default:
		return nil, fmt.Errorf("unknown lyric source: %s", kind)
	}
}

// FromNames builds a chain in the given order. Unknown names are skipped and
// an empty list means DefaultKinds.
func FromNames(names []string) (*Chain, error) {
	kinds := DefaultKinds()
	if len(names) > 0 {
		kinds = kinds[:0]
		for _, name := range names {
			k, err := ParseKind(name)
			if err != nil {
				logger().Warn().Err(err).Msg("Skipping lyric source")
				continue
			}
			kinds = append(kinds, k)
		}
	}

	var sources []Source
	for _, k := range kinds {
		s, err := NewSource(k)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	if len(sources) == 0 {
		return nil, ErrNoSource
	}

	chain := NewChain(sources...)
	logger().Info().Strs("sources", chain.Names()).Msg("Lyric sources ready")
	return chain, nil
}
