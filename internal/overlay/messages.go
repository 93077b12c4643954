package overlay

import (
	"encoding/json"

	"molten-lyrics/internal/settings"
)

const (
	EventLyric    = "lyric"
	EventStatus   = "status"
	EventSettings = "settings"
	EventVisible  = "visible"
)

// LyricMessage 当前歌词行及其填充进度
type LyricMessage struct {
	Type     string  `json:"type"`
	Text     string  `json:"text"`
	Progress float64 `json:"progress"`
}

// StatusMessage 搜索/错误等提示文字
type StatusMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type SettingsMessage struct {
	Type string `json:"type"`
	settings.Display
}

type VisibleMessage struct {
	Type    string `json:"type"`
	Visible bool   `json:"visible"`
}

// Message is one overlay update. Value is the typed payload and Data the
// same payload encoded as JSON, so every sink shares a single encoding.
type Message struct {
	Event string
	Value any
	Data  []byte
}

func newMessage(event string, value any) (Message, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return Message{}, err
	}
	return Message{Event: event, Value: value, Data: data}, nil
}

// Text returns the line a text-only surface should show for msg and whether
// msg changes it at all.
func (m Message) Text() (string, bool) {
	switch v := m.Value.(type) {
	case LyricMessage:
		return v.Text, true
	case StatusMessage:
		return v.Text, true
	case VisibleMessage:
		if !v.Visible {
			return "", true
		}
	}
	return "", false
}
