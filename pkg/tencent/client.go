package tencent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	asr "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/asr/v20190614"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/regions"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "tencent").Logger()
	return &l
}

// 录音文件识别任务状态
const (
	taskWaiting = iota
	taskRunning
	taskSuccess
	taskFailed
)

// MaxDataLen is the largest audio payload accepted inline by CreateRecTask.
const MaxDataLen = 5 * 1024 * 1024

type asrAPI interface {
	CreateRecTaskWithContext(ctx context.Context, request *asr.CreateRecTaskRequest) (*asr.CreateRecTaskResponse, error)
	DescribeTaskStatusWithContext(ctx context.Context, request *asr.DescribeTaskStatusRequest) (*asr.DescribeTaskStatusResponse, error)
}

type tmtAPI interface {
	TextTranslateWithContext(ctx context.Context, request *tmt.TextTranslateRequest) (*tmt.TextTranslateResponse, error)
}

// Client wraps Tencent Cloud speech recognition and machine translation.
type Client struct {
	asr          asrAPI
	tmt          tmtAPI
	pollInterval time.Duration
}

// Word is a recognized word with absolute times in seconds.
type Word struct {
	Text       string
	Start, End float64
}

// Sentence is a recognized sentence with absolute times in seconds.
type Sentence struct {
	Text       string
	Start, End float64
	Words      []Word
}

func NewClient(secretID, secretKey string) (*Client, error) {
	credential := common.NewCredential(
		secretID, secretKey,
	)

	cpf := profile.NewClientProfile()
	cpf.HttpProfile.ReqMethod = "POST"
	cpf.HttpProfile.ReqTimeout = 30
	cpf.HttpProfile.Endpoint = "asr.tencentcloudapi.com"

	asrClient, err := asr.NewClient(credential, regions.Shanghai, cpf)
	if err != nil {
		return nil, fmt.Errorf("new tencent asr client: %w", err)
	}
	tmtClient, err := tmt.NewClient(credential, regions.Guangzhou, profile.NewClientProfile())
	if err != nil {
		return nil, fmt.Errorf("new tencent tmt client: %w", err)
	}

	return &Client{asr: asrClient, tmt: tmtClient, pollInterval: 2 * time.Second}, nil
}

// Translate translates text into target ("zh", "en", ...). The source
// language is detected by the service.
func (c *Client) Translate(ctx context.Context, text, target string) (string, error) {
	request := tmt.NewTextTranslateRequest()
	request.SourceText = common.StringPtr(text)
	request.Source = common.StringPtr("auto")
	request.Target = common.StringPtr(target)
	request.ProjectId = common.Int64Ptr(0)

	response, err := c.tmt.TextTranslateWithContext(ctx, request)
	if err != nil {
		return "", fmt.Errorf("text translate: %w", err)
	}
	if response.Response == nil || response.Response.TargetText == nil {
		return "", errors.New("text translate: empty response")
	}
	return *response.Response.TargetText, nil
}

// Recognize submits audio as a file recognition task and waits for the
// result. engine is the engine model type, e.g. "16k_zh" or "16k_en".
func (c *Client) Recognize(ctx context.Context, audio []byte, engine string) ([]Sentence, error) {
	if len(audio) > MaxDataLen {
		return nil, fmt.Errorf("audio is %d bytes, limit is %d", len(audio), MaxDataLen)
	}

	request := asr.NewCreateRecTaskRequest()
	request.EngineModelType = common.StringPtr(engine)
	request.ChannelNum = common.Uint64Ptr(1)
	request.ResTextFormat = common.Uint64Ptr(2) // 词级别时间戳，含标点
	request.SourceType = common.Uint64Ptr(1)
	request.Data = common.StringPtr(base64.StdEncoding.EncodeToString(audio))
	request.DataLen = common.Uint64Ptr(uint64(len(audio)))

	created, err := c.asr.CreateRecTaskWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("create rec task: %w", err)
	}
	if created.Response == nil || created.Response.Data == nil || created.Response.Data.TaskId == nil {
		return nil, errors.New("create rec task: missing task id")
	}
	taskID := *created.Response.Data.TaskId
	logger().Info().Uint64("task_id", taskID).Int("bytes", len(audio)).Msg("Recognition task created")

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		status := asr.NewDescribeTaskStatusRequest()
		status.TaskId = common.Uint64Ptr(taskID)
		resp, err := c.asr.DescribeTaskStatusWithContext(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("describe task %d: %w", taskID, err)
		}
		if resp.Response == nil || resp.Response.Data == nil || resp.Response.Data.Status == nil {
			return nil, fmt.Errorf("describe task %d: empty response", taskID)
		}

		data := resp.Response.Data
		switch *data.Status {
		case taskSuccess:
			return sentences(data.ResultDetail), nil
		case taskFailed:
			msg := "unknown error"
			if data.ErrorMsg != nil {
				msg = *data.ErrorMsg
			}
			return nil, fmt.Errorf("task %d failed: %s", taskID, msg)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func sentences(details []*asr.SentenceDetail) []Sentence {
	out := make([]Sentence, 0, len(details))
	for _, d := range details {
		if d == nil || d.FinalSentence == nil {
			continue
		}
		start := ms(d.StartMs)
		s := Sentence{
			Text:  strings.TrimSpace(*d.FinalSentence),
			Start: start,
			End:   ms(d.EndMs),
		}
		for _, w := range d.Words {
			if w == nil || w.Word == nil {
				continue
			}
			s.Words = append(s.Words, Word{
				Text:  *w.Word,
				Start: start + ms(w.OffsetStartMs),
				End:   start + ms(w.OffsetEndMs),
			})
		}
		out = append(out, s)
	}
	return out
}

func ms(v *int64) float64 {
	if v == nil {
		return 0
	}
	return float64(*v) / 1000
}
