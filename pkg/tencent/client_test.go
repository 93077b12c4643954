package tencent

import (
	"context"
	"errors"
	"testing"
	"time"

	asr "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/asr/v20190614"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"
)

type fakeASR struct {
	polls    int
	statuses []int64
	detail   []*asr.SentenceDetail
	audioLen uint64
}

func (f *fakeASR) CreateRecTaskWithContext(ctx context.Context, r *asr.CreateRecTaskRequest) (*asr.CreateRecTaskResponse, error) {
	f.audioLen = *r.DataLen
	resp := asr.NewCreateRecTaskResponse()
	resp.Response = &asr.CreateRecTaskResponseParams{Data: &asr.Task{TaskId: common.Uint64Ptr(7)}}
	return resp, nil
}

func (f *fakeASR) DescribeTaskStatusWithContext(ctx context.Context, r *asr.DescribeTaskStatusRequest) (*asr.DescribeTaskStatusResponse, error) {
	status := f.statuses[f.polls]
	f.polls++
	resp := asr.NewDescribeTaskStatusResponse()
	resp.Response = &asr.DescribeTaskStatusResponseParams{Data: &asr.TaskStatus{
		TaskId:       common.Uint64Ptr(*r.TaskId),
		Status:       common.Int64Ptr(status),
		ErrorMsg:     common.StringPtr("audio too short"),
		ResultDetail: f.detail,
	}}
	return resp, nil
}

type fakeTMT struct{ target string }

func (f *fakeTMT) TextTranslateWithContext(ctx context.Context, r *tmt.TextTranslateRequest) (*tmt.TextTranslateResponse, error) {
	f.target = *r.Target
	resp := tmt.NewTextTranslateResponse()
	resp.Response = &tmt.TextTranslateResponseParams{TargetText: common.StringPtr("你好，世界")}
	return resp, nil
}

func TestRecognize(t *testing.T) {
	fake := &fakeASR{
		statuses: []int64{taskWaiting, taskRunning, taskSuccess},
		detail: []*asr.SentenceDetail{{
			FinalSentence: common.StringPtr("你好世界。"),
			StartMs:       common.Int64Ptr(1500),
			EndMs:         common.Int64Ptr(3000),
			Words: []*asr.SentenceWords{
				{Word: common.StringPtr("你好"), OffsetStartMs: common.Int64Ptr(0), OffsetEndMs: common.Int64Ptr(600)},
				{Word: common.StringPtr("世界"), OffsetStartMs: common.Int64Ptr(500), OffsetEndMs: common.Int64Ptr(1500)},
			},
		}},
	}
	c := &Client{asr: fake, pollInterval: time.Millisecond}

	got, err := c.Recognize(context.Background(), []byte("audio"), "16k_zh")
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if fake.polls != 3 || fake.audioLen != 5 {
		t.Errorf("unexpected polls %d or data len %d", fake.polls, fake.audioLen)
	}
	if len(got) != 1 || got[0].Start != 1.5 || got[0].End != 3 {
		t.Fatalf("unexpected sentences %+v", got)
	}
	if w := got[0].Words[1]; w.Text != "世界" || w.Start != 2 || w.End != 3 {
		t.Errorf("word times should be absolute, got %+v", w)
	}
}

func TestRecognizeFailed(t *testing.T) {
	c := &Client{asr: &fakeASR{statuses: []int64{taskFailed}}, pollInterval: time.Millisecond}
	if _, err := c.Recognize(context.Background(), []byte("a"), "16k_zh"); err == nil {
		t.Fatal("expected error for failed task")
	}

	big := make([]byte, MaxDataLen+1)
	if _, err := c.Recognize(context.Background(), big, "16k_zh"); err == nil {
		t.Fatal("expected error for oversized audio")
	}
}

func TestRecognizeCancelled(t *testing.T) {
	c := &Client{asr: &fakeASR{statuses: []int64{taskRunning, taskRunning}}, pollInterval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Recognize(ctx, []byte("a"), "16k_zh"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTranslate(t *testing.T) {
	fake := &fakeTMT{}
	c := &Client{tmt: fake}
	got, err := c.Translate(context.Background(), "hello world", "zh")
	if err != nil || got != "你好，世界" {
		t.Fatalf("Translate = %q, %v", got, err)
	}
	if fake.target != "zh" {
		t.Errorf("unexpected target %q", fake.target)
	}
}
