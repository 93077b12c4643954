package transcribe

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is a snapshot of one transcription.
type Job struct {
	ID        string
	AudioPath string
	Status    Status
	Result    string
	Err       error
	CreatedAt time.Time
}

// Jobs runs transcriptions in the background and keeps their state.
type Jobs struct {
	t Transcriber

	mu   sync.RWMutex
	jobs map[string]*Job
	wg   sync.WaitGroup
}

func NewJobs(t Transcriber) *Jobs {
	return &Jobs{t: t, jobs: make(map[string]*Job)}
}

// Submit starts transcribing audioPath and returns the job id. done, if not
// nil, is called with the final job from the worker goroutine.
func (j *Jobs) Submit(ctx context.Context, audioPath string, done func(Job)) string {
	job := &Job{
		ID:        uuid.New().String(),
		AudioPath: audioPath,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	j.mu.Lock()
	j.jobs[job.ID] = job
	j.mu.Unlock()

	logger().Info().Str("job", job.ID).Str("file", audioPath).Msg("Transcription submitted")

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.update(job.ID, func(job *Job) { job.Status = StatusProcessing })

		result, err := j.t.Transcribe(ctx, audioPath)
		final := j.update(job.ID, func(job *Job) {
			if err != nil {
				job.Status = StatusFailed
				job.Err = err
				return
			}
			job.Status = StatusCompleted
			job.Result = result
		})
		if err != nil {
			logger().Error().Err(err).Str("job", final.ID).Msg("Transcription failed")
		} else {
			logger().Info().Str("job", final.ID).Msg("Transcription completed")
		}
		if done != nil {
			done(final)
		}
	}()
	return job.ID
}

func (j *Jobs) update(id string, fn func(*Job)) Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	job := j.jobs[id]
	fn(job)
	return *job
}

func (j *Jobs) Get(id string) (Job, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	job, ok := j.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Wait blocks until every submitted job has finished.
func (j *Jobs) Wait() {
	j.wg.Wait()
}
