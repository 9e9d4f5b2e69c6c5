package core

import (
	"context"
	"sync"
)

const (
	defaultAsyncWorkers = 4
	defaultAsyncQueue   = 64
)

// AsyncClient layers a background write pool over Client for callers that
// record chat turns on the hot path and do not want to wait for
// classification, embedding, and persistence.
//
// Writes are queued to a fixed worker pool, so the number of concurrent
// write-time embedding calls is bounded no matter how fast turns arrive.
// Each queued write completes independently; results are delivered on
// per-call channels.
//
// Example:
//
//	asyncClient, _ := core.NewAsyncClient(config)
//	defer asyncClient.Close()
//
//	resultChan := asyncClient.WriteMemoryAsync(ctx, &core.WriteInput{
//	    UserID:  "user_001",
//	    Content: "Key concept: derivatives measure rate of change",
//	})
//	result := <-resultChan
//	if result.Error != nil {
//	    log.Fatal(result.Error)
//	}
type AsyncClient struct {
	*Client

	queue chan asyncWrite
	wg    sync.WaitGroup

	// pending tracks queued writes that have not completed yet.
	pending sync.WaitGroup

	closeOnce sync.Once
}

// asyncWrite is one queued write with its result channel.
type asyncWrite struct {
	ctx    context.Context
	input  *WriteInput
	result chan<- WriteResult
}

// NewAsyncClient creates a client with a running background write pool.
//
// Parameters:
//   - cfg: client configuration; cfg.Async sizes the pool (4 workers and a
//     queue of 64 by default)
//   - opts: optional collaborator overrides, passed through to NewClient
//
// Returns the async client, or an error if client initialization fails.
func NewAsyncClient(cfg *Config, opts ...ClientOption) (*AsyncClient, error) {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return newAsyncClient(client, cfg.Async), nil
}

func newAsyncClient(client *Client, cfg AsyncConfig) *AsyncClient {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultAsyncWorkers
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultAsyncQueue
	}

	ac := &AsyncClient{
		Client: client,
		queue:  make(chan asyncWrite, queueSize),
	}

	ac.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go ac.worker()
	}

	return ac
}

// worker drains the queue until Close.
func (ac *AsyncClient) worker() {
	defer ac.wg.Done()
	for job := range ac.queue {
		memory, err := ac.WriteMemory(job.ctx, job.input)
		job.result <- WriteResult{Memory: memory, Error: err}
		close(job.result)
		ac.pending.Done()
	}
}

// WriteMemoryAsync queues a memory write and returns immediately.
//
// The returned channel receives exactly one WriteResult when the write
// completes and is then closed. When the queue is full the call blocks
// until a worker frees a slot or ctx is cancelled; a cancelled enqueue
// delivers ctx.Err() on the channel without touching the store.
//
// Parameters:
//   - ctx: Context governing both the enqueue and the eventual write
//   - input: The turn to persist; same contract as WriteMemory
//
// Returns a channel delivering the written Memory or the write error.
func (ac *AsyncClient) WriteMemoryAsync(ctx context.Context, input *WriteInput) <-chan WriteResult {
	result := make(chan WriteResult, 1)

	if ac.closed.Load() {
		result <- WriteResult{Error: NewMemoryError("WriteMemoryAsync", ErrClosed)}
		close(result)
		return result
	}

	ac.pending.Add(1)
	select {
	case ac.queue <- asyncWrite{ctx: ctx, input: input, result: result}:
	case <-ctx.Done():
		ac.pending.Done()
		result <- WriteResult{Error: ctx.Err()}
		close(result)
	}

	return result
}

// Wait blocks until every queued write has completed. Call it before
// process exit when results are not being consumed individually.
func (ac *AsyncClient) Wait() {
	ac.pending.Wait()
}

// Close drains the queue, stops the workers, and closes the underlying
// client.
func (ac *AsyncClient) Close() error {
	ac.closeOnce.Do(func() {
		close(ac.queue)
		ac.wg.Wait()
	})
	return ac.Client.Close()
}
