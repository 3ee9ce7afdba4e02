package soft

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum number of rows or slices a pass needs
// before it is split across workers.
const parallelThreshold = 4

// workChunk is a half-open range of rows or slices for one worker.
type workChunk struct {
	start, end int
	fn         func(start, end int)
}

// workerPool runs the rows or slices of a pass across persistent
// goroutines and blocks until the whole pass is done.
type workerPool struct {
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &workerPool{numWorkers: numWorkers}
}

// start launches the worker goroutines.
func (p *workerPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *workerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// run calls fn over [0, n) split into contiguous chunks and returns once
// every chunk has finished.
func (p *workerPool) run(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if n < parallelThreshold || p.numWorkers == 1 {
		fn(0, n)
		return
	}
	p.start()

	chunks := min(p.numWorkers, n)
	size := (n + chunks - 1) / chunks
	sent := 0
	for start := 0; start < n; start += size {
		p.workChan <- workChunk{start: start, end: min(start+size, n), fn: fn}
		sent++
	}
	for i := 0; i < sent; i++ {
		<-p.doneChan
	}
}
