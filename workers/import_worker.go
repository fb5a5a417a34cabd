package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/camden-git/photovaultbackend/importer"
	"github.com/camden-git/photovaultbackend/queue"
)

const receiveWait = 10 * time.Second

// ImportWorkerPool consumes file messages with a fixed number of goroutines.
// Each in-flight message gets a heartbeat that extends its visibility window
// for as long as its processing attempt runs, and a background sweeper
// returns messages whose consumer died to the queue.
type ImportWorkerPool struct {
	queue     queue.Queue
	processor *importer.Processor

	numWorkers        int
	heartbeatInterval time.Duration
	visibilityTimeout time.Duration
	reclaimInterval   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewImportWorkerPool creates a pool; Start must be called to begin consuming
func NewImportWorkerPool(q queue.Queue, processor *importer.Processor, numWorkers int, heartbeatInterval, visibilityTimeout, reclaimInterval time.Duration) *ImportWorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &ImportWorkerPool{
		queue:             q,
		processor:         processor,
		numWorkers:        numWorkers,
		heartbeatInterval: heartbeatInterval,
		visibilityTimeout: visibilityTimeout,
		reclaimInterval:   reclaimInterval,
		ctx:               ctx,
		cancel:            cancel,
	}
}

// Start launches the consumer goroutines and the reclaim sweeper
func (p *ImportWorkerPool) Start() {
	log.Printf("workers: starting %d import workers", p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}
	p.wg.Add(1)
	go p.runReclaimer()
}

// Stop signals every goroutine and waits for in-flight attempts to finish.
// Messages mid-attempt are not requeued here; their visibility window lapses
// and the sweeper of the next process picks them up.
func (p *ImportWorkerPool) Stop() {
	log.Println("workers: stopping import workers")
	p.cancel()
	p.wg.Wait()
	log.Println("workers: import workers stopped")
}

func (p *ImportWorkerPool) runWorker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		msg, err := p.queue.Receive(p.ctx, receiveWait)
		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			log.Printf("workers: worker %d receive failed: %v", id, err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		p.handle(id, msg)
	}
}

func (p *ImportWorkerPool) handle(id int, msg *queue.Message) {
	fileMsg, err := importer.DecodeMessage(msg.Body)
	if err != nil {
		// undecodable messages can never succeed; acknowledge and move on
		log.Printf("workers: worker %d dropping malformed message %s: %v", id, msg.ID, err)
		p.ack(msg)
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(p.ctx)
	go p.heartbeat(hbCtx, msg.ReceiptHandle)

	outcome := p.processor.Process(p.ctx, fileMsg)
	stopHeartbeat()

	if outcome.Retry {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.queue.Requeue(ctx, msg.ReceiptHandle); err != nil {
			// the visibility timeout redelivers it anyway, just later
			log.Printf("workers: worker %d failed to requeue message %s: %v", id, msg.ID, err)
		}
		return
	}
	// success, terminal failure and abandonment all consume the delivery
	p.ack(msg)
}

// heartbeat keeps extending the message's visibility window until the
// processing attempt finishes
func (p *ImportWorkerPool) heartbeat(ctx context.Context, receiptHandle string) {
	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.queue.ExtendVisibility(ctx, receiptHandle, p.visibilityTimeout); err != nil {
				log.Printf("workers: heartbeat for delivery %s failed: %v", receiptHandle, err)
			}
		}
	}
}

func (p *ImportWorkerPool) runReclaimer() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.reclaimInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			moved, err := p.queue.ReclaimExpired(p.ctx)
			if err != nil {
				if p.ctx.Err() == nil {
					log.Printf("workers: reclaim sweep failed: %v", err)
				}
				continue
			}
			if moved > 0 {
				log.Printf("workers: reclaimed %d expired deliveries", moved)
			}
		}
	}
}

// ack deletes a delivery on a background context so acknowledgement still
// works while the pool shuts down
func (p *ImportWorkerPool) ack(msg *queue.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		log.Printf("workers: failed to delete message %s: %v", msg.ID, err)
	}
}
