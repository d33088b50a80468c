package persist

import (
	"log"
	"sync"
)

// Saver is the asynchronous write-through worker. Mutations request a save
// and return immediately; one background goroutine captures and writes the
// document. Requests arriving while a write is in flight coalesce into a
// single follow-up write, so a burst of mutations costs one capture.
//
// The tree is eventually consistent with storage: a crash between a
// mutation and the completed write loses that change. That window is an
// accepted limitation, the in-memory tree stays authoritative for the
// session either way.
type Saver struct {
	store    *FileStore
	capture  func() Document
	requests chan struct{}
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewSaver creates a Saver and starts its worker goroutine. capture is
// called from the worker, so it must be safe to call off the event loop;
// Capture over a Session is.
func NewSaver(store *FileStore, capture func() Document) *Saver {
	sv := &Saver{
		store:    store,
		capture:  capture,
		requests: make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go sv.run()
	return sv
}

// Request schedules a save. It never blocks: if a save is already pending
// the request folds into it.
func (sv *Saver) Request() {
	select {
	case sv.requests <- struct{}{}:
	default:
	}
}

// Close stops the worker, flushing a pending request first so the last
// structural change of a session reaches disk on clean shutdown.
func (sv *Saver) Close() {
	sv.once.Do(func() { close(sv.quit) })
	<-sv.done
}

func (sv *Saver) run() {
	defer close(sv.done)
	for {
		select {
		case <-sv.quit:
			select {
			case <-sv.requests:
				sv.save()
			default:
			}
			return
		case <-sv.requests:
			sv.save()
		}
	}
}

// save captures and writes one document. Failures are logged and swallowed;
// persistence trouble must never interrupt the user.
func (sv *Saver) save() {
	if err := sv.store.Save(sv.capture()); err != nil {
		log.Printf("persist: save failed: %v", err)
	}
}
