package realtime

import "sync"

// Feed is the subscription side of a Hub.
type Feed interface {
	Subscribe(topic string, onUpdate func(Event), onError func(error)) Unsubscribe
}

// Watch calls reload once right away and again after every change on any of
// topics. Calls to reload and onError never overlap.
func Watch(feed Feed, topics []string, reload func(), onError func(error)) Unsubscribe {
	trigger := make(chan struct{}, 1)
	errs := make(chan error, 1)
	done := make(chan struct{})

	poke := func(Event) {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}
	fail := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	unsubs := make([]Unsubscribe, 0, len(topics))
	for _, topic := range topics {
		unsubs = append(unsubs, feed.Subscribe(topic, poke, fail))
	}

	poke(Event{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-trigger:
				reload()
			case err := <-errs:
				if onError != nil {
					onError(err)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, unsub := range unsubs {
				unsub()
			}
			close(done)
		})
	}
}
