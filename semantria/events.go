package semantria

// ProcessedFunc receives the raw response body of a successful POST
type ProcessedFunc func(body []byte)

type processedListener struct {
	id uint64
	fn ProcessedFunc
}

// OnProcessed registers fn to be called once for every successful POST made
// through the client, after the response body has been read in full.
// Listeners are called synchronously, in registration order, on the goroutine
// that made the request. The returned function removes the listener.
func (c *Client) OnProcessed(fn ProcessedFunc) (remove func()) {
	c.listenersmu.Lock()
	c.listenerid++
	id := c.listenerid
	c.listeners = append(c.listeners, processedListener{id: id, fn: fn})
	c.listenersmu.Unlock()
	return func() {
		c.listenersmu.Lock()
		defer c.listenersmu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				break
			}
		}
	}
}

func (c *Client) emitProcessed(body []byte) {
	c.listenersmu.RLock()
	listeners := c.listeners
	c.listenersmu.RUnlock()
	for _, l := range listeners {
		l.fn(body)
	}
}
