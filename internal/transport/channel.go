package transport

import "context"

// NewChannel binds an adapter to a fixed target.
func NewChannel(ad Adapter, to ChatTarget, title string) Channel {
	return &adapterChannel{ad: ad, to: to, title: title}
}

type adapterChannel struct {
	ad    Adapter
	to    ChatTarget
	title string
}

func (c *adapterChannel) Target() ChatTarget { return c.to }
func (c *adapterChannel) Title() string      { return c.title }

func (c *adapterChannel) Send(ctx context.Context, text string, opt *SendOptions) (MessageRef, error) {
	return c.ad.SendText(ctx, c.to, text, opt)
}

// InThread returns ch retargeted at a forum topic. Channels that cannot
// address topics, and threadID 0, return ch unchanged.
func InThread(ch Channel, threadID int) Channel {
	if ch == nil || threadID == 0 {
		return ch
	}
	if t, ok := ch.(interface{ InThread(int) Channel }); ok {
		return t.InThread(threadID)
	}
	return ch
}

func (c *adapterChannel) InThread(threadID int) Channel {
	to := c.to
	to.ThreadID = threadID
	return &adapterChannel{ad: c.ad, to: to, title: c.title}
}
