// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netio

// Cord is a minimal rope of byte fragments, standing in for the source's
// absl::Cord in the OnReceive callback signature: received fragments are
// appended without copying, and coalesced into one contiguous slice only
// when the user callback actually asks for it.
type Cord struct {
	fragments [][]byte
	size      int
}

// Append adds a fragment. Cord takes ownership of buf; the caller must
// not reuse or mutate it afterwards.
func (c *Cord) Append(buf []byte) {
	if len(buf) == 0 {
		return
	}
	c.fragments = append(c.fragments, buf)
	c.size += len(buf)
}

// Len returns the total number of bytes across all fragments.
func (c *Cord) Len() int {
	return c.size
}

// Bytes coalesces every fragment into a single contiguous slice.
func (c *Cord) Bytes() []byte {
	if len(c.fragments) == 1 {
		return c.fragments[0]
	}
	out := make([]byte, 0, c.size)
	for _, f := range c.fragments {
		out = append(out, f...)
	}
	return out
}

// Consume removes the first n bytes, returning their buffers to recycle
// via release, and keeping any remainder for the next round.
func (c *Cord) Consume(n int, release func([]byte)) {
	for n > 0 && len(c.fragments) > 0 {
		f := c.fragments[0]
		if len(f) <= n {
			n -= len(f)
			c.size -= len(f)
			c.fragments = c.fragments[1:]
			if release != nil {
				release(f)
			}
			continue
		}
		c.fragments[0] = f[n:]
		c.size -= n
		n = 0
	}
}

// Reset empties the cord, releasing every fragment via release.
func (c *Cord) Reset(release func([]byte)) {
	if release != nil {
		for _, f := range c.fragments {
			release(f)
		}
	}
	c.fragments = nil
	c.size = 0
}
