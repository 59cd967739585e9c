// Package fuzzdata splits a raw fuzz input into typed values.
//
// Integers are taken from the end of the buffer and raw byte slices from the front, so a mutation of
// one region rarely changes how the other is interpreted. An exhausted buffer keeps yielding the
// minimum of the requested range.
package fuzzdata

type Provider struct {
	data []byte
}

func NewProvider(data []byte) *Provider {
	return &Provider{data: data}
}

func (p *Provider) RemainingBytes() int {
	return len(p.data)
}

// ConsumeIntInRange returns a value in [min, max] built from as many trailing bytes as the width of the
// range needs. It panics when min > max.
func (p *Provider) ConsumeIntInRange(min, max int64) int64 {
	if min > max {
		panic("fuzzdata: min must not be greater than max")
	}

	rng := uint64(max) - uint64(min)

	var (
		result uint64
		offset uint
	)

	for offset < 64 && rng>>offset > 0 && len(p.data) > 0 {
		last := len(p.data) - 1
		result = result<<8 | uint64(p.data[last])
		p.data = p.data[:last]
		offset += 8
	}

	if rng != ^uint64(0) {
		result %= rng + 1
	}

	return int64(uint64(min) + result)
}

func (p *Provider) ConsumeBool() bool {
	return p.ConsumeIntInRange(0, 1) == 1
}

// ConsumeBytes returns up to n bytes from the front of the buffer.
func (p *Provider) ConsumeBytes(n int) []byte {
	if n > len(p.data) {
		n = len(p.data)
	}

	out := make([]byte, n)
	copy(out, p.data[:n])
	p.data = p.data[n:]

	return out
}

// ConsumeRemainingBytes drains the buffer.
func (p *Provider) ConsumeRemainingBytes() []byte {
	return p.ConsumeBytes(len(p.data))
}
