// Copyright 2024 The go-fit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fit

import "testing"

func TestCRCVectors(t *testing.T) {
	tests := []struct {
		name string
		seed uint16
		in   []byte
		want uint16
	}{
		{"empty, seed 1234", 1234, nil, 1234},
		{"eight bytes", 0, []byte{0, 0, 1, 0, 0, 0, 0, 1}, 4544},
		{"hello world", 45612, []byte("Hello World"), 29657},
		{"eight zeros", 0, make([]byte, 8), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCRC(tt.seed)
			c.Consume(tt.in)
			if got := c.Digest(); got != tt.want {
				t.Fatalf("Digest() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCRCConsumeIsIncremental(t *testing.T) {
	whole := []byte("Hello World")

	c1 := NewCRC(45612)
	c1.Consume(whole)

	c2 := NewCRC(45612)
	c2.Consume(whole[:4])
	c2.Consume(whole[4:])

	if c1.Digest() != c2.Digest() {
		t.Fatalf("incremental consume diverged: %d != %d", c1.Digest(), c2.Digest())
	}
}

func TestCRCResetAndWriter(t *testing.T) {
	c := NewCRC(0)
	c.Consume([]byte("garbage"))
	c.Reset()
	if c.Digest() != 0 {
		t.Fatalf("Reset() left digest %d, want 0", c.Digest())
	}

	n, err := c.Write([]byte("Hello World"))
	if err != nil || n != len("Hello World") {
		t.Fatalf("Write() = (%d, %v)", n, err)
	}
	// Write and Consume must agree.
	c2 := NewCRC(0)
	c2.Consume([]byte("Hello World"))
	if c.Sum16() != c2.Digest() {
		t.Fatalf("Write()/Sum16() = %d, want %d", c.Sum16(), c2.Digest())
	}
}
