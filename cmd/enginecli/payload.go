package main

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// compressPayload gzips data when --gzip is set. The engine itself never
// sees this transform -- it is applied and reversed entirely at the CLI
// boundary so every other caller still gets a byte-identical round trip.
func compressPayload(data []byte) ([]byte, error) {
	if !useGzip {
		return data, nil
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressPayload reverses compressPayload.
func decompressPayload(data []byte) ([]byte, error) {
	if !useGzip {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
