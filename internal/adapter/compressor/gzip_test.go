package compressor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGzipCompressor(t *testing.T) {
	Convey("Given a GzipCompressor", t, func() {
		compressor := NewGzip()
		inputContent := []byte(strings.Repeat(`{"id":1,"name":"Widget"},`, 200))

		Convey("Compress method", func() {
			Convey("It should produce a valid gzip stream", func() {
				out, err := compressor.Compress(inputContent, 0)
				So(err, ShouldBeNil)
				So(len(out), ShouldBeLessThan, len(inputContent))

				gzipReader, err := gzip.NewReader(bytes.NewReader(out))
				So(err, ShouldBeNil)
				defer gzipReader.Close()

				var decompressedContent bytes.Buffer
				_, err = decompressedContent.ReadFrom(gzipReader)
				So(err, ShouldBeNil)
				So(decompressedContent.Bytes(), ShouldResemble, inputContent)
			})

			Convey("An out of range level should return an error", func() {
				_, err := compressor.Compress(inputContent, 42)
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to create gzip writer")
			})
		})

		Convey("Decompress method", func() {
			Convey("When the input is not gzip", func() {
				_, err := compressor.Decompress([]byte("plain text"))
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to create gzip reader")
			})
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given every registered algorithm", t, func() {
		payload := []byte(strings.Repeat("omran backup payload ", 100))

		for _, name := range []string{AlgorithmGzip, AlgorithmZstd, AlgorithmLZ4} {
			name := name
			Convey("Round trip through "+name, func() {
				c, err := Get(name)
				So(err, ShouldBeNil)
				So(c.Algorithm(), ShouldEqual, name)

				packed, err := c.Compress(payload, 6)
				So(err, ShouldBeNil)

				detected, ok := Detect(packed)
				So(ok, ShouldBeTrue)
				So(detected.Algorithm(), ShouldEqual, name)

				unpacked, err := detected.Decompress(packed)
				So(err, ShouldBeNil)
				So(unpacked, ShouldResemble, payload)
			})
		}

		Convey("An unknown algorithm is rejected", func() {
			_, err := Get("brotli")
			So(err, ShouldNotBeNil)
		})

		Convey("Plain JSON is not detected as compressed", func() {
			_, ok := Detect([]byte(`{"metadata":{}}`))
			So(ok, ShouldBeFalse)
		})
	})
}
