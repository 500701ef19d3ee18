package sealer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/semmidev/omran/internal/domain"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSealer(t *testing.T) {
	Convey("Given a sealer and a JSON payload", t, func() {
		s := New()
		payload := []byte(`{"metadata":{"id":"x"},"data":{"customers":[{"id":1}]},"settings":{}}`)

		Convey("Without seal options the payload is untouched", func() {
			out, err := s.Seal(payload, domain.SealOptions{})
			So(err, ShouldBeNil)
			So(out, ShouldResemble, payload)
			So(IsSealed(out), ShouldBeFalse)
		})

		Convey("Compressed payloads round trip", func() {
			for _, alg := range []string{"gzip", "zstd", "lz4"} {
				out, err := s.Seal(payload, domain.SealOptions{Compress: true, Algorithm: alg, CompressionLevel: 6})
				So(err, ShouldBeNil)
				So(IsSealed(out), ShouldBeTrue)

				back, err := s.Open(out, "")
				So(err, ShouldBeNil)
				So(back, ShouldResemble, payload)
			}
		})

		Convey("Encrypted payloads need the right key", func() {
			out, err := s.Seal(payload, domain.SealOptions{Compress: true, Encrypt: true, EncryptionKey: "s3cret"})
			So(err, ShouldBeNil)
			So(bytes.Contains(out, []byte("customers")), ShouldBeFalse)

			back, err := s.Open(out, "s3cret")
			So(err, ShouldBeNil)
			So(back, ShouldResemble, payload)

			_, err = s.Open(out, "")
			So(errors.Is(err, ErrKeyRequired), ShouldBeTrue)

			_, err = s.Open(out, "wrong")
			So(err, ShouldNotBeNil)
		})

		Convey("Encryption without a key is a validation error", func() {
			_, err := s.Seal(payload, domain.SealOptions{Encrypt: true})
			So(domain.KindOf(err), ShouldEqual, domain.KindValidation)
		})

		Convey("A truncated envelope is malformed", func() {
			_, err := s.Open([]byte("OMRN"), "")
			So(errors.Is(err, ErrMalformed), ShouldBeTrue)
		})
	})
}
