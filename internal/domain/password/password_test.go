package password_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/okian/scorekeep/internal/domain/password"
	"github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher(t *testing.T) {
	convey.Convey("Given a hasher at minimum cost", t, func() {
		h := password.NewHasher(bcrypt.MinCost)

		convey.Convey("When hashing a password", func() {
			hash, err := h.Hash("hunter2")
			convey.So(err, convey.ShouldBeNil)
			convey.So(hash, convey.ShouldNotEqual, "hunter2")

			convey.Convey("Then the same password verifies", func() {
				convey.So(h.Verify(hash, "hunter2"), convey.ShouldBeNil)
			})

			convey.Convey("Then a different password is a mismatch", func() {
				err := h.Verify(hash, "hunter3")
				convey.So(errors.Is(err, password.ErrMismatch), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the stored hash is malformed", func() {
			err := h.Verify("not-a-hash", "hunter2")
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, password.ErrMismatch), convey.ShouldBeFalse)
		})

		convey.Convey("When the password is longer than bcrypt accepts", func() {
			_, err := h.Hash(strings.Repeat("p", 73))
			convey.So(errors.Is(err, password.ErrTooLong), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an out of range cost", t, func() {
		convey.So(password.NewHasher(99), convey.ShouldNotBeNil)
	})
}

func TestEqualPlaintext(t *testing.T) {
	convey.Convey("Given plaintext secrets", t, func() {
		convey.So(password.EqualPlaintext("abc", "abc"), convey.ShouldBeTrue)
		convey.So(password.EqualPlaintext("abc", "abd"), convey.ShouldBeFalse)
		convey.So(password.EqualPlaintext("abc", ""), convey.ShouldBeFalse)
	})
}
