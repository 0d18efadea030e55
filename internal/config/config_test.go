package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/scorekeep/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it mirrors the original service defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":3000")
			convey.So(cfg.LeaderboardLimit, convey.ShouldEqual, 20)
			convey.So(cfg.RateLimitMax, convey.ShouldEqual, 30)
			convey.So(cfg.RateLimitWindow, convey.ShouldEqual, time.Minute)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreFirestore)
			convey.So(cfg.IdentityDriver, convey.ShouldEqual, config.IdentityFirebase)
			convey.So(cfg.FirebaseCredentialsFile, convey.ShouldEqual, "serviceAccountKey.json")
			convey.So(cfg.AllowPlaintextPasswords, convey.ShouldBeFalse)
		})

		convey.Convey("Then it does not validate without an api key", func() {
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with an api key", t, func() {
		cfg := config.New()
		cfg.APIKey = "secret"

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the store driver is unknown", func() {
			cfg.StoreDriver = "dynamo"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the local identity driver has no token secret", func() {
			cfg.IdentityDriver = config.IdentityLocal
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)

			cfg.LocalTokenSecret = "s3cr3t"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the rate limit is not positive", func() {
			cfg.RateLimitMax = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the redis limiter has no address", func() {
			cfg.RateLimitDriver = config.RateLimitRedis
			cfg.RedisAddr = ""
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestConfig_Origins(t *testing.T) {
	convey.Convey("Given a comma separated origin list", t, func() {
		cfg := config.New()
		cfg.CORSOrigins = " https://a.example/ ,https://b.example,, "

		convey.So(cfg.Origins(), convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
	})

	convey.Convey("Given the wildcard default", t, func() {
		convey.So(config.New().Origins(), convey.ShouldResemble, []string{"*"})
	})
}

func TestConfig_NeedsFirebase(t *testing.T) {
	convey.Convey("Given collaborator drivers", t, func() {
		cfg := config.New()
		convey.So(cfg.NeedsFirebase(), convey.ShouldBeTrue)

		cfg.StoreDriver = config.StoreMemory
		convey.So(cfg.NeedsFirebase(), convey.ShouldBeTrue)

		cfg.IdentityDriver = config.IdentityLocal
		convey.So(cfg.NeedsFirebase(), convey.ShouldBeFalse)
	})
}
