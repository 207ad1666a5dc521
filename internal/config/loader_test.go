package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/abhisek/actprep/internal/config"
	"github.com/abhisek/actprep/internal/subject"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "actprep.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("ACTPREP_CONFIG", "")
	t.Chdir(t.TempDir())
	clearEnv()

	convey.Convey("Given no file and no environment", t, func() {
		cfg, err := config.Load("")

		convey.Convey("Then the defaults apply", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.Store.Backend, convey.ShouldEqual, config.BackendSQLite)
			convey.So(cfg.Store.FetchLimit, convey.ShouldEqual, 25)
			convey.So(cfg.Cooldown, convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.Pinata.JWT, convey.ShouldBeEmpty)

			p, err := cfg.Params()
			convey.So(err, convey.ShouldBeNil)
			convey.So(p.Seed, convey.ShouldEqual, 13.0)
			convey.So(p.Multipliers[subject.Hard], convey.ShouldEqual, 0.3)

			baseline, err := cfg.BaselineScores()
			convey.So(err, convey.ShouldBeNil)
			convey.So(baseline[subject.Science], convey.ShouldEqual, 21)
		})
	})

	convey.Convey("Given a YAML file", t, func() {
		path := writeConfig(t, `
addr: ":9090"
store:
  backend: pinata
  fetch_limit: 10
  fetch_timeout: 5s
pinata:
  jwt: file-token
scoring:
  seeds:
    math: 15
    Reading: 17.5
  multipliers:
    Hard: 0.4
baseline:
  english: 19
cooldown: 1m
`)
		cfg, err := config.Load(path)

		convey.Convey("Then file values override defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.Store.Backend, convey.ShouldEqual, config.BackendPinata)
			convey.So(cfg.Store.FetchTimeout, convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.Cooldown, convey.ShouldEqual, time.Minute)

			seeds, err := cfg.Seeds()
			convey.So(err, convey.ShouldBeNil)
			convey.So(seeds[subject.Mathematics], convey.ShouldEqual, 15.0)
			convey.So(seeds[subject.Reading], convey.ShouldEqual, 17.5)
			convey.So(seeds[subject.Science], convey.ShouldEqual, 13.0)

			p, err := cfg.Params()
			convey.So(err, convey.ShouldBeNil)
			convey.So(p.Multipliers[subject.Hard], convey.ShouldEqual, 0.4)

			baseline, err := cfg.BaselineScores()
			convey.So(err, convey.ShouldBeNil)
			convey.So(baseline[subject.English], convey.ShouldEqual, 19)
			convey.So(baseline[subject.Mathematics], convey.ShouldEqual, 21)
		})

		convey.Convey("And environment variables override the file", func() {
			_ = os.Setenv("ACTPREP_ADDR", ":7070")
			_ = os.Setenv("ACTPREP_PINATA__JWT", "env-token")
			_ = os.Setenv("ACTPREP_STORE__FETCH_LIMIT", "3")
			defer clearEnv()

			cfg, err := config.Load(path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			convey.So(cfg.Pinata.JWT, convey.ShouldEqual, "env-token")
			convey.So(cfg.Store.FetchLimit, convey.ShouldEqual, 3)
		})
	})

	convey.Convey("Given an invalid configuration", t, func() {
		convey.Convey("The pinata backend without a JWT is rejected", func() {
			_, err := config.Load(writeConfig(t, "store:\n  backend: pinata\n"))
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("An unknown subject in the baseline is rejected", func() {
			_, err := config.Load(writeConfig(t, "baseline:\n  art: 20\n"))
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("Decreasing multipliers are rejected", func() {
			_, err := config.Load(writeConfig(t, "scoring:\n  multipliers:\n    easy: 0.5\n"))
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("A missing file fails to load", func() {
			_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})
	})
}

func clearEnv() {
	for _, k := range []string{"ACTPREP_ADDR", "ACTPREP_PINATA__JWT", "ACTPREP_STORE__FETCH_LIMIT"} {
		_ = os.Unsetenv(k)
	}
}
