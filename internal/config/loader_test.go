package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/mapboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBPath, convey.ShouldEqual, "mapboard.db")
			convey.So(cfg.MapsFile, convey.ShouldEqual, "maps_api_urls.txt")
			convey.So(cfg.PageSize, convey.ShouldEqual, 100)
			convey.So(cfg.MaxRecords, convey.ShouldEqual, 10_000)
			convey.So(cfg.RequestDelay().Milliseconds(), convey.ShouldEqual, 1500)
			convey.So(cfg.RequestTimeout().Seconds(), convey.ShouldEqual, 30)
			convey.So(cfg.SyncInterval(), convey.ShouldEqual, 0)
			convey.So(cfg.PointsMode, convey.ShouldEqual, config.PointsModeTiered)
			convey.So(cfg.PointsBase, convey.ShouldEqual, 40_000)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		_ = os.Setenv("MAPBOARD_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.PageSize, convey.ShouldEqual, 100)
				convey.So(cfg.RequestDelayMS, convey.ShouldEqual, 1500)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("MAPBOARD_ADDR", ":8080")
			_ = os.Setenv("MAPBOARD_DB_PATH", "/tmp/x.db")
			_ = os.Setenv("MAPBOARD_REQUEST_DELAY_MS", "250")
			_ = os.Setenv("MAPBOARD_PAGE_SIZE", "50")
			_ = os.Setenv("MAPBOARD_LOG_LEVEL", "DEBUG")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/x.db")
				convey.So(cfg.RequestDelayMS, convey.ShouldEqual, 250)
				convey.So(cfg.PageSize, convey.ShouldEqual, 50)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
maps_file: "my_maps.txt"
page_size: 25
points_mode: table
points_table: [100, 80, 60, 50]
`)
			_ = os.Setenv("MAPBOARD_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MapsFile, convey.ShouldEqual, "my_maps.txt")
				convey.So(cfg.PageSize, convey.ShouldEqual, 25)
				convey.So(cfg.PointsMode, convey.ShouldEqual, config.PointsModeTable)
				convey.So(cfg.PointsTable, convey.ShouldResemble, []float64{100, 80, 60, 50})
				convey.So(cfg.MaxRecords, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			tmpFile := createTempConfigFile(t, "addr: \":9090\"\npage_size: 25\n")
			_ = os.Setenv("MAPBOARD_CONFIG", tmpFile)
			_ = os.Setenv("MAPBOARD_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PageSize, convey.ShouldEqual, 25)
			})
		})

		convey.Convey("When a .env file is present", func() {
			dotenv := filepath.Join(t.TempDir(), "test.env")
			convey.So(os.WriteFile(dotenv, []byte("MAPBOARD_MAPS_FILE=from_dotenv.txt\nMAPBOARD_ADDR=:7000\n"), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("MAPBOARD_ENV_FILE", dotenv)
			_ = os.Setenv("MAPBOARD_ADDR", ":6000")

			cfg, err := config.Load(ctx)

			convey.Convey("Then its values apply without overriding the real environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MapsFile, convey.ShouldEqual, "from_dotenv.txt")
				convey.So(cfg.Addr, convey.ShouldEqual, ":6000")
			})
		})

		convey.Convey("When loading config with invalid YAML", func() {
			_ = os.Setenv("MAPBOARD_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			_ = os.Setenv("MAPBOARD_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("MAPBOARD_PAGE_SIZE", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When validation fails", func() {
			cases := map[string]string{
				"MAPBOARD_ADDR":        "",
				"MAPBOARD_PAGE_SIZE":   "500",
				"MAPBOARD_LOG_LEVEL":   "verbose",
				"MAPBOARD_LOG_FORMAT":  "xml",
				"MAPBOARD_POINTS_MODE": "elo",
			}
			for key, value := range cases {
				clearConfigEnvVars()
				_ = os.Setenv("MAPBOARD_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
				_ = os.Setenv(key, value)

				cfg, err := config.Load(ctx)

				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})
	})
}

func TestConfigValidatePoints(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the tiered base is not positive", func() {
			cfg.PointsBase = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When table mode has no table", func() {
			cfg.PointsMode = config.PointsModeTable
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the table rewards a worse rank", func() {
			cfg.PointsMode = config.PointsModeTable
			cfg.PointsTable = []float64{10, 8, 9}
			err := cfg.Validate()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "non-increasing")
		})

		convey.Convey("When the table is non-increasing", func() {
			cfg.PointsMode = config.PointsModeTable
			cfg.PointsTable = []float64{10, 8, 8, 1}
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"MAPBOARD_CONFIG",
		"MAPBOARD_ENV_FILE",
		"MAPBOARD_ADDR",
		"MAPBOARD_DB_PATH",
		"MAPBOARD_MAPS_FILE",
		"MAPBOARD_REQUEST_DELAY_MS",
		"MAPBOARD_PAGE_SIZE",
		"MAPBOARD_LOG_LEVEL",
		"MAPBOARD_LOG_FORMAT",
		"MAPBOARD_POINTS_MODE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "mapboard-config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
