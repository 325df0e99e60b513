package registry_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/mapboard/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given a registry with valid, malformed and duplicate lines", t, func() {
		input := strings.Join([]string{
			"# my maps",
			"https://api.example.com/api/leaderboard/map/AbC123?offset=0&length=100|Alpha",
			"",
			"not a url|Broken",
			"https://api.example.com/api/leaderboard/map/Def456",
			"https://api.example.com/api/leaderboard/map/AbC123|Again",
			"https://api.example.com/api/other/xyz|No uid",
			"  https://api.example.com/api/leaderboard/map/Ghi789?season=3  |  Gamma  ",
		}, "\n")

		Convey("When parsed", func() {
			reg, err := registry.Parse(strings.NewReader(input))

			Convey("Then valid entries load in file order", func() {
				So(err, ShouldBeNil)
				So(reg.Maps, ShouldHaveLength, 3)
				So(reg.Maps[0].UID, ShouldEqual, "AbC123")
				So(reg.Maps[0].Name, ShouldEqual, "Alpha")
				So(reg.Maps[0].FetchOrder, ShouldEqual, 1)
				So(reg.Maps[1].UID, ShouldEqual, "Def456")
				So(reg.Maps[1].Name, ShouldEqual, "Def456")
				So(reg.Maps[2].Name, ShouldEqual, "Gamma")
				So(reg.Maps[2].FetchOrder, ShouldEqual, 7)
			})

			Convey("Then paging parameters are stripped and others kept", func() {
				So(reg.Maps[0].URL, ShouldEqual, "https://api.example.com/api/leaderboard/map/AbC123")
				So(reg.Maps[2].URL, ShouldEqual, "https://api.example.com/api/leaderboard/map/Ghi789?season=3")
			})

			Convey("Then skipped lines are reported with their line number", func() {
				So(reg.Warnings, ShouldHaveLength, 3)
				So(reg.Warnings[0].Line, ShouldEqual, 4)
				So(reg.Warnings[1].Line, ShouldEqual, 6)
				So(reg.Warnings[1].String(), ShouldContainSubstring, "duplicate")
				So(reg.Warnings[2].Line, ShouldEqual, 7)
			})
		})
	})

	Convey("Given a registry with only comments", t, func() {
		reg, err := registry.Parse(strings.NewReader("# nothing\n\n"))

		So(errors.Is(err, registry.ErrRegistryEmpty), ShouldBeTrue)
		So(reg.Maps, ShouldBeEmpty)
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a registry path", t, func() {
		Convey("When the file does not exist", func() {
			_, err := registry.Load(filepath.Join(t.TempDir(), "missing.txt"))
			So(errors.Is(err, registry.ErrRegistryNotFound), ShouldBeTrue)
		})

		Convey("When the file exists", func() {
			path := filepath.Join(t.TempDir(), "maps.txt")
			So(os.WriteFile(path, []byte("https://x.test/map/u1|One\n"), 0o600), ShouldBeNil)

			reg, err := registry.Load(path)
			So(err, ShouldBeNil)
			So(reg.Maps, ShouldHaveLength, 1)
			So(reg.Maps[0].UID, ShouldEqual, "u1")
		})
	})
}

func TestUID(t *testing.T) {
	Convey("Given API urls", t, func() {
		So(registry.UID("https://x.test/api/map/abc?offset=5"), ShouldEqual, "abc")
		So(registry.UID("https://x.test/api/map/abc/extra"), ShouldEqual, "abc")
		So(registry.UID("https://x.test/api/maps"), ShouldEqual, "")
	})
}
