package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/0xADE/nas-game/internal/apperr"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Load", func() {
	var home string

	BeforeEach(func() {
		home = GinkgoT().TempDir()
		GinkgoT().Setenv("NASGAME_HOME", home)
		for _, key := range []string{"STEAM_GRID_API_KEY", "STEAM_GRID_BASE_URL", "NASGAME_FETCH_CONCURRENCY",
			"NASGAME_FETCH_TIMEOUT", "NASGAME_TRANSCODE_WORKERS"} {
			unsetEnv(key)
		}
	})

	It("should substitute the placeholder key when none is set", func() {
		cfg, err := Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.SteamGridAPIKey).To(Equal(PlaceholderAPIKey))
		Expect(cfg.APIKeyMissing).To(BeTrue())
	})

	It("should apply defaults", func() {
		cfg, err := Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Layout.Base).To(Equal(home))
		Expect(cfg.FetchConcurrency).To(Equal(5))
		Expect(cfg.FetchTimeout).To(Equal(30 * time.Second))
		Expect(cfg.TranscodeWorkers).To(Equal(4))
		Expect(cfg.SteamGridBaseURL).To(Equal("https://www.steamgriddb.com/api/v2"))
	})

	It("should read the key from the .env file in the base directory", func() {
		Expect(os.WriteFile(filepath.Join(home, ".env"), []byte("STEAM_GRID_API_KEY=from-dotenv\n"), 0o600)).To(Succeed())
		cfg, err := Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.SteamGridAPIKey).To(Equal("from-dotenv"))
		Expect(cfg.APIKeyMissing).To(BeFalse())
	})

	It("should reject malformed numbers", func() {
		GinkgoT().Setenv("NASGAME_FETCH_CONCURRENCY", "many")
		_, err := Load()
		Expect(err).To(HaveOccurred())
	})
})

// unsetEnv removes key for the current test and restores it afterwards
func unsetEnv(key string) {
	old, had := os.LookupEnv(key)
	Expect(os.Unsetenv(key)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

var _ = Describe("Layout", func() {
	It("should place files under the base directory", func() {
		l := NewLayout("/srv/nas")
		Expect(l.SettingsPath()).To(Equal("/srv/nas/server_settings.json"))
		Expect(l.LibraryPath()).To(Equal("/srv/nas/game_library.json"))
		Expect(l.StagingDir()).To(Equal("/srv/nas/images/non-optimized"))
		Expect(l.OutputDir()).To(Equal("/srv/nas/images/optimized"))
	})

	It("should create the directory tree", func() {
		l := NewLayout(filepath.Join(GinkgoT().TempDir(), "base"))
		Expect(l.Prepare()).To(Succeed())
		Expect(l.StagingDir()).To(BeADirectory())
		Expect(l.OutputDir()).To(BeADirectory())
	})

	It("should tag folder failures", func() {
		file := filepath.Join(GinkgoT().TempDir(), "file")
		Expect(os.WriteFile(file, nil, 0o644)).To(Succeed())
		err := NewLayout(file).Prepare()
		Expect(errors.Is(err, apperr.FailedToCreateFolder)).To(BeTrue())
	})
})

var _ = Describe("ServerSettings", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), SettingsFile)
	})

	It("should write and read back the defaults", func() {
		Expect(WriteSettings(path, nil)).To(Succeed())
		s, err := LoadSettings(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(DefaultSettings()))
		Expect(s.Addr()).To(Equal("127.0.0.1:53317"))
	})

	It("should fill a missing ip", func() {
		Expect(os.WriteFile(path, []byte(`{"port": 8080}`), 0o644)).To(Succeed())
		s, err := LoadSettings(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Addr()).To(Equal("127.0.0.1:8080"))
	})

	It("should tag a missing file", func() {
		_, err := LoadSettings(path)
		Expect(errors.Is(err, apperr.FailedToReadFile)).To(BeTrue())
	})

	It("should tag bad content", func() {
		Expect(os.WriteFile(path, []byte(`{"ip": "0.0.0.0", "port": 70000}`), 0o644)).To(Succeed())
		_, err := LoadSettings(path)
		Expect(errors.Is(err, apperr.FailedToParse)).To(BeTrue())
	})
})
