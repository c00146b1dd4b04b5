package config_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frherrer/shellspec/internal/config"
)

var _ = Describe("Config", func() {
	Describe("DefaultConfig", func() {
		It("should carry the documented defaults", func() {
			cfg := config.DefaultConfig()
			Expect(cfg.Timeouts.Shell).To(Equal(30))
			Expect(cfg.Timeouts.Expect).To(Equal(30))
			Expect(cfg.Docs.Tags).To(ContainElement("shellspec"))
			Expect(cfg.Logging.Level).To(Equal("info"))
		})
	})

	Describe("Load", func() {
		It("should load the full config", func() {
			cfg, err := config.Load(filepath.Join("..", "..", "testdata", "configs", "full.yaml"))
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Aliases).To(HaveKeyWithValue("age-store.py", "../age-store.py"))
			Expect(cfg.AliasBaseDir).To(Equal("tools"))
			Expect(cfg.Timeouts.Shell).To(Equal(5))
			Expect(cfg.Timeouts.Expect).To(Equal(10))
			Expect(cfg.Docs.Tags).To(ContainElements("shellspec", "spec"))
			Expect(cfg.Logging.Level).To(Equal("debug"))
		})

		It("should keep defaults for unset fields", func() {
			cfg, err := config.Load(filepath.Join("..", "..", "testdata", "configs", "minimal.yaml"))
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Timeouts.Shell).To(Equal(2))
			// Not mentioned in the file, so the default holds.
			Expect(cfg.Timeouts.Expect).To(Equal(30))
			Expect(cfg.Docs.Tags).To(ContainElement("shellspec"))
		})

		It("should return error for nonexistent file", func() {
			_, err := config.Load("nonexistent.yaml")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("LoadOrDefault", func() {
		It("should fall back to defaults when the file is missing", func() {
			cfg, err := config.LoadOrDefault("definitely-missing.yaml")
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Timeouts.Shell).To(Equal(30))
		})
	})

	Describe("Validate", func() {
		It("should accept the defaults", func() {
			Expect(config.Validate(config.DefaultConfig())).To(Succeed())
		})

		It("should reject non-positive timeouts", func() {
			cfg := config.DefaultConfig()
			cfg.Timeouts.Shell = 0
			err := config.Validate(cfg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("timeouts.shell"))
		})

		It("should reject unknown logging levels", func() {
			cfg := config.DefaultConfig()
			cfg.Logging.Level = "loud"
			err := config.Validate(cfg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logging.level"))
		})

		It("should reject empty alias entries", func() {
			cfg := config.DefaultConfig()
			cfg.Aliases[""] = "/bin/echo"
			Expect(config.Validate(cfg)).ToNot(Succeed())
		})
	})
})
