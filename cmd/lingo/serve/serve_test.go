package servecmder

import (
	"bytes"

	"github.com/fatih/color"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lingo/adapter"
	"github.com/papercomputeco/lingo/pkg/config"
)

var _ = Describe("Serve Command", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.Default()
		color.NoColor = true
	})

	Describe("flag precedence", func() {
		It("keeps the configuration when no flags are set", func() {
			cmder := &serveCommander{}
			cmd := newServeCmd(cmder)
			Expect(cmd.ParseFlags(nil)).To(Succeed())

			cfg.Provider = "gemini"
			cfg.TestMode = true

			addr := cmder.apply(cmd, cfg)

			Expect(addr).To(Equal("0.0.0.0:8080"))
			Expect(cfg.Provider).To(Equal("gemini"))
			Expect(cfg.TestMode).To(BeTrue())
		})

		It("lets explicitly set flags win", func() {
			cmder := &serveCommander{}
			cmd := newServeCmd(cmder)
			Expect(cmd.ParseFlags([]string{
				"--listen", "127.0.0.1:0",
				"--provider", "ollama",
				"--test-mode=false",
				"--passthrough",
				"--static", "web/dist",
			})).To(Succeed())

			cfg.Provider = "gemini"
			cfg.TestMode = true

			addr := cmder.apply(cmd, cfg)

			Expect(addr).To(Equal("127.0.0.1:0"))
			Expect(cfg.Provider).To(Equal("ollama"))
			Expect(cfg.TestMode).To(BeFalse())
			Expect(cfg.Passthrough).To(BeTrue())
			Expect(cfg.StaticDir).To(Equal("web/dist"))
		})
	})

	Describe("banner", func() {
		It("shows the bound address and provider", func() {
			var out bytes.Buffer
			printBanner(&out, "127.0.0.1:43210", adapter.KindOllama, cfg)

			Expect(out.String()).To(ContainSubstring("http://127.0.0.1:43210"))
			Expect(out.String()).To(ContainSubstring("Ollama"))
			Expect(out.String()).To(ContainSubstring("http://localhost:11434"))
			Expect(out.String()).NotTo(ContainSubstring("TEST MODE"))
		})

		It("announces test mode", func() {
			cfg.TestMode = true
			var out bytes.Buffer
			printBanner(&out, "127.0.0.1:43210", adapter.KindGemini, cfg)

			Expect(out.String()).To(ContainSubstring("Gemini"))
			Expect(out.String()).To(ContainSubstring("gemini-2.0-flash"))
			Expect(out.String()).To(ContainSubstring("TEST MODE"))
		})
	})
})
