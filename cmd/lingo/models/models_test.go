package modelscmder

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/lingo/cmd/lingo/cliconfig"
)

var _ = Describe("Models Command", func() {
	var (
		ctx    context.Context
		tmpDir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "lingo-models-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeConfig := func(ollamaURL string) string {
		host, port, err := net.SplitHostPort(strings.TrimPrefix(ollamaURL, "http://"))
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(tmpDir, "lingo.toml")
		body := fmt.Sprintf("provider = \"ollama\"\n\n[ollama]\nhost = %q\nport = %s\ntimeout = \"5s\"\n", host, port)
		Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
		return path
	}

	execute := func(args ...string) (string, error) {
		root := &cobra.Command{Use: "lingo", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().String(cliconfig.ConfigFlag, "", "")
		root.PersistentFlags().Bool(cliconfig.DebugFlag, false, "")
		root.AddCommand(NewModelsCmd())

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs(append([]string{"models"}, args...))
		err := root.ExecuteContext(ctx)
		return out.String(), err
	}

	It("prints the models reported by Ollama", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/tags"))
			fmt.Fprint(w, `{"models":[{"name":"llama3.2:latest","details":{"family":"llama","parameter_size":"3.2B"}},{"name":"exaone3.5:7.8b","details":{}}]}`)
		}))
		defer server.Close()

		out, err := execute("--config", writeConfig(server.URL))
		Expect(err).NotTo(HaveOccurred())

		Expect(out).To(ContainSubstring("Ollama models (2)"))
		Expect(out).To(MatchRegexp(`llama3\.2:latest\s+llama\s+3\.2B`))
		Expect(out).To(MatchRegexp(`exaone3\.5:7\.8b\s+-\s+-`))
	})

	It("prints bare names with --quiet", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"models":[{"name":"llama3.2:latest"},{"name":"exaone3.5:7.8b"}]}`)
		}))
		defer server.Close()

		out, err := execute("--config", writeConfig(server.URL), "--quiet")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("llama3.2:latest\nexaone3.5:7.8b\n"))
	})

	It("fails when Ollama is down", func() {
		server := httptest.NewServer(http.NotFoundHandler())
		path := writeConfig(server.URL)
		server.Close()

		_, err := execute("--config", path)
		Expect(err).To(MatchError(ContainSubstring("could not list models from Ollama")))
	})

	It("lists the Gemini catalog without calling the network", func() {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		path := writeConfig(server.URL)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
		Expect(err).NotTo(HaveOccurred())
		_, err = f.WriteString("\n[gemini]\napi_key = \"test-key\"\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())

		out, err := execute("--config", path, "--provider", "gemini")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Gemini models"))
		Expect(out).To(ContainSubstring("gemini-2.0-flash"))
	})

	It("rejects an unknown config key", func() {
		path := filepath.Join(tmpDir, "bad.toml")
		Expect(os.WriteFile(path, []byte("upstream = \"x\"\n"), 0o600)).To(Succeed())

		_, err := execute("--config", path)
		Expect(err).To(MatchError(ContainSubstring("unknown keys")))
	})
})
