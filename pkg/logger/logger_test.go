package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/lingo/pkg/logger"
)

var _ = Describe("New", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("writes JSON lines when asked to", func() {
		log := logger.New(logger.Options{Format: logger.FormatJSON, Output: buf})
		log.Info("relay started", zap.String("provider", "ollama"))
		Expect(log.Sync()).To(Succeed())

		var entry map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &entry)).To(Succeed())
		Expect(entry).To(HaveKeyWithValue("msg", "relay started"))
		Expect(entry).To(HaveKeyWithValue("provider", "ollama"))
		Expect(entry).To(HaveKeyWithValue("level", "info"))
		Expect(entry).To(HaveKey("time"))
	})

	It("drops debug entries unless debug is enabled", func() {
		log := logger.New(logger.Options{Output: buf})
		log.Debug("chunk")
		Expect(buf.Len()).To(BeZero())

		log = logger.New(logger.Options{Debug: true, Output: buf})
		log.Debug("chunk")
		Expect(buf.String()).To(ContainSubstring("chunk"))
	})
})
