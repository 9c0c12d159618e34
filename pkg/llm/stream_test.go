package llm_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lingo/pkg/llm"
)

var _ = Describe("StreamChunk", func() {
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	decode := func(chunk *llm.StreamChunk) map[string]any {
		data, err := json.Marshal(chunk)
		Expect(err).NotTo(HaveOccurred())
		var out map[string]any
		Expect(json.Unmarshal(data, &out)).To(Succeed())
		return out
	}

	Describe("NewChatChunk", func() {
		It("carries the delta in message.content", func() {
			out := decode(llm.NewChatChunk("m", createdAt, "Hel", false))

			Expect(out).To(HaveKeyWithValue("model", "m"))
			Expect(out).To(HaveKeyWithValue("done", false))
			Expect(out).To(HaveKeyWithValue("message", map[string]any{"role": "assistant", "content": "Hel"}))
			Expect(out).NotTo(HaveKey("response"))
			Expect(out).NotTo(HaveKey("error"))
		})
	})

	Describe("NewGenerateChunk", func() {
		It("carries the delta in response", func() {
			out := decode(llm.NewGenerateChunk("m", createdAt, "lo", false))

			Expect(out).To(HaveKeyWithValue("response", "lo"))
			Expect(out).NotTo(HaveKey("message"))
		})

		It("keeps an empty response on the terminal chunk", func() {
			chunk := llm.NewGenerateChunk("m", createdAt, "", true)
			chunk.DoneReason = llm.DoneReasonStop
			out := decode(chunk)

			Expect(out).To(HaveKeyWithValue("response", ""))
			Expect(out).To(HaveKeyWithValue("done", true))
			Expect(out).To(HaveKeyWithValue("done_reason", "stop"))
		})
	})

	Describe("Text", func() {
		It("returns the delta for both shapes", func() {
			Expect(llm.NewChatChunk("m", createdAt, "a", false).Text()).To(Equal("a"))
			Expect(llm.NewGenerateChunk("m", createdAt, "b", false).Text()).To(Equal("b"))
			Expect((&llm.StreamChunk{}).Text()).To(BeEmpty())
		})
	})
})
