package scanning

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/generative-ai-go/genai"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/api/googleapi"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}}},
		},
	}
}

var _ = Describe("Gemini", func() {
	Describe("NewGemini", func() {
		It("should require an api key", func() {
			_, err := NewGemini("", "")
			Expect(err).To(MatchError(ContainSubstring("api key is required")))
		})
	})

	Describe("ScanText", func() {
		var (
			scanner   *Gemini
			responses []error
			attempts  int
			slowness  time.Duration
		)

		BeforeEach(func() {
			responses = nil
			attempts = 0
			slowness = 0
			scanner = &Gemini{
				attemptTimeout: 50 * time.Millisecond,
				retryDelay:     30 * time.Millisecond,
			}
			scanner.generate = func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
				attempts++
				Expect(parts).To(HaveLen(2))
				select {
				case <-time.After(slowness):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				if attempts <= len(responses) {
					return nil, responses[attempts-1]
				}
				return textResponse("```\nCafe Luna\r\nTotal  4.00\n```"), nil
			}
		})

		It("should return the cleaned transcript", func() {
			text, err := scanner.ScanText(context.Background(), encodePNG(testImage()), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Cafe Luna\nTotal 4.00"))
			Expect(attempts).To(Equal(1))
		})

		When("slow attempts fail transiently", func() {
			BeforeEach(func() {
				slowness = 40 * time.Millisecond
				responses = []error{
					&googleapi.Error{Code: http.StatusServiceUnavailable},
					&googleapi.Error{Code: http.StatusServiceUnavailable},
				}
			})

			It("should give every attempt its own deadline", func() {
				text, err := scanner.ScanText(context.Background(), encodePNG(testImage()), "image/png")
				Expect(err).NotTo(HaveOccurred())
				Expect(text).To(Equal("Cafe Luna\nTotal 4.00"))
				Expect(attempts).To(Equal(3))
			})
		})

		When("the failure is permanent", func() {
			BeforeEach(func() {
				responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}
			})

			It("should not retry", func() {
				_, err := scanner.ScanText(context.Background(), encodePNG(testImage()), "image/png")
				Expect(err).To(HaveOccurred())
				Expect(attempts).To(Equal(1))
			})
		})

		It("should reject unsupported input without calling the model", func() {
			_, err := scanner.ScanText(context.Background(), []byte("plain text"), "text/plain")
			Expect(err).To(MatchError(ErrUnsupportedFormat))
			Expect(attempts).To(BeZero())
		})
	})

	Describe("isTransientGoogleError", func() {
		DescribeTable("classifies API errors",
			func(err error, transient bool) {
				Expect(isTransientGoogleError(err)).To(Equal(transient))
			},
			Entry("rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true),
			Entry("server error", fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusBadGateway}), true),
			Entry("bad request", &googleapi.Error{Code: http.StatusBadRequest}, false),
			Entry("other error", errors.New("no candidates"), false),
		)
	})
})
