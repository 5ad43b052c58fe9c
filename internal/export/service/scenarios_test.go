package service_test

import (
	"context"
	"encoding/json"
	"net"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/common/config"
	"github.com/edgecomet/chatexport/internal/export/chrome"
	"github.com/edgecomet/chatexport/internal/export/extractor"
	"github.com/edgecomet/chatexport/internal/export/fetcher"
	"github.com/edgecomet/chatexport/internal/export/pipeline"
	"github.com/edgecomet/chatexport/internal/export/service"
)

const sharedPage = `<!DOCTYPE html><html><head><title>Weekend plans</title></head><body>
<script>window.__remixContext = {"state":{"loaderData":{"share":{"linear_conversation":[` +
	`{"message":{"author":{"role":"system"},"content":{"parts":["You are a helpful assistant"]}}},` +
	`{"message":{"author":{"role":"user"},"content":{"parts":["Where should I go?"]}}},` +
	`{"message":{"author":{"role":"assistant"},"content":{"parts":["Try Lisbon."]}}}` +
	`],"has_user_editable_context":false}}}};</script></body></html>`

const pageWithoutMarker = `<!DOCTYPE html><html><head><title>Gone</title></head><body><script>window.app = {};</script></body></html>`

// stubPrinter stands in for Chrome and counts calls
type stubPrinter struct {
	calls atomic.Int32
	html  atomic.Value
}

func (p *stubPrinter) PrintPDF(_ context.Context, html string, _ chrome.PrintOptions) ([]byte, error) {
	p.calls.Add(1)
	p.html.Store(html)
	return []byte("%PDF-1.7\n%stub\n"), nil
}

// inmemoryServe starts handler on an in-memory listener
func inmemoryServe(handler fasthttp.RequestHandler) *fasthttputil.InmemoryListener {
	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: handler}
	go func() {
		defer GinkgoRecover()
		_ = server.Serve(ln)
	}()
	DeferCleanup(func() {
		_ = server.Shutdown()
	})
	return ln
}

var _ = Describe("Export service", func() {
	var (
		originBody  string
		originHits  atomic.Int32
		printer     *stubPrinter
		apiListener *fasthttputil.InmemoryListener
		client      *fasthttp.Client
	)

	BeforeEach(func() {
		originBody = sharedPage
		originHits.Store(0)
		printer = &stubPrinter{}

		origin := inmemoryServe(func(ctx *fasthttp.RequestCtx) {
			originHits.Add(1)
			ctx.SetContentType("text/html; charset=utf-8")
			ctx.SetBodyString(originBody)
		})

		cfg := config.Default()
		static := fetcher.New(cfg.Fetch, zap.NewNop(), fetcher.WithDial(func(string) (net.Conn, error) {
			return origin.Dial()
		}))
		embedded := extractor.NewEmbeddedExtractor(static, cfg.Export.DefaultTitle)

		p := pipeline.New(embedded, embedded, printer, cfg.Export, nil, zap.NewNop())
		handler := service.NewHandler(p, nil, zap.NewNop())
		apiListener = inmemoryServe(service.NewServer(cfg, handler).Handler)

		client = &fasthttp.Client{
			Dial: func(string) (net.Conn, error) {
				return apiListener.Dial()
			},
		}
	})

	post := func(path, body string) *fasthttp.Response {
		req := fasthttp.AcquireRequest()
		defer fasthttp.ReleaseRequest(req)
		req.SetRequestURI("http://export.test" + path)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType("application/json")
		req.SetBodyString(body)

		resp := &fasthttp.Response{}
		Expect(client.Do(req, resp)).To(Succeed())
		return resp
	}

	errorOf := func(resp *fasthttp.Response) string {
		var body map[string]string
		Expect(json.Unmarshal(resp.Body(), &body)).To(Succeed())
		return body["error"]
	}

	Describe("extract endpoint", func() {
		It("returns user and assistant messages and drops the system prompt", func() {
			resp := post(service.PathFetchData, `{"url":"https://chatgpt.com/share/abc"}`)

			Expect(resp.StatusCode()).To(Equal(fasthttp.StatusOK))
			Expect(string(resp.Body())).To(MatchJSON(`[
				{"role":"User","content":"Where should I go?"},
				{"role":"Assistant","content":"Try Lisbon."}
			]`))
		})

		It("returns paired turns on the conversations route", func() {
			resp := post(service.PathConversations, `{"url":"https://chatgpt.com/share/abc"}`)

			Expect(resp.StatusCode()).To(Equal(fasthttp.StatusOK))
			Expect(string(resp.Body())).To(MatchJSON(`{"conversations":[{"user":"Where should I go?","ai":"Try Lisbon."}]}`))
		})

		It("returns 404 when the hydration marker is absent", func() {
			originBody = pageWithoutMarker

			resp := post(service.PathFetchData, `{"url":"https://chatgpt.com/share/abc"}`)

			Expect(resp.StatusCode()).To(Equal(fasthttp.StatusNotFound))
			Expect(errorOf(resp)).To(Equal("Remix context not found"))
		})

		It("rejects a missing URL without fetching", func() {
			resp := post(service.PathFetchData, `{}`)

			Expect(resp.StatusCode()).To(Equal(fasthttp.StatusBadRequest))
			Expect(errorOf(resp)).To(Equal("URL is required"))
			Expect(originHits.Load()).To(BeZero())
		})
	})

	Describe("render endpoint", func() {
		It("rejects a malformed URL", func() {
			resp := post(service.PathScrape, `{"url":"not-a-url"}`)

			Expect(resp.StatusCode()).To(Equal(fasthttp.StatusBadRequest))
			Expect(errorOf(resp)).To(Equal("Invalid URL format"))
		})

		It("rejects a paper format outside the allow-list before any I/O", func() {
			resp := post(service.PathScrape, `{"url":"https://chatgpt.com/share/abc","paperFormat":"Tabloid"}`)

			Expect(resp.StatusCode()).To(Equal(fasthttp.StatusBadRequest))
			Expect(errorOf(resp)).To(Equal("Invalid paper format"))
			Expect(originHits.Load()).To(BeZero())
			Expect(printer.calls.Load()).To(BeZero())
		})

		It("streams a PDF named after the sanitized file name", func() {
			resp := post(service.PathScrape, `{"url":"https://chatgpt.com/share/abc","fileName":"My Report!!.txt"}`)

			Expect(resp.StatusCode()).To(Equal(fasthttp.StatusOK))
			Expect(string(resp.Header.ContentType())).To(Equal("application/pdf"))
			Expect(string(resp.Header.Peek("Content-Disposition"))).To(Equal(`attachment; filename="My_Report__.txt.pdf"`))
			Expect(resp.Header.ContentLength()).To(Equal(len(resp.Body())))
			Expect(resp.Body()).To(HavePrefix("%PDF"))

			Expect(printer.calls.Load()).To(BeEquivalentTo(1))
			html := printer.html.Load().(string)
			Expect(html).To(ContainSubstring("<h1>Weekend plans</h1>"))
			Expect(html).To(ContainSubstring(`class="user-message"`))
			Expect(html).NotTo(ContainSubstring("helpful assistant"))
		})

		It("names the PDF after the page title when no file name is given", func() {
			resp := post(service.PathScrape, `{"url":"https://chatgpt.com/share/abc"}`)

			Expect(resp.StatusCode()).To(Equal(fasthttp.StatusOK))
			Expect(string(resp.Header.Peek("Content-Disposition"))).To(Equal(`attachment; filename="Weekend_plans.pdf"`))
		})

		It("returns 500 when no conversation can be found", func() {
			originBody = pageWithoutMarker

			resp := post(service.PathScrape, `{"url":"https://chatgpt.com/share/abc"}`)

			Expect(resp.StatusCode()).To(Equal(fasthttp.StatusInternalServerError))
			Expect(errorOf(resp)).To(Equal("Remix context not found"))
			Expect(printer.calls.Load()).To(BeZero())
		})
	})
})
