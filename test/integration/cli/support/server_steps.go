package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/readout/internal/extract"
	"github.com/MeKo-Tech/readout/internal/server"
	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"
)

const requestTimeout = 10 * time.Second

func (testCtx *TestContext) startServer(rateLimit *server.RateLimitConfig) error {
	if err := testCtx.StopServer(); err != nil {
		return err
	}
	s, err := server.NewServer(server.Config{
		CORSOrigin:  "*",
		MaxUploadMB: 1,
		TimeoutSec:  5,
		Extraction:  extract.DefaultConfig(),
		RateLimit:   rateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.Server = s
	testCtx.HTTPServer = httptest.NewServer(s.Handler())
	return nil
}

func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.startServer(nil)
}

func (testCtx *TestContext) theServerIsRunningWithRateLimit(perMinute int) error {
	return testCtx.startServer(&server.RateLimitConfig{
		RequestsPerMinute: perMinute,
		RequestsPerHour:   perMinute * 60,
		MaxRequestsPerDay: perMinute * 60 * 24,
		MaxDataPerDay:     1 << 30,
	})
}

func (testCtx *TestContext) serverURL(path string) (string, error) {
	if testCtx.HTTPServer == nil {
		return "", fmt.Errorf("server is not running")
	}
	return testCtx.HTTPServer.URL + path, nil
}

func (testCtx *TestContext) do(method, path, contentType string, body io.Reader) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iGet(path string) error {
	return testCtx.do(http.MethodGet, path, "", nil)
}

// iPostBundle sends a bundle file of the working directory.
func (testCtx *TestContext) iPostBundle(name, path string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read bundle: %w", err)
	}
	contentType := "application/json"
	if format, _ := tokens.FormatFromPath(name); format == tokens.FormatYAML {
		contentType = "application/yaml"
	}
	return testCtx.do(http.MethodPost, path, contentType, bytes.NewReader(data))
}

func (testCtx *TestContext) iPostBody(path string, body *godog.DocString) error {
	return testCtx.do(http.MethodPost, path, "application/json", strings.NewReader(body.Content))
}

func (testCtx *TestContext) iPostBundleTimes(name, path string, n int) error {
	for range n {
		if err := testCtx.iPostBundle(name, path); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status is %d, expected %d\nBody: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	got, ok := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]
	if !ok {
		return fmt.Errorf("response has no %s header", name)
	}
	if got != value {
		return fmt.Errorf("header %s is %q, expected %q", name, got, value)
	}
	return nil
}

func (testCtx *TestContext) theResponseFieldShouldEqual(field, expected string) error {
	data, err := decodeJSONObject(testCtx.LastHTTPResponse)
	if err != nil {
		return err
	}
	return fieldEquals(data, field, expected)
}

// iSendBundleOverWebSocket runs one extract request on /ws/extract and
// keeps the final message as the response.
func (testCtx *TestContext) iSendBundleOverWebSocket(name string) error {
	url, err := testCtx.serverURL("/ws/extract")
	if err != nil {
		return err
	}
	b, err := tokens.LoadBundle(testCtx.Path(name))
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	req := server.WebSocketExtractRequest{Type: "extract", RequestID: "feature", Bundle: b}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(requestTimeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		var msg server.WebSocketExtractResponse
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("invalid websocket message: %w", err)
		}
		if msg.Status == "processing" {
			continue
		}
		testCtx.LastHTTPResponse = string(data)
		return nil
	}
}

// RegisterServerSteps registers the HTTP and websocket steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the readout server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the readout server is running with a limit of (\d+) requests per minute$`,
		testCtx.theServerIsRunningWithRateLimit)

	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGet)
	sc.Step(`^I POST the bundle "([^"]*)" to "([^"]*)"$`, testCtx.iPostBundle)
	sc.Step(`^I POST the bundle "([^"]*)" to "([^"]*)" (\d+) times$`, testCtx.iPostBundleTimes)
	sc.Step(`^I POST to "([^"]*)":$`, testCtx.iPostBody)
	sc.Step(`^I send the bundle "([^"]*)" over the websocket$`, testCtx.iSendBundleOverWebSocket)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, testCtx.theResponseFieldShouldEqual)
}

