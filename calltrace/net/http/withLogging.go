package http

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kyralabs/lib-calltrace/calltrace"
	cn "github.com/kyralabs/lib-calltrace/calltrace/constants"
	"github.com/kyralabs/lib-calltrace/calltrace/log"
	"github.com/kyralabs/lib-calltrace/calltrace/sensitive"
)

// maxObfuscationDepth limits recursion depth when obfuscating nested JSON
// structures to prevent stack overflow on deeply nested or malicious
// payloads.
const maxObfuscationDepth = 32

// RequestInfo holds one HTTP access log entry.
type RequestInfo struct {
	Method        string
	URI           string
	Referer       string
	RemoteAddress string
	Status        int
	Date          time.Time
	Duration      time.Duration
	UserAgent     string
	TraceID       string
	Protocol      string
	Size          int
	Body          string
	Headers       map[string]string
}

// NewRequestInfo captures request data, masking deny-listed headers and
// obfuscating sensitive body fields before anything is retained.
func NewRequestInfo(c *fiber.Ctx, detector *sensitive.Detector) *RequestInfo {
	referer := "-"
	if c.Get("Referer") != "" {
		referer = c.Get("Referer")
	}

	body := ""
	if c.Request().Header.ContentLength() > 0 {
		body = obfuscatedBodyString(c, c.Body(), detector)
	}

	return &RequestInfo{
		TraceID:       c.Get(cn.HeaderID),
		Method:        c.Method(),
		URI:           c.OriginalURL(),
		Referer:       referer,
		UserAgent:     c.Get(cn.HeaderUserAgent),
		RemoteAddress: c.IP(),
		Protocol:      c.Protocol(),
		Date:          time.Now().UTC(),
		Body:          body,
		Headers:       maskedRequestHeaders(c),
	}
}

// CLFString produces a log entry format similar to Common Log Format (CLF)
// Ref: https://httpd.apache.org/docs/trunk/logs.html#common
func (r *RequestInfo) CLFString() string {
	return strings.Join([]string{
		r.RemoteAddress,
		"-",
		r.Protocol,
		r.Date.Format("[02/Jan/2006:15:04:05 -0700]"),
		`"` + r.Method + " " + r.URI + `"`,
		strconv.Itoa(r.Status),
		strconv.Itoa(r.Size),
		r.Referer,
		r.UserAgent,
	}, " ")
}

// String implements fmt.Stringer using CLFString.
func (r *RequestInfo) String() string {
	return r.CLFString()
}

// finish computes the duration and copies the response status and size.
func (r *RequestInfo) finish(c *fiber.Ctx) {
	r.Duration = time.Now().UTC().Sub(r.Date)
	r.Status = c.Response().StatusCode()
	r.Size = len(c.Response().Body())
}

type logMiddleware struct {
	Logger   log.Logger
	Detector *sensitive.Detector
}

// LogMiddlewareOption customizes the logging middleware.
type LogMiddlewareOption func(l *logMiddleware)

// WithCustomLogger installs the logger used for access records.
func WithCustomLogger(logger log.Logger) LogMiddlewareOption {
	return func(l *logMiddleware) {
		if logger != nil {
			l.Logger = logger
		}
	}
}

// WithDetector installs a custom sensitive-value detector for body
// obfuscation.
func WithDetector(detector *sensitive.Detector) LogMiddlewareOption {
	return func(l *logMiddleware) {
		if detector != nil {
			l.Detector = detector
		}
	}
}

func buildOpts(opts ...LogMiddlewareOption) *logMiddleware {
	mid := &logMiddleware{
		Logger:   log.NewNop(),
		Detector: sensitive.Default(),
	}

	for _, opt := range opts {
		opt(mid)
	}

	return mid
}

// WithHTTPLogging is a fiber middleware that logs access to the HTTP server
// with masked headers and obfuscated bodies, and injects a request-scoped
// logger into the user context.
func WithHTTPLogging(opts ...LogMiddlewareOption) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" {
			return c.Next()
		}

		if strings.Contains(c.Path(), "swagger") && c.Path() != "/swagger/index.html" {
			return c.Next()
		}

		setRequestHeaderID(c)

		mid := buildOpts(opts...)
		info := NewRequestInfo(c, mid.Detector)

		logger := mid.Logger.
			With(log.String(cn.HeaderID, info.TraceID)).
			With(log.String("message_prefix", info.TraceID+cn.LoggerDefaultSeparator))

		ctx := calltrace.ContextWithLogger(c.UserContext(), logger)
		ctx = calltrace.ContextWithHeaderID(ctx, info.TraceID)
		c.SetUserContext(ctx)

		err := c.Next()

		info.finish(c)

		logger.Log(c.UserContext(), log.LevelInfo, info.CLFString(),
			log.Any("headers", info.Headers),
			log.String("body", info.Body),
			log.Duration("duration", info.Duration),
		)

		return err
	}
}

func setRequestHeaderID(c *fiber.Ctx) {
	headerID := c.Get(cn.HeaderID)

	if calltrace.IsNilOrEmpty(&headerID) {
		headerID = uuid.New().String()
		c.Set(cn.HeaderID, headerID)
		c.Request().Header.Set(cn.HeaderID, headerID)
		c.Response().Header.Set(cn.HeaderID, headerID)
	}

	c.SetUserContext(calltrace.ContextWithHeaderID(c.UserContext(), headerID))
}

// maskedRequestHeaders copies the request headers, replacing deny-listed
// values with the fixed mask.
func maskedRequestHeaders(c *fiber.Ctx) map[string]string {
	masked := make(map[string]string)

	for key, values := range c.GetReqHeaders() {
		value := strings.Join(values, ", ")
		if isDeniedHeader(key) {
			value = cn.HeaderMaskValue
		}

		masked[key] = value
	}

	return masked
}

func isDeniedHeader(name string) bool {
	lower := strings.ToLower(name)

	for _, denied := range cn.SensitiveRequestHeaders() {
		if lower == denied {
			return true
		}
	}

	return false
}

func obfuscatedBodyString(c *fiber.Ctx, bodyBytes []byte, detector *sensitive.Detector) string {
	contentType := c.Get("Content-Type")

	switch {
	case strings.Contains(contentType, "application/json"):
		return obfuscateJSONBody(bodyBytes, detector)
	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		return obfuscateURLEncodedBody(bodyBytes, detector)
	default:
		return string(bodyBytes)
	}
}

func obfuscateJSONBody(bodyBytes []byte, detector *sensitive.Detector) string {
	var bodyData map[string]any
	if err := json.Unmarshal(bodyBytes, &bodyData); err != nil {
		return string(bodyBytes)
	}

	obfuscateMapRecursively(bodyData, detector, 0)

	updatedBody, err := json.Marshal(bodyData)
	if err != nil {
		return string(bodyBytes)
	}

	return string(updatedBody)
}

func obfuscateMapRecursively(data map[string]any, detector *sensitive.Detector, depth int) {
	if depth >= maxObfuscationDepth {
		return
	}

	for key, value := range data {
		if detector.IsSensitiveKey(key) {
			data[key] = cn.ObfuscatedValue
			continue
		}

		switch v := value.(type) {
		case map[string]any:
			obfuscateMapRecursively(v, detector, depth+1)
		case []any:
			obfuscateSliceRecursively(v, detector, depth+1)
		}
	}
}

func obfuscateSliceRecursively(data []any, detector *sensitive.Detector, depth int) {
	if depth >= maxObfuscationDepth {
		return
	}

	for _, item := range data {
		switch v := item.(type) {
		case map[string]any:
			obfuscateMapRecursively(v, detector, depth+1)
		case []any:
			obfuscateSliceRecursively(v, detector, depth+1)
		}
	}
}

func obfuscateURLEncodedBody(bodyBytes []byte, detector *sensitive.Detector) string {
	formData, err := url.ParseQuery(string(bodyBytes))
	if err != nil {
		return string(bodyBytes)
	}

	updatedBody := url.Values{}

	for key, values := range formData {
		if detector.IsSensitiveKey(key) {
			for range values {
				updatedBody.Add(key, cn.ObfuscatedValue)
			}

			continue
		}

		for _, value := range values {
			updatedBody.Add(key, value)
		}
	}

	return updatedBody.Encode()
}
