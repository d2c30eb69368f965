package evaluator

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"

	// Evaluation answers are small; anything bigger is not ours.
	maxResponseBytes = 4 << 20
)

var validate = newValidator()

// Request is the body of an evaluation call.
type Request struct {
	ResumeText     string `json:"resume_text" validate:"required"`
	JobDescription string `json:"job_description" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims both fields and checks that neither is blank.
func (r Request) Normalize() (Request, error) {
	r.ResumeText = strings.TrimSpace(r.ResumeText)
	r.JobDescription = strings.TrimSpace(r.JobDescription)

	if err := validate.Struct(r); err != nil {
		var invalid validator.ValidationErrors
		if !errors.As(err, &invalid) {
			return r, fmt.Errorf("validating request: %w", err)
		}

		fields := make([]string, 0, len(invalid))
		for _, fe := range invalid {
			fields = append(fields, fe.Field())
		}
		return r, &ValidationError{Fields: fields}
	}

	return r, nil
}

// do sends req and returns the body of a 2xx response.
func (c *Client) do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := c.request(client, req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	tooLarge := errors.Is(err, ErrResponseTooLarge)
	if err != nil && !tooLarge {
		return nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &BackendError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	if tooLarge {
		return nil, &MalformedResponseError{Body: string(body[:maxBodyInError]), Err: ErrResponseTooLarge}
	}

	return body, nil
}

func (c *Client) request(client *http.Client, req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxResponseBytes {
		return body[:maxResponseBytes], ErrResponseTooLarge
	}

	return body, nil
}

// decodeObject parses a JSON object. Anything else is a malformed response.
func decodeObject(body []byte) (map[string]any, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &MalformedResponseError{Body: string(body), Err: err}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &MalformedResponseError{
			Body: string(body),
			Err:  fmt.Errorf("expected a JSON object, got %T", raw),
		}
	}

	return obj, nil
}
