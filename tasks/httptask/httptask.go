// Package httptask provides the built-in 'http' task: it performs one HTTP
// request and returns the response status and body.
package httptask

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/vk/taskgrid/internal/event"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/schema"
	"github.com/vk/taskgrid/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the factory with the engine.
func (Module) Register(r *registry.Registry) {
	r.Register("http", New)
}

// Task performs one HTTP request per invocation. When its input value is a
// string it is sent as the request body.
type Task struct {
	url     string
	method  string
	headers map[string]string
	timeout time.Duration
}

// New builds an http task. Recognized arguments: "url" (string, required),
// "method" (string, default GET), "headers" (map of string), "timeout"
// (duration string, e.g. "5s").
func New(args map[string]any) (task.Task, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("http task requires a 'url' argument")
	}

	t := &Task{url: url, method: "GET"}
	if m, ok := args["method"].(string); ok && m != "" {
		t.method = strings.ToUpper(m)
	}
	if h, ok := args["headers"].(map[string]any); ok {
		t.headers = make(map[string]string, len(h))
		for k, v := range h {
			t.headers[k] = fmt.Sprintf("%v", v)
		}
	}
	if raw, ok := args["timeout"].(string); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("http task: invalid 'timeout' %q: %w", raw, err)
		}
		t.timeout = d
	}
	return t, nil
}

// Name implements task.Task.
func (t *Task) Name() string { return "http" }

// Run implements task.Task.
func (t *Task) Run(ctx context.Context, in task.Input) (any, error) {
	client := resty.New()
	defer client.Close()
	if t.timeout > 0 {
		client.SetTimeout(t.timeout)
	}

	req := client.R().SetContext(ctx)
	if len(t.headers) > 0 {
		req.SetHeaders(t.headers)
	}
	if body, ok := in.Value.(string); ok && body != "" {
		req.SetBody(body)
	}

	in.Send(event.Log("info", fmt.Sprintf("%s %s", t.method, t.url)))

	res, err := req.Execute(t.method, t.url)
	if err != nil {
		return nil, fmt.Errorf("http task: %s %s: %w", t.method, t.url, err)
	}

	in.Send(event.Log("info", fmt.Sprintf("received %s", res.Status())))

	return map[string]any{
		"status": res.StatusCode(),
		"body":   res.String(),
	}, nil
}

// InputType implements task.Typed: the request body, when present, is a
// string.
func (t *Task) InputType() *schema.Type {
	return schema.String().AsOptional()
}

// OutputType implements task.Typed.
func (t *Task) OutputType() *schema.Type {
	return schema.Object(
		schema.Attr{Name: "status", Type: schema.Number()},
		schema.Attr{Name: "body", Type: schema.String()},
	)
}
